package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/me/mgasm/pkg/model"
)

// runsPath is the run collection of the mgasm API.
const runsPath = "/api/v1/runs"

// Client talks to the run endpoints of an mgasm server. Every reply is a
// model.Response envelope: status "ok" carries the payload in data, status
// "error" carries a model.APIError, which the client returns as the error.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

// envelope is model.Response with the payload left undecoded.
type envelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     *model.APIError `json:"error"`
}

// SubmittedRun mirrors the server's reply to POST /runs. Results is set
// only when the submission waited for the run to finish.
type SubmittedRun struct {
	ID        string                 `json:"id"`
	State     model.RunState         `json:"state"`
	OutputDir string                 `json:"output_dir"`
	Results   *model.PipelineResults `json:"results"`
	Archive   string                 `json:"archive"`
}

// SubmitRun posts params to the server. With wait the call returns after the
// run has finished.
func (c *Client) SubmitRun(ctx context.Context, params model.PipelineParams, wait bool) (*SubmittedRun, error) {
	path := runsPath
	if wait {
		path += "?wait=true"
	}
	var run SubmittedRun
	if err := c.do(ctx, http.MethodPost, path, params, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun fetches the run record with its steps and results.
func (c *Client) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	if err := c.do(ctx, http.MethodGet, runsPath+"/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// do sends body as JSON and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	target := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Logger.Debug("api request", "method", method, "url", target)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s %s: status %d, not an mgasm response: %s",
			method, path, resp.StatusCode, shorten(strings.TrimSpace(string(raw)), 200))
	}
	c.Logger.Debug("api response", "status", resp.StatusCode, "request_id", env.RequestID)

	if env.Status == "error" || resp.StatusCode >= http.StatusBadRequest {
		if env.Error == nil {
			return fmt.Errorf("%s %s: status %d without error details", method, path, resp.StatusCode)
		}
		c.Logger.Debug("api error", "request_id", env.RequestID, "code", env.Error.Code)
		return env.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}
