package kbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client calls SDK services through the callback server.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

// NewClient creates a new client with the given configuration.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger.With("component", "kbase-client"),
	}
}

// Call executes a JSON-RPC call of method with params against the callback
// server.
func (c *Client) Call(ctx context.Context, method string, params ...any) (*RPCResponse, error) {
	if params == nil {
		params = []any{}
	}
	op := method
	if c.config.CallbackURL == "" {
		return nil, WrapError(op, ErrNoCallbackURL)
	}
	logger := c.logger.With("method", method)

	req := RPCRequest{
		ID:      uuid.NewString(),
		Method:  method,
		Version: "1.1",
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, WrapError(op, fmt.Errorf("marshaling request: %w", err))
	}

	logger.Debug("sending request", "request_id", req.ID)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			logger.Debug("retrying after delay", "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				return nil, WrapError(op, ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := c.doRequest(ctx, body)
		if err != nil {
			lastErr = err
			if !IsRetryable(err) {
				return nil, WrapError(op, err)
			}
			logger.Debug("request failed, will retry", "error", err, "attempt", attempt)
			continue
		}

		if resp.Error != nil {
			logger.Debug("RPC error", "code", resp.Error.Code, "message", resp.Error.Message)
			return resp, FromRPCError(op, resp.Error)
		}

		logger.Debug("request successful", "request_id", resp.ID)
		return resp, nil
	}

	return nil, WrapError(op, fmt.Errorf("all retries exhausted: %w", lastErr))
}

// doRequest performs a single HTTP request and parses the response.
func (c *Client) doRequest(ctx context.Context, body []byte) (*RPCResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", c.config.Token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		// SDK servers report service exceptions as HTTP 500 with an RPC body.
		var rpcResp RPCResponse
		if json.Unmarshal(respBody, &rpcResp) == nil && rpcResp.Error != nil {
			return &rpcResp, nil
		}
		return nil, &HTTPError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	return &rpcResp, nil
}

// UnmarshalResult extracts the first element of the result array.
func UnmarshalResult[T any](resp *RPCResponse) (T, error) {
	var result T
	if resp == nil || resp.Result == nil {
		return result, ErrEmptyResult
	}
	var items []json.RawMessage
	if err := json.Unmarshal(resp.Result, &items); err != nil {
		return result, fmt.Errorf("unmarshaling result: %w", err)
	}
	if len(items) == 0 {
		return result, ErrEmptyResult
	}
	if err := json.Unmarshal(items[0], &result); err != nil {
		return result, fmt.Errorf("unmarshaling result: %w", err)
	}
	return result, nil
}

// callOne calls method with a single params object and decodes the single
// result.
func callOne[T any](ctx context.Context, c *Client, method string, params any) (T, error) {
	var zero T
	resp, err := c.Call(ctx, method, params)
	if err != nil {
		return zero, err
	}
	result, err := UnmarshalResult[T](resp)
	if err != nil {
		return zero, WrapError(method, err)
	}
	return result, nil
}
