package kbase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/me/mgasm/pkg/model"
)

// fakeCallback answers SDK calls from a method -> result table and records
// every request it saw.
type fakeCallback struct {
	mu       sync.Mutex
	results  map[string]string
	requests []RPCRequest
	params   map[string]map[string]any
}

func newFakeCallback(t *testing.T, results map[string]string) (*fakeCallback, *Client) {
	t.Helper()
	f := &fakeCallback{results: results, params: map[string]map[string]any{}}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)

	config := DefaultConfig(server.URL).WithToken("test-token")
	return f, NewClient(config, nil)
}

func (f *fakeCallback) serve(w http.ResponseWriter, r *http.Request) {
	var req RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	if len(req.Params) == 1 {
		if p, ok := req.Params[0].(map[string]any); ok {
			f.params[req.Method] = p
		}
	}
	result, ok := f.results[req.Method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	resp := RPCResponse{ID: req.ID, Version: "1.1"}
	if ok {
		resp.Result = json.RawMessage(result)
	} else {
		resp.Error = &RPCError{Name: "JSONRPCError", Code: ErrCodeMethodNotFound, Message: "Method not found"}
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeCallback) param(method string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params[method]
}

func (f *fakeCallback) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requests {
		out = append(out, r.Method)
	}
	return out
}

func TestClient_Call(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "test-token" {
			t.Errorf("expected test-token authorization")
		}
		var req RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Version != "1.1" {
			t.Errorf("expected version 1.1, got %s", req.Version)
		}
		if req.ID == "" {
			t.Error("expected a request id")
		}
		json.NewEncoder(w).Encode(RPCResponse{ID: req.ID, Version: "1.1", Result: json.RawMessage(`["ok"]`)})
	}))
	defer server.Close()

	client := NewClient(DefaultConfig(server.URL).WithToken("test-token"), nil)
	resp, err := client.Call(context.Background(), "Service.ping")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	got, err := UnmarshalResult[string](resp)
	if err != nil {
		t.Fatalf("UnmarshalResult() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("result = %q, want ok", got)
	}
}

func TestClient_CallError(t *testing.T) {
	_, client := newFakeCallback(t, nil)

	_, err := client.Call(context.Background(), "Service.nonexistent")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsNotFoundError(err) {
		t.Errorf("expected not found error, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("method not found should not be retryable")
	}
}

func TestClient_Retry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req RPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(RPCResponse{ID: req.ID, Version: "1.1", Result: json.RawMessage(`["success"]`)})
	}))
	defer server.Close()

	config := DefaultConfig(server.URL).WithRetries(3, time.Millisecond)
	client := NewClient(config, nil)

	resp, err := client.Call(context.Background(), "Service.test")
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if got, _ := UnmarshalResult[string](resp); got != "success" {
		t.Errorf("expected 'success', got %s", got)
	}
}

func TestClient_RetriesExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(DefaultConfig(server.URL).WithRetries(2, time.Millisecond), nil)
	_, err := client.Call(context.Background(), "Service.test")
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected wrapped HTTP 503, got %v", err)
	}
}

func TestClient_NoCallbackURL(t *testing.T) {
	client := NewClient(DefaultConfig(""), nil)
	_, err := client.Call(context.Background(), "Service.test")
	if !errors.Is(err, ErrNoCallbackURL) {
		t.Errorf("expected ErrNoCallbackURL, got %v", err)
	}
}

func TestUnmarshalResult(t *testing.T) {
	tests := []struct {
		name    string
		result  string
		want    string
		wantErr bool
	}{
		{name: "single element", result: `["a"]`, want: "a"},
		{name: "first of many", result: `["a","b"]`, want: "a"},
		{name: "empty array", result: `[]`, wantErr: true},
		{name: "not an array", result: `"a"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalResult[string](&RPCResponse{Result: json.RawMessage(tt.result)})
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalResult() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("UnmarshalResult() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDownloadReads(t *testing.T) {
	fake, client := newFakeCallback(t, map[string]string{
		MethodDownloadReads: `[{"files":{"1/2/3":{"files":{"fwd":"/kb/scratch/reads.fq","type":"interleaved"}}}}]`,
	})

	paths, err := client.DownloadReads(context.Background(), []string{"1/2/3"})
	if err != nil {
		t.Fatalf("DownloadReads() error = %v", err)
	}
	if paths["1/2/3"] != "/kb/scratch/reads.fq" {
		t.Errorf("paths = %v", paths)
	}
	p := fake.param(MethodDownloadReads)
	if p["interleaved"] != "true" {
		t.Errorf("interleaved = %v, want true", p["interleaved"])
	}

	_, err = client.DownloadReads(context.Background(), []string{"9/9/9"})
	if err == nil {
		t.Fatal("expected error for a reads ref with no file")
	}
}

func TestUploads(t *testing.T) {
	fake, client := newFakeCallback(t, map[string]string{
		MethodUploadReads:     `[{"obj_ref":"4/5/1"}]`,
		MethodSaveAssembly:    `["4/6/1"]`,
		MethodUploadAlignment: `[{"obj_ref":"4/7/1"}]`,
	})
	ctx := context.Background()

	ref, err := client.UploadReads(ctx, model.ReadsUpload{Path: "/tmp/r.fq.gz", Name: "clean", Workspace: "ws", SourceRef: "1/2/3"})
	if err != nil || ref != "4/5/1" {
		t.Fatalf("UploadReads() = %q, %v", ref, err)
	}
	if p := fake.param(MethodUploadReads); p["wsname"] != "ws" || p["source_reads_ref"] != "1/2/3" || p["interleaved"] != float64(1) {
		t.Errorf("upload_reads params = %v", p)
	}

	ref, err = client.SaveAssembly(ctx, model.AssemblyUpload{Path: "/tmp/a.fa", Name: "asm", Workspace: "ws"})
	if err != nil || ref != "4/6/1" {
		t.Fatalf("SaveAssembly() = %q, %v", ref, err)
	}
	if p := fake.param(MethodSaveAssembly); p["assembly_name"] != "asm" {
		t.Errorf("save_assembly params = %v", p)
	}

	ref, err = client.SaveAlignment(ctx, model.AlignmentUpload{
		Path: "/tmp/m.sam.gz", Name: "aln", Workspace: "ws", ReadsRef: "4/5/1", AssemblyRef: "4/6/1",
	})
	if err != nil || ref != "4/7/1" {
		t.Fatalf("SaveAlignment() = %q, %v", ref, err)
	}
	p := fake.param(MethodUploadAlignment)
	if p["destination_ref"] != "ws/aln" {
		t.Errorf("destination_ref = %v, want ws/aln", p["destination_ref"])
	}
	if p["read_library_ref"] != "4/5/1" || p["assembly_or_genome_ref"] != "4/6/1" {
		t.Errorf("upload_alignment params = %v", p)
	}
}

func TestUploadMissingRef(t *testing.T) {
	_, client := newFakeCallback(t, map[string]string{
		MethodUploadReads: `[{}]`,
	})
	if _, err := client.UploadReads(context.Background(), model.ReadsUpload{Path: "x"}); err == nil {
		t.Fatal("expected error when no reference is returned")
	}
}

func TestPublishReport(t *testing.T) {
	fake, client := newFakeCallback(t, map[string]string{
		MethodFileToShock:  `[{"shock_id":"shock-1","size":42}]`,
		MethodCreateReport: `[{"name":"mg_assembly_report_x","ref":"4/8/1"}]`,
	})

	info, err := client.PublishReport(context.Background(), model.ReportRequest{
		Dir:         "/scratch/report_x",
		HTMLFile:    "index.html",
		ArchiveFile: "pipeline_output.zip",
		ObjectName:  "mg_assembly_report_x",
		Workspace:   "ws",
		Message:     "JGI metagenome assembly report",
		Objects:     []model.ReportObject{{Ref: "4/6/1", Description: "Assembled contigs"}},
	})
	if err != nil {
		t.Fatalf("PublishReport() error = %v", err)
	}
	if info.Ref != "4/8/1" || info.Name != "mg_assembly_report_x" {
		t.Errorf("info = %+v", info)
	}

	methods := fake.methods()
	if len(methods) != 2 || methods[0] != MethodFileToShock || methods[1] != MethodCreateReport {
		t.Errorf("methods = %v", methods)
	}
	if p := fake.param(MethodFileToShock); p["pack"] != "zip" || p["file_path"] != "/scratch/report_x" {
		t.Errorf("file_to_shock params = %v", p)
	}

	p := fake.param(MethodCreateReport)
	links, _ := p["html_links"].([]any)
	if len(links) != 1 {
		t.Fatalf("html_links = %v", p["html_links"])
	}
	link := links[0].(map[string]any)
	if link["shock_id"] != "shock-1" || link["name"] != "index.html" {
		t.Errorf("html link = %v", link)
	}
	objects, _ := p["objects_created"].([]any)
	if len(objects) != 1 {
		t.Errorf("objects_created = %v", p["objects_created"])
	}
	if p["workspace_name"] != "ws" {
		t.Errorf("workspace_name = %v", p["workspace_name"])
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"auth failed", &Error{Op: "x", Code: ErrCodeAuthFailed}, true},
		{"not authorized rpc", &RPCError{Code: ErrCodeNotAuthorized}, true},
		{"server error", &Error{Op: "x", Code: ErrCodeServerError}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 500", &HTTPError{StatusCode: 500}, true},
		{"http 429", &HTTPError{StatusCode: 429}, true},
		{"http 404", &HTTPError{StatusCode: 404}, false},
		{"server error", &Error{Op: "x", Code: ErrCodeServerError}, true},
		{"auth failed", &Error{Op: "x", Code: ErrCodeAuthFailed}, false},
		{"internal", &RPCError{Code: ErrCodeInternalError}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
