package steprun

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/mgasm/internal/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	return New(Config{Logger: newTestLogger(), WorkDir: dir, Output: io.Discard}), dir
}

// writeScript creates an executable shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExecute_Success(t *testing.T) {
	r, _ := newTestRunner(t)

	res := r.Execute(context.Background(), "echo", "echo", []string{"hello", "world"}, false)
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Command != "echo hello world" {
		t.Errorf("Command = %q, want %q", res.Command, "echo hello world")
	}
	if res.StartErr != nil {
		t.Errorf("StartErr = %v, want nil", res.StartErr)
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	r, dir := newTestRunner(t)
	tool := writeScript(t, dir, "fail.sh", "exit 3")

	res := r.Execute(context.Background(), "fail", tool, nil, false)
	if res.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.StartErr != nil {
		t.Errorf("StartErr = %v, want nil", res.StartErr)
	}
}

func TestExecute_ShellRedirection(t *testing.T) {
	r, dir := newTestRunner(t)
	out := filepath.Join(dir, "out.txt")

	res := r.Execute(context.Background(), "echo", "echo", []string{"abc", "|", "tr", "a-z", "A-Z", ">", out}, true)
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", res.ExitCode)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "ABC" {
		t.Errorf("output = %q, want %q", got, "ABC")
	}
}

func TestExecute_ShellQuotesPaths(t *testing.T) {
	r, dir := newTestRunner(t)
	sub := filepath.Join(dir, "scratch dir; $HOME")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(sub, "it's in.txt")
	if err := os.WriteFile(in, []byte("abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(sub, "out (1).txt")

	res := r.Execute(context.Background(), "cat", "cat", []string{in, "|", "tr", "a-z", "A-Z", "1>|", out}, true)
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", res.ExitCode)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "ABC" {
		t.Errorf("output = %q, want %q", got, "ABC")
	}
}

func TestShellLine(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"plain words", []string{"bfc", "-k", "21", "in=/a/b.fq"}, "bfc -k 21 in=/a/b.fq"},
		{"operators kept", []string{"seqtk", "dropse", "x", "|", "pigz", ">", "y", "2>>", "z"}, "seqtk dropse x | pigz > y 2>> z"},
		{"space", []string{"cat", "/tmp/a b"}, "cat '/tmp/a b'"},
		{"metacharacters", []string{"cat", "a;rm", "$HOME", "*.fq"}, "cat 'a;rm' '$HOME' '*.fq'"},
		{"single quote", []string{"cat", "it's"}, `cat 'it'\''s'`},
		{"empty", []string{"echo", ""}, "echo ''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShellLine(tt.in); got != tt.want {
				t.Errorf("ShellLine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExecute_NoShellPassesArgsLiterally(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	r := New(Config{Logger: newTestLogger(), WorkDir: dir, Output: &buf})

	res := r.Execute(context.Background(), "echo", "echo", []string{"a", ">", "b"}, false)
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", res.ExitCode)
	}
	if got := strings.TrimSpace(buf.String()); got != "a > b" {
		t.Errorf("stdout = %q, want %q", got, "a > b")
	}
	if Exists(filepath.Join(dir, "b")) {
		t.Error("redirection target created without shell mode")
	}
}

func TestExecute_WorkDir(t *testing.T) {
	r, dir := newTestRunner(t)

	res := r.Execute(context.Background(), "touch", "touch", []string{"marker"}, false)
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !Exists(filepath.Join(dir, "marker")) {
		t.Error("tool did not run in the runner work dir")
	}
}

func TestExecute_MissingBinary(t *testing.T) {
	r, _ := newTestRunner(t)

	res := r.Execute(context.Background(), "ghost", "/nonexistent/tool-binary", []string{"x"}, false)
	if res.ExitCode == 0 {
		t.Fatal("ExitCode = 0, want nonzero for a missing binary")
	}
	if res.StartErr == nil {
		t.Error("StartErr = nil, want start failure")
	}
}

func TestExecute_EmptyCommand(t *testing.T) {
	r, _ := newTestRunner(t)

	res := r.Execute(context.Background(), "empty", "", nil, false)
	if !errors.Is(res.StartErr, ErrEmptyCommand) {
		t.Fatalf("StartErr = %v, want ErrEmptyCommand", res.StartErr)
	}
}

func TestInvoke_RecordsOutputs(t *testing.T) {
	r, dir := newTestRunner(t)
	tool := writeScript(t, dir, "produce.sh", `echo data > "$1"`)
	want := filepath.Join(dir, "result.txt")

	step, err := r.Invoke(context.Background(), Spec{
		Step: "produce",
		Tool: config.Tool{Path: tool, Version: "produce 1.0"},
		Args: []string{want},
		Outputs: []Output{
			{Role: "result", Path: want},
			{Role: "extra", Path: filepath.Join(dir, "extra.txt"), Optional: true},
		},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if step.Version != "produce 1.0" {
		t.Errorf("Version = %q", step.Version)
	}
	if got, ok := step.Output("result"); !ok || got != want {
		t.Errorf("Output(result) = %q, %v", got, ok)
	}
	if _, ok := step.Output("extra"); ok {
		t.Error("absent optional output was recorded")
	}
}

func TestInvoke_NonZeroExit(t *testing.T) {
	r, dir := newTestRunner(t)
	tool := writeScript(t, dir, "fail.sh", "exit 2")

	_, err := r.Invoke(context.Background(), Spec{Step: "fail", Tool: config.Tool{Path: tool}})
	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("err = %v, want *InvocationError", err)
	}
	if invErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", invErr.ExitCode)
	}
	if !errors.Is(err, ErrNonZeroExit) {
		t.Error("error does not wrap ErrNonZeroExit")
	}
	if !strings.Contains(err.Error(), tool) {
		t.Errorf("error %q does not name the command", err.Error())
	}
}

func TestInvoke_MissingMandatoryOutput(t *testing.T) {
	r, dir := newTestRunner(t)
	missing := filepath.Join(dir, "never.txt")

	_, err := r.Invoke(context.Background(), Spec{
		Step:    "noop",
		Tool:    config.Tool{Path: "true"},
		Outputs: []Output{{Role: "result", Path: missing}},
	})
	var outErr *OutputError
	if !errors.As(err, &outErr) {
		t.Fatalf("err = %v, want *OutputError", err)
	}
	if len(outErr.Missing) != 1 || outErr.Missing[0] != missing {
		t.Errorf("Missing = %v", outErr.Missing)
	}
	if !errors.Is(err, ErrMissingOutput) {
		t.Error("error does not wrap ErrMissingOutput")
	}
}
