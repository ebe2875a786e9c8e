package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// NewLogger creates a configured slog.Logger.
//
// level: slog level (DEBUG, INFO, WARN, ERROR)
// format: "text" (human-readable) or "json" (structured)
//
// Output goes to stderr by default (stdout is reserved for program output).
func NewLogger(level slog.Level, format string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to the given writer.
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// RunLog is a logger bound to one pipeline run. Records go to the base
// writer and to pipeline.log in the run output directory.
type RunLog struct {
	Logger *slog.Logger
	Path   string
	w      io.Writer
	file   *os.File
}

// RunLogName is the file name of the per-run log.
const RunLogName = "pipeline.log"

// NewRunLog opens <outputDir>/pipeline.log and returns a logger that tees to
// it and to base. The caller must Close the RunLog.
func NewRunLog(level slog.Level, format string, base io.Writer, outputDir, runID string) (*RunLog, error) {
	path := filepath.Join(outputDir, RunLogName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	if base == nil {
		base = os.Stderr
	}
	w := io.MultiWriter(base, f)
	logger := NewLoggerWithWriter(level, format, w).With("run_id", runID)
	return &RunLog{Logger: logger, Path: path, w: w, file: f}, nil
}

// Writer returns the raw stream behind the logger, for tool output and log
// transcripts that are not structured records.
func (r *RunLog) Writer() io.Writer {
	return r.w
}

// Close flushes and closes the run log file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// ParseLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
