// Package tools adapts each external assembly tool to the step runner: it
// lays out stage directories, builds argument vectors and parses outputs.
package tools

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/me/mgasm/internal/config"
	"github.com/me/mgasm/internal/logging"
	"github.com/me/mgasm/internal/steprun"
)

// ErrInputNotFound is returned when an adapter is handed a file that does not
// exist.
var ErrInputNotFound = errors.New("input file not found")

// Env is what every adapter needs for one run.
type Env struct {
	Runner     *steprun.Runner
	Tools      config.Tools
	Resources  config.Resources
	OutputDir  string
	Transcript io.Writer // receives tool log dumps; nil discards them
	Logger     *slog.Logger
}

// NewEnv creates an Env writing stage directories under outputDir.
func NewEnv(runner *steprun.Runner, cfg *config.Config, outputDir string, transcript io.Writer, logger *slog.Logger) *Env {
	if logger == nil {
		logger = logging.Discard()
	}
	if transcript == nil {
		transcript = io.Discard
	}
	return &Env{
		Runner:     runner,
		Tools:      cfg.Tools,
		Resources:  cfg.Resources,
		OutputDir:  outputDir,
		Transcript: transcript,
		Logger:     logger.With("component", "tools"),
	}
}

// StageDir creates and returns the directory for stage under the output root.
func (e *Env) StageDir(stage string) (string, error) {
	dir := filepath.Join(e.OutputDir, stage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s directory: %w", stage, err)
	}
	return dir, nil
}

func requireInput(stage, path string) error {
	if !steprun.Exists(path) {
		return fmt.Errorf("%s: %w: %q", stage, ErrInputNotFound, path)
	}
	return nil
}

// dumpFile copies a tool log into the transcript between banner lines. A
// missing file is skipped.
func (e *Env) dumpFile(title, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	w := e.Transcript
	fmt.Fprintf(w, "%s:\n%s\n", title, strings.Repeat("=", len(title)+1))
	if _, err := io.Copy(w, f); err != nil {
		e.Logger.Warn("copy log to transcript", "path", path, "error", err)
	}
	end := "End " + title
	fmt.Fprintf(w, "\n%s\n%s\n\n", strings.Repeat("=", len(end)), end)
}
