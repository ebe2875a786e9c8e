package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RunContext identifies one pipeline execution and owns its output
// directory. The directory is left on disk when the run ends.
type RunContext struct {
	ID         string
	ScratchDir string
	OutputDir  string
	StartedAt  time.Time
}

// NewRunContext creates a run with a fresh output directory under scratch.
// The directory name combines the start time with a random id, so
// concurrent runs never share one.
func NewRunContext(scratch string) (*RunContext, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	dir := filepath.Join(scratch, fmt.Sprintf("mgasm_%d_%s", now.UnixMilli(), id[:8]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run output directory: %w", err)
	}
	return &RunContext{ID: id, ScratchDir: scratch, OutputDir: dir, StartedAt: now}, nil
}
