package model

import "time"

// Run is the persisted history record of one pipeline invocation.
type Run struct {
	ID          string           `json:"id"`
	State       RunState         `json:"state"`
	Params      PipelineParams   `json:"params"`
	OutputDir   string           `json:"output_dir"`
	Results     *PipelineResults `json:"results,omitempty"`
	Manifest    *UploadManifest  `json:"manifest,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Steps       []StepRecord     `json:"steps,omitempty"`
}

// StepRecord is the persisted history of one executed stage.
type StepRecord struct {
	RunID    string        `json:"run_id"`
	Seq      int           `json:"seq"`
	Step     string        `json:"step"`
	Command  string        `json:"command"`
	Version  string        `json:"version"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration_ns"`
	At       time.Time     `json:"at"`
}

// StoredObject is an entry in the local object catalog.
type StoredObject struct {
	Ref       string            `json:"ref"`
	Kind      string            `json:"kind"`
	Name      string            `json:"name"`
	Workspace string            `json:"workspace"`
	Path      string            `json:"path"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
