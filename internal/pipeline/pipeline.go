// Package pipeline runs the metagenome assembly stages in their fixed order
// and turns a successful run into stored objects and a published report.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/me/mgasm/internal/config"
	"github.com/me/mgasm/internal/logging"
	"github.com/me/mgasm/internal/outputs"
	"github.com/me/mgasm/internal/report"
	"github.com/me/mgasm/pkg/model"
)

// ReadsFetcher resolves reads references to local interleaved FASTQ files,
// keyed by reference.
type ReadsFetcher interface {
	DownloadReads(ctx context.Context, refs []string) (map[string]string, error)
}

// Services are the external collaborators of a run.
type Services interface {
	ReadsFetcher
	outputs.ReadsService
	outputs.AssemblyService
	outputs.AlignmentService
	report.Publisher
}

// Recorder keeps the history of runs. Recording failures are logged and do
// not fail the run.
type Recorder interface {
	CreateRun(ctx context.Context, run *model.Run) error
	UpdateRun(ctx context.Context, run *model.Run) error
	AddStep(ctx context.Context, step *model.StepRecord) error
}

// Archiver mirrors the report archive to long-term storage and returns
// its location.
type Archiver interface {
	Mirror(ctx context.Context, runID, path string) (string, error)
}

// Config holds orchestrator dependencies. Recorder and Archiver are
// optional. LogOutput is the base stream of every run log and defaults to
// stderr.
type Config struct {
	Settings  config.Config
	Services  Services
	Recorder  Recorder
	Archiver  Archiver
	Logger    *slog.Logger
	LogOutput io.Writer
}

// Orchestrator runs pipelines. It is safe for concurrent use; each run gets
// its own output directory and log.
type Orchestrator struct {
	cfg       config.Config
	services  Services
	recorder  Recorder
	archiver  Archiver
	logger    *slog.Logger
	logOutput io.Writer
}

// New creates an Orchestrator.
func New(c Config) *Orchestrator {
	logger := c.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	recorder := c.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	out := c.LogOutput
	if out == nil {
		out = os.Stderr
	}
	return &Orchestrator{
		cfg:       c.Settings,
		services:  c.Services,
		recorder:  recorder,
		archiver:  c.Archiver,
		logger:    logger.With("component", "pipeline"),
		logOutput: out,
	}
}

// Outcome is the result of a successful run.
type Outcome struct {
	RunID     string                `json:"run_id"`
	OutputDir string                `json:"output_dir"`
	Results   model.PipelineResults `json:"results"`
	Manifest  *model.UploadManifest `json:"manifest"`
	Pipeline  *model.PipelineResult `json:"pipeline"`
	ReportDir string                `json:"report_dir"`
	Archive   string                `json:"archive,omitempty"`
}

// Run validates p, then executes the whole pipeline synchronously. Invalid
// parameters return a *model.ValidationError before anything touches the
// file system.
func (o *Orchestrator) Run(ctx context.Context, p model.PipelineParams) (*Outcome, error) {
	rc, err := o.Prepare(ctx, p)
	if err != nil {
		return nil, err
	}
	return o.Execute(ctx, rc, p)
}

// Prepare validates p, creates the run output directory and records the
// run as validated. Execute continues from there. A run is refused while
// any configured tool cannot be resolved.
func (o *Orchestrator) Prepare(ctx context.Context, p model.PipelineParams) (*RunContext, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	if err := o.cfg.Tools.Validate(); err != nil {
		return nil, err
	}
	rc, err := NewRunContext(o.cfg.ScratchDir)
	if err != nil {
		return nil, err
	}

	run := &model.Run{
		ID:        rc.ID,
		State:     model.RunStateValidated,
		Params:    p,
		OutputDir: rc.OutputDir,
		CreatedAt: rc.StartedAt,
		UpdatedAt: rc.StartedAt,
	}
	if err := o.recorder.CreateRun(ctx, run); err != nil {
		o.logger.Warn("record run", "run_id", rc.ID, "error", err)
	}
	o.logger.Info("run prepared", "run_id", rc.ID, "output_dir", rc.OutputDir)
	return rc, nil
}

// Execute runs every stage of a prepared run. Any failure stops the run;
// no partial result is returned.
func (o *Orchestrator) Execute(ctx context.Context, rc *RunContext, p model.PipelineParams) (*Outcome, error) {
	runLog, err := logging.NewRunLog(logging.ParseLevel(o.cfg.LogLevel), o.cfg.LogFormat, o.logOutput, rc.OutputDir, rc.ID)
	if err != nil {
		return nil, err
	}
	defer runLog.Close()

	r := newRun(o, rc, p, runLog)
	outcome, err := r.execute(ctx)
	if err != nil {
		r.fail(ctx, err)
		return nil, err
	}
	return outcome, nil
}

type nopRecorder struct{}

func (nopRecorder) CreateRun(context.Context, *model.Run) error      { return nil }
func (nopRecorder) UpdateRun(context.Context, *model.Run) error      { return nil }
func (nopRecorder) AddStep(context.Context, *model.StepRecord) error { return nil }

func now() time.Time { return time.Now().UTC() }
