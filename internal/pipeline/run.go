package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/me/mgasm/internal/logging"
	"github.com/me/mgasm/internal/outputs"
	"github.com/me/mgasm/internal/report"
	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/internal/tools"
	"github.com/me/mgasm/pkg/model"
)

// Read-length report names within the readlength stage directory.
const (
	PreFilterLengthName = "pre_filter_readlength.txt"
	FilteredLengthName  = "filtered_readlength.txt"
	CorrectedLengthName = "corrected_readlength.txt"
)

// run is the state of one executing pipeline.
type run struct {
	o      *Orchestrator
	rc     *RunContext
	params model.PipelineParams
	record *model.Run
	env    *tools.Env
	logger *slog.Logger
	seq    int
}

func newRun(o *Orchestrator, rc *RunContext, p model.PipelineParams, runLog *logging.RunLog) *run {
	runner := steprun.New(steprun.Config{
		Logger:  runLog.Logger,
		WorkDir: o.cfg.ScratchDir,
		Output:  runLog.Writer(),
	})
	return &run{
		o:      o,
		rc:     rc,
		params: p,
		record: &model.Run{
			ID:        rc.ID,
			State:     model.RunStateValidated,
			Params:    p,
			OutputDir: rc.OutputDir,
			CreatedAt: rc.StartedAt,
			UpdatedAt: rc.StartedAt,
		},
		env:    tools.NewEnv(runner, &o.cfg, rc.OutputDir, runLog.Writer(), runLog.Logger),
		logger: runLog.Logger.With("component", "pipeline"),
	}
}

// advance moves the run to next, which must directly follow the current
// state.
func (r *run) advance(ctx context.Context, next model.RunState) error {
	from := r.record.State
	if !from.CanTransitionTo(next) {
		return &model.InvalidTransitionError{RunID: r.rc.ID, From: from, To: next}
	}
	r.record.State = next
	r.record.UpdatedAt = now()
	if next.IsTerminal() {
		t := r.record.UpdatedAt
		r.record.CompletedAt = &t
	}
	if err := r.o.recorder.UpdateRun(ctx, r.record); err != nil {
		r.logger.Warn("record run state", "state", next, "error", err)
	}
	r.logger.Info("run state changed", "from", from, "to", next)
	return nil
}

// complete records a finished stage and advances to next.
func (r *run) complete(ctx context.Context, step model.StepResult, next model.RunState) error {
	r.seq++
	rec := &model.StepRecord{
		RunID:    r.rc.ID,
		Seq:      r.seq,
		Step:     step.Step,
		Command:  step.Command,
		Version:  step.Version,
		Duration: step.Duration,
		At:       now(),
	}
	if err := r.o.recorder.AddStep(ctx, rec); err != nil {
		r.logger.Warn("record step", "step", step.Step, "error", err)
	}
	return r.advance(ctx, next)
}

// fail records err as the reason the run stopped.
func (r *run) fail(ctx context.Context, err error) {
	r.logger.Error("pipeline run failed", "state", r.record.State, "error", err)
	r.record.Error = err.Error()
	if advErr := r.advance(ctx, model.RunStateFailed); advErr != nil {
		r.logger.Warn("record run failure", "error", advErr)
	}
}

func (r *run) execute(ctx context.Context) (*Outcome, error) {
	p := r.params
	opts := p.Options()
	env := r.env
	res := &model.PipelineResult{OutputDir: r.rc.OutputDir}

	files, err := r.o.services.DownloadReads(ctx, []string{p.ReadsRef})
	if err != nil {
		return nil, fmt.Errorf("fetch reads %s: %w", p.ReadsRef, err)
	}
	reads, ok := files[p.ReadsRef]
	if !ok || reads == "" {
		return nil, fmt.Errorf("fetch reads %s: no file returned", p.ReadsRef)
	}
	res.InputReads = reads
	if err := CheckInputSize(r.o.cfg.Limits, reads); err != nil {
		return nil, err
	}
	if err := r.advance(ctx, model.RunStateReadsFetched); err != nil {
		return nil, err
	}

	if res.PreFilter, err = env.ReadLength(ctx, reads, PreFilterLengthName); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.PreFilter.StepResult, model.RunStateMeasuredInitial); err != nil {
		return nil, err
	}

	if res.Filter, err = env.Filter(ctx, reads, opts.SkipQualityFilter); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.Filter.StepResult, model.RunStateFiltered); err != nil {
		return nil, err
	}

	if res.PostFilter, err = env.ReadLength(ctx, res.Filter.FilteredReads, FilteredLengthName); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.PostFilter.StepResult, model.RunStateMeasuredFilter); err != nil {
		return nil, err
	}

	if res.Correction, err = env.Correct(ctx, res.Filter.FilteredReads, opts.Debug); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.Correction.StepResult, model.RunStateCorrected); err != nil {
		return nil, err
	}

	if res.Clean, err = env.StripSingletons(ctx, res.Correction.CorrectedReads); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.Clean.StepResult, model.RunStateStripped); err != nil {
		return nil, err
	}

	if res.PostCorrected, err = env.ReadLength(ctx, res.Clean.CleanedReads, CorrectedLengthName); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.PostCorrected.StepResult, model.RunStateMeasuredClean); err != nil {
		return nil, err
	}

	if err := CheckCapacity(r.o.cfg.Limits, r.o.cfg.Resources, res.PostCorrected.Stats); err != nil {
		return nil, err
	}

	if res.Assembly, err = env.Assemble(ctx, res.Clean.CleanedReads, res.PostCorrected); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.Assembly.StepResult, model.RunStateAssembled); err != nil {
		return nil, err
	}

	if res.Polish, err = env.Polish(ctx, res.Assembly); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.Polish.StepResult, model.RunStatePolished); err != nil {
		return nil, err
	}

	if res.Stats, err = env.Summarize(ctx, res.Polish.Scaffolds); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.Stats.StepResult, model.RunStateSummarized); err != nil {
		return nil, err
	}

	// Coverage reflects the filtered reads; correction may drop bases.
	if res.Mapping, err = env.Map(ctx, res.Filter.FilteredReads, res.Polish.Contigs); err != nil {
		return nil, err
	}
	if err := r.complete(ctx, res.Mapping.StepResult, model.RunStateMapped); err != nil {
		return nil, err
	}

	return r.finish(ctx, res)
}

// finish stores the selected outputs, publishes the report and marks the
// run done.
func (r *run) finish(ctx context.Context, res *model.PipelineResult) (*Outcome, error) {
	svc := r.o.services
	selector := outputs.NewSelector(svc, svc, svc, r.logger)
	manifest, err := selector.Persist(ctx, r.params, res)
	if err != nil {
		return nil, err
	}
	r.record.Manifest = manifest

	reporter := report.New(svc, r.rc.ScratchDir, r.logger)
	pub, err := reporter.Make(ctx, report.Input{
		Workspace: r.params.WorkspaceName,
		Result:    res,
		Manifest:  manifest,
	})
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		RunID:     r.rc.ID,
		OutputDir: r.rc.OutputDir,
		Results:   outputs.Results(manifest, pub.Info),
		Manifest:  manifest,
		Pipeline:  res,
		ReportDir: pub.Dir,
	}

	if r.o.archiver != nil {
		loc, err := r.o.archiver.Mirror(ctx, r.rc.ID, pub.ArchivePath)
		if err != nil {
			r.logger.Warn("mirror report archive", "path", pub.ArchivePath, "error", err)
		} else {
			outcome.Archive = loc
		}
	}

	results := outcome.Results
	r.record.Results = &results
	if err := r.advance(ctx, model.RunStateDone); err != nil {
		return nil, err
	}
	r.logger.Info("pipeline run complete",
		"assembly", results.AssemblyRef,
		"report", results.ReportRef,
		"objects", manifest.Len(),
	)
	return outcome, nil
}

// IsToolFailure reports whether err came from an external tool, either a
// nonzero exit or a missing output.
func IsToolFailure(err error) bool {
	var invErr *steprun.InvocationError
	var outErr *steprun.OutputError
	return errors.As(err, &invErr) || errors.As(err, &outErr)
}
