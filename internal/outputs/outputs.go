// Package outputs decides which run artifacts become stored objects and
// uploads them.
package outputs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/me/mgasm/internal/logging"
	"github.com/me/mgasm/pkg/model"
)

// Object descriptions shown in the report.
const (
	DescAssembly      = "Assembled contigs"
	DescCleanedReads  = "Reads after error correction and singleton removal"
	DescFilteredReads = "Reads after quality filtering"
	DescAlignment     = "Reads aligned to the assembled contigs"
)

// ReadsService stores reads files.
type ReadsService interface {
	UploadReads(ctx context.Context, req model.ReadsUpload) (string, error)
}

// AssemblyService stores assemblies.
type AssemblyService interface {
	SaveAssembly(ctx context.Context, req model.AssemblyUpload) (string, error)
}

// AlignmentService stores read alignments.
type AlignmentService interface {
	SaveAlignment(ctx context.Context, req model.AlignmentUpload) (string, error)
}

// Validate checks the output option combinations and returns one field error
// per violated rule. An alignment is built against the input reads when
// filtering is skipped and against the stored filtered reads otherwise, so
// each case needs its source to be available.
func Validate(p model.PipelineParams) []model.FieldError {
	opts := p.Options()
	var errs []model.FieldError
	if opts.SkipQualityFilter && opts.FilteredReadsName != "" {
		errs = append(errs, model.FieldError{
			Field:   "filtered_reads_name",
			Message: "must be empty when skip_rqcfilter is set; skipped filtering produces no filtered reads",
		})
	}
	if opts.WantsAlignment() {
		if opts.SkipQualityFilter && strings.TrimSpace(p.ReadsRef) == "" {
			errs = append(errs, model.FieldError{
				Field:   "alignment_name",
				Message: "requires reads_upa when skip_rqcfilter is set",
			})
		}
		if !opts.SkipQualityFilter && opts.FilteredReadsName == "" {
			errs = append(errs, model.FieldError{
				Field:   "alignment_name",
				Message: "requires filtered_reads_name unless skip_rqcfilter is set",
			})
		}
	}
	return errs
}

// AlignmentSourceFor returns which reads an alignment will reference.
func AlignmentSourceFor(opts model.PipelineOptions) model.AlignmentSource {
	switch {
	case !opts.WantsAlignment():
		return model.AlignmentSourceNone
	case opts.SkipQualityFilter:
		return model.AlignmentSourceInput
	default:
		return model.AlignmentSourceFiltered
	}
}

// Plan lists the objects a run with opts will store, in upload order.
func Plan(opts model.PipelineOptions) []model.OutputRole {
	roles := []model.OutputRole{model.OutputAssembly}
	if opts.WantsCleanedReads() {
		roles = append(roles, model.OutputCleanedReads)
	}
	if opts.WantsFilteredReads() {
		roles = append(roles, model.OutputFilteredReads)
	}
	if opts.WantsAlignment() {
		roles = append(roles, model.OutputAlignment)
	}
	return roles
}

// Selector stores the artifacts of a successful run.
type Selector struct {
	reads      ReadsService
	assemblies AssemblyService
	alignments AlignmentService
	logger     *slog.Logger
}

// NewSelector creates a Selector.
func NewSelector(reads ReadsService, assemblies AssemblyService, alignments AlignmentService, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Selector{
		reads:      reads,
		assemblies: assemblies,
		alignments: alignments,
		logger:     logger.With("component", "outputs"),
	}
}

// Persist stores the polished contigs and every optional artifact params
// asks for, returning the manifest of stored objects. The first failed
// upload stops the sequence.
func (s *Selector) Persist(ctx context.Context, p model.PipelineParams, res *model.PipelineResult) (*model.UploadManifest, error) {
	opts := p.Options()
	manifest := &model.UploadManifest{}

	for _, role := range Plan(opts) {
		ref, desc, err := s.store(ctx, role, p, opts, res, manifest)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", role, err)
		}
		manifest.Add(role, ref, desc)
		s.logger.Info("stored output object", "role", role, "ref", ref)
	}
	return manifest, nil
}

func (s *Selector) store(ctx context.Context, role model.OutputRole, p model.PipelineParams,
	opts model.PipelineOptions, res *model.PipelineResult, manifest *model.UploadManifest) (string, string, error) {
	switch role {
	case model.OutputAssembly:
		ref, err := s.assemblies.SaveAssembly(ctx, model.AssemblyUpload{
			Path:      res.Polish.Contigs,
			Name:      p.OutputAssemblyName,
			Workspace: p.WorkspaceName,
		})
		return ref, DescAssembly, err

	case model.OutputCleanedReads:
		ref, err := s.reads.UploadReads(ctx, model.ReadsUpload{
			Path:      res.Clean.CleanedReads,
			Name:      opts.CleanedReadsName,
			Workspace: p.WorkspaceName,
			SourceRef: p.ReadsRef,
		})
		return ref, DescCleanedReads, err

	case model.OutputFilteredReads:
		ref, err := s.reads.UploadReads(ctx, model.ReadsUpload{
			Path:      res.Filter.FilteredReads,
			Name:      opts.FilteredReadsName,
			Workspace: p.WorkspaceName,
			SourceRef: p.ReadsRef,
		})
		return ref, DescFilteredReads, err

	case model.OutputAlignment:
		assemblyRef, _ := manifest.Ref(model.OutputAssembly)
		readsRef := p.ReadsRef
		if AlignmentSourceFor(opts) == model.AlignmentSourceFiltered {
			var ok bool
			if readsRef, ok = manifest.Ref(model.OutputFilteredReads); !ok {
				return "", "", errors.New("filtered reads were not stored")
			}
		}
		ref, err := s.alignments.SaveAlignment(ctx, model.AlignmentUpload{
			Path:        res.Mapping.MapFile,
			Name:        opts.AlignmentName,
			Workspace:   p.WorkspaceName,
			ReadsRef:    readsRef,
			AssemblyRef: assemblyRef,
		})
		return ref, DescAlignment, err
	}
	return "", "", fmt.Errorf("unknown output role %q", role)
}

// Results builds the caller-facing result record.
func Results(manifest *model.UploadManifest, report model.ReportInfo) model.PipelineResults {
	r := model.PipelineResults{ReportName: report.Name, ReportRef: report.Ref}
	r.AssemblyRef, _ = manifest.Ref(model.OutputAssembly)
	r.CleanedReadsRef, _ = manifest.Ref(model.OutputCleanedReads)
	r.FilteredReadsRef, _ = manifest.Ref(model.OutputFilteredReads)
	r.AlignmentRef, _ = manifest.Ref(model.OutputAlignment)
	return r
}
