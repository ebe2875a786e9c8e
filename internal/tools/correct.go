package tools

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/pkg/model"
)

// Read corrector output names within the bfc stage directory.
const (
	CorrectedName = "bfc_output.fastq"
	CleanedName   = "input.corr.fastq.gz"
)

// BFCArgs builds the bfc arguments. Debug runs drop the genome size flag so
// small inputs fit in local memory.
func (e *Env) BFCArgs(input, output string, debug bool) []string {
	args := []string{"-1", "-k", "21", "-t", strconv.Itoa(e.Resources.BFCThreads)}
	if !debug && e.Resources.BFCGenomeSize != "" {
		args = append(args, "-s", e.Resources.BFCGenomeSize)
	}
	return append(args, input, ">", output)
}

// Correct runs the read corrector over the filtered reads.
func (e *Env) Correct(ctx context.Context, filtered string, debug bool) (model.CorrectionResult, error) {
	if err := requireInput(model.StageReadCorrector, filtered); err != nil {
		return model.CorrectionResult{}, err
	}
	dir, err := e.StageDir(model.StageReadCorrector)
	if err != nil {
		return model.CorrectionResult{}, err
	}
	out := filepath.Join(dir, CorrectedName)

	step, err := e.Runner.Invoke(ctx, steprun.Spec{
		Step:    model.StageReadCorrector,
		Tool:    e.Tools.BFC,
		Args:    e.BFCArgs(filtered, out, debug),
		Shell:   true,
		Outputs: []steprun.Output{{Role: model.RoleCorrectedReads, Path: out}},
	})
	if err != nil {
		return model.CorrectionResult{}, err
	}
	return model.CorrectionResult{StepResult: step, CorrectedReads: out}, nil
}

// SeqtkArgs builds the seqtk arguments: drop singletons and pipe the rest
// through pigz.
func (e *Env) SeqtkArgs(input, output string) []string {
	return []string{
		"dropse", input,
		"|", e.Tools.Pigz.Path, "-c", "-", "-p", strconv.Itoa(e.Resources.PigzThreads), "-2",
		">", output,
	}
}

// StripSingletons removes unpaired reads from the corrector output and
// compresses the result. Its output is the assembler input.
func (e *Env) StripSingletons(ctx context.Context, corrected string) (model.CleanResult, error) {
	const stage = "seqtk"
	if err := requireInput(stage, corrected); err != nil {
		return model.CleanResult{}, err
	}
	dir, err := e.StageDir(model.StageReadCorrector)
	if err != nil {
		return model.CleanResult{}, err
	}
	out := filepath.Join(dir, CleanedName)

	step, err := e.Runner.Invoke(ctx, steprun.Spec{
		Step:    stage,
		Tool:    e.Tools.Seqtk,
		Args:    e.SeqtkArgs(corrected, out),
		Shell:   true,
		Outputs: []steprun.Output{{Role: model.RoleCleanedReads, Path: out}},
	})
	if err != nil {
		return model.CleanResult{}, err
	}
	return model.CleanResult{StepResult: step, CleanedReads: out}, nil
}
