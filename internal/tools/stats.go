package tools

import (
	"context"
	"path/filepath"

	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/pkg/model"
)

// Assembly statistics output names within the assembly_stats directory.
const (
	StatsTSVName    = "assembly.scaffolds.fasta.stats.tsv"
	StatsTextName   = "assembly.scaffolds.fasta.stats.txt"
	StatsStderrName = "stderr.out"
)

// StatsTSVArgs builds the first stats.sh pass, tab-separated output.
func StatsTSVArgs(input, tsv, stderr string) []string {
	return []string{"format=6", "in=" + input, "1>", tsv, "2>", stderr}
}

// StatsTextArgs builds the second stats.sh pass, human-readable output. It
// appends to the stderr file of the first pass.
func StatsTextArgs(input, text, stderr string) []string {
	return []string{"in=" + input, "1>", text, "2>>", stderr}
}

// Summarize runs stats.sh twice over the assembly.
func (e *Env) Summarize(ctx context.Context, assembly string) (model.StatsResult, error) {
	if err := requireInput(model.StageStats, assembly); err != nil {
		return model.StatsResult{}, err
	}
	dir, err := e.StageDir(model.StageStats)
	if err != nil {
		return model.StatsResult{}, err
	}
	res := model.StatsResult{
		TSV:    filepath.Join(dir, StatsTSVName),
		Text:   filepath.Join(dir, StatsTextName),
		Stderr: filepath.Join(dir, StatsStderrName),
	}

	first, err := e.Runner.Invoke(ctx, steprun.Spec{
		Step:    model.StageStats,
		Tool:    e.Tools.Stats,
		Args:    StatsTSVArgs(assembly, res.TSV, res.Stderr),
		Shell:   true,
		Outputs: []steprun.Output{{Role: model.RoleStatsTSV, Path: res.TSV}},
	})
	if err != nil {
		return model.StatsResult{}, err
	}
	second, err := e.Runner.Invoke(ctx, steprun.Spec{
		Step:  model.StageStats,
		Tool:  e.Tools.Stats,
		Args:  StatsTextArgs(assembly, res.Text, res.Stderr),
		Shell: true,
		Outputs: []steprun.Output{
			{Role: model.RoleStatsTXT, Path: res.Text},
			{Role: model.RoleStatsErr, Path: res.Stderr},
		},
	})
	if err != nil {
		return model.StatsResult{}, err
	}

	for role, path := range second.Outputs {
		first.Outputs[role] = path
	}
	first.Command += "\n" + second.Command
	first.Duration += second.Duration
	res.StepResult = first
	return res, nil
}
