package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/pkg/model"
)

// CandidateKmers are the k-mer sizes offered to SPAdes, ascending.
var CandidateKmers = []int{33, 55, 77, 99, 127}

// ErrNoKmers is returned when the reads are shorter than every candidate
// k-mer size.
var ErrNoKmers = errors.New("no k-mer size fits the average read length")

// assemblerLogs are copied into the transcript after SPAdes exits.
var assemblerLogs = []string{"warnings.log", "params.txt", "spades.log"}

// SelectKmers returns the candidate k-mer sizes not longer than avg.
func SelectKmers(avg float64) []int {
	var kmers []int
	for _, k := range CandidateKmers {
		if float64(k) <= avg {
			kmers = append(kmers, k)
		}
	}
	return kmers
}

// JoinKmers formats k-mer sizes as SPAdes expects them.
func JoinKmers(kmers []int) string {
	parts := make([]string, len(kmers))
	for i, k := range kmers {
		parts[i] = strconv.Itoa(k)
	}
	return strings.Join(parts, ",")
}

// SpadesArgs builds the metaSPAdes arguments for interleaved input.
func (e *Env) SpadesArgs(input, outDir string, kmers []int) []string {
	return []string{
		"--only-assembler",
		"-k", JoinKmers(kmers),
		"--meta",
		"-t", strconv.Itoa(e.Resources.SpadesThreads),
		"-m", strconv.Itoa(e.Resources.SpadesMemoryGB),
		"-o", outDir,
		"--12", input,
	}
}

// Assemble runs SPAdes on the cleaned reads. The k-mer sizes come from the
// average length in readsInfo. Scaffolds and contigs are each optional, but
// a run that produces neither fails.
func (e *Env) Assemble(ctx context.Context, input string, readsInfo model.ReadLengthResult) (model.AssemblyResult, error) {
	if err := requireInput(model.StageAssembler, input); err != nil {
		return model.AssemblyResult{}, err
	}
	if readsInfo.Stats.Avg == nil {
		return model.AssemblyResult{}, fmt.Errorf("%s: average read length not reported by readlength", model.StageAssembler)
	}
	avg := *readsInfo.Stats.Avg
	kmers := SelectKmers(avg)
	if len(kmers) == 0 {
		return model.AssemblyResult{}, fmt.Errorf("%s: %w (average length %.1f, smallest k %d)",
			model.StageAssembler, ErrNoKmers, avg, CandidateKmers[0])
	}

	stageDir, err := e.StageDir(model.StageAssembler)
	if err != nil {
		return model.AssemblyResult{}, err
	}
	outDir := filepath.Join(stageDir, "spades3")

	e.dumpFile("SPAdes input reads info", readsInfo.Stats.OutputFile)

	res := e.Runner.Execute(ctx, model.StageAssembler, e.Tools.Spades.Path, e.SpadesArgs(input, outDir, kmers), false)

	for _, name := range assemblerLogs {
		e.dumpFile("SPAdes log file "+name, filepath.Join(outDir, name))
	}

	if res.ExitCode != 0 {
		cause := steprun.ErrNonZeroExit
		if res.StartErr != nil {
			cause = res.StartErr
		}
		return model.AssemblyResult{}, &steprun.InvocationError{
			Step:     model.StageAssembler,
			Command:  res.Command,
			ExitCode: res.ExitCode,
			Err:      cause,
		}
	}

	scaffolds := filepath.Join(outDir, "scaffolds.fasta")
	contigs := filepath.Join(outDir, "contigs.fasta")
	outputs, _ := steprun.CollectOutputs([]steprun.Output{
		{Role: model.RoleOutputDirectory, Path: outDir, Optional: true},
		{Role: model.RoleRunLog, Path: filepath.Join(outDir, "spades.log"), Optional: true},
		{Role: model.RoleParamsLog, Path: filepath.Join(outDir, "params.txt"), Optional: true},
		{Role: model.RoleWarningsLog, Path: filepath.Join(outDir, "warnings.log"), Optional: true},
		{Role: model.RoleScaffolds, Path: scaffolds, Optional: true},
		{Role: model.RoleContigs, Path: contigs, Optional: true},
	})
	if outputs[model.RoleScaffolds] == "" && outputs[model.RoleContigs] == "" {
		return model.AssemblyResult{}, &steprun.OutputError{
			Step:    model.StageAssembler,
			Missing: []string{scaffolds, contigs},
			Detail:  "SPAdes produced no scaffolds or contigs; the reads could not be assembled. The SPAdes logs above have details.",
		}
	}

	return model.AssemblyResult{
		StepResult: model.StepResult{
			Step:     model.StageAssembler,
			Command:  res.Command,
			Version:  e.Tools.Spades.Version,
			Outputs:  outputs,
			Duration: res.Duration,
		},
		OutputDir:   outDir,
		RunLog:      outputs[model.RoleRunLog],
		ParamsLog:   outputs[model.RoleParamsLog],
		WarningsLog: outputs[model.RoleWarningsLog],
		Scaffolds:   outputs[model.RoleScaffolds],
		Contigs:     outputs[model.RoleContigs],
		Kmers:       kmers,
	}, nil
}
