package tools

import (
	"context"
	"path/filepath"

	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/pkg/model"
)

// Scaffold polisher output names within the createAGPfile stage directory.
const (
	PolishedScaffoldsName = "assembly.scaffolds.fasta"
	PolishedContigsName   = "assembly.contigs.fasta"
	AGPName               = "assembly.agp"
	LegendName            = "assembly.scaffolds.legend"
)

// PolishArgs builds the fungalrelease.sh arguments.
func (e *Env) PolishArgs(scaffolds, dir string) []string {
	return []string{
		"-Xmx" + e.Resources.AGPHeap,
		"in=" + scaffolds,
		"out=" + filepath.Join(dir, PolishedScaffoldsName),
		"outc=" + filepath.Join(dir, PolishedContigsName),
		"agp=" + filepath.Join(dir, AGPName),
		"legend=" + filepath.Join(dir, LegendName),
		"mincontig=200",
		"minscaf=200",
		"sortscaffolds=t",
		"sortcontigs=t",
		"overwrite=t",
	}
}

// MissingScaffoldsError explains an assembly without scaffolds, telling a
// partial assembly (contigs only) apart from a failed one.
func MissingScaffoldsError(asm model.AssemblyResult) error {
	expected := filepath.Join(asm.OutputDir, "scaffolds.fasta")
	detail := "SPAdes did not generate a scaffolds file.\n"
	if asm.Contigs != "" && steprun.Exists(asm.Contigs) {
		detail += "SPAdes did produce contigs, so the reads were only partially assembled; they may have been over-filtered. " +
			"The corrected reads info logged before SPAdes ran has details."
	} else {
		detail += "SPAdes also did not produce a contigs file, so it either finished incorrectly or the reads could not be assembled."
	}
	return &steprun.OutputError{
		Step:    model.StageScaffoldPolish,
		Missing: []string{expected},
		Detail:  detail + "\nUnable to continue running pipeline.",
	}
}

// Polish cleans and sorts the scaffolds and writes the AGP description.
func (e *Env) Polish(ctx context.Context, asm model.AssemblyResult) (model.PolishResult, error) {
	if asm.Scaffolds == "" || !steprun.Exists(asm.Scaffolds) {
		return model.PolishResult{}, MissingScaffoldsError(asm)
	}
	dir, err := e.StageDir(model.StageScaffoldPolish)
	if err != nil {
		return model.PolishResult{}, err
	}
	res := model.PolishResult{
		Scaffolds: filepath.Join(dir, PolishedScaffoldsName),
		Contigs:   filepath.Join(dir, PolishedContigsName),
		AGP:       filepath.Join(dir, AGPName),
		Legend:    filepath.Join(dir, LegendName),
	}

	step, err := e.Runner.Invoke(ctx, steprun.Spec{
		Step: model.StageScaffoldPolish,
		Tool: e.Tools.FungalRelease,
		Args: e.PolishArgs(asm.Scaffolds, dir),
		Outputs: []steprun.Output{
			{Role: model.RoleScaffolds, Path: res.Scaffolds},
			{Role: model.RoleContigs, Path: res.Contigs},
			{Role: model.RoleAGP, Path: res.AGP},
			{Role: model.RoleLegend, Path: res.Legend},
		},
	})
	if err != nil {
		return model.PolishResult{}, err
	}
	res.StepResult = step
	return res, nil
}
