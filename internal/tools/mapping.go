package tools

import (
	"context"
	"path/filepath"

	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/pkg/model"
)

// Coverage mapper output names within the readMappingPairs directory.
const (
	MapFileName      = "pairedMapped.sam.gz"
	CoverageFileName = "covstats.txt"
	MapStatsName     = "bbmap_stats.txt"
)

// BBMapArgs builds the bbmap.sh arguments. The mapping summary bbmap prints
// on stderr is kept as the stats file.
func (e *Env) BBMapArgs(reads, ref, dir string) []string {
	return []string{
		"-Xmx" + e.Resources.BBMapHeap,
		"nodisk=true",
		"interleaved=true",
		"ambiguous=random",
		"in=" + reads,
		"ref=" + ref,
		"out=" + filepath.Join(dir, MapFileName),
		"covstats=" + filepath.Join(dir, CoverageFileName),
		"2>", filepath.Join(dir, MapStatsName),
	}
}

// Map aligns reads against ref and collects per-contig coverage. Callers
// pass the filtered reads, not the corrected ones.
func (e *Env) Map(ctx context.Context, reads, ref string) (model.MappingResult, error) {
	for _, in := range []string{reads, ref} {
		if err := requireInput(model.StageCoverageMapper, in); err != nil {
			return model.MappingResult{}, err
		}
	}
	dir, err := e.StageDir(model.StageCoverageMapper)
	if err != nil {
		return model.MappingResult{}, err
	}
	res := model.MappingResult{
		MapFile:      filepath.Join(dir, MapFileName),
		CoverageFile: filepath.Join(dir, CoverageFileName),
		StatsFile:    filepath.Join(dir, MapStatsName),
	}

	step, err := e.Runner.Invoke(ctx, steprun.Spec{
		Step:  model.StageCoverageMapper,
		Tool:  e.Tools.BBMap,
		Args:  e.BBMapArgs(reads, ref, dir),
		Shell: true,
		Outputs: []steprun.Output{
			{Role: model.RoleMapFile, Path: res.MapFile},
			{Role: model.RoleCoverageFile, Path: res.CoverageFile},
			{Role: model.RoleMapStats, Path: res.StatsFile},
		},
	})
	if err != nil {
		return model.MappingResult{}, err
	}
	res.StepResult = step
	return res, nil
}
