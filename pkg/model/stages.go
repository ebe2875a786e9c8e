package model

import "time"

// Stage names. Each stage writes into a directory of the same name under the
// run output root; report bundling relies on these names.
const (
	StageReadLength     = "readlength"
	StageQualityFilter  = "rqcfilter"
	StageReadCorrector  = "bfc"
	StageAssembler      = "spades"
	StageScaffoldPolish = "createAGPfile"
	StageStats          = "assembly_stats"
	StageCoverageMapper = "readMappingPairs"
)

// Output roles used in StepResult.Outputs.
const (
	RoleReadLengthReport = "readlength_report"
	RoleOutputDirectory  = "output_directory"
	RoleFilteredReads    = "filtered_fastq_file"
	RoleRunLog           = "run_log"
	RoleCorrectedReads   = "corrected_reads"
	RoleCleanedReads     = "cleaned_reads"
	RoleParamsLog        = "params_log"
	RoleWarningsLog      = "warnings_log"
	RoleScaffolds        = "scaffolds_file"
	RoleContigs          = "contigs_file"
	RoleAGP              = "agp_file"
	RoleLegend           = "legend_file"
	RoleStatsTSV         = "stats_tsv"
	RoleStatsTXT         = "stats_txt"
	RoleStatsErr         = "stats_err"
	RoleMapFile          = "map_file"
	RoleCoverageFile     = "coverage_file"
	RoleMapStats         = "stats_file"
)

// StepResult is the record any adapter returns: the files it produced keyed by
// role, the literal command that ran and the tool version tag. It is not
// modified after the adapter returns it.
type StepResult struct {
	Step     string            `json:"step"`
	Command  string            `json:"command"`
	Version  string            `json:"version"`
	Outputs  map[string]string `json:"outputs"`
	Duration time.Duration     `json:"duration_ns"`
}

// Output returns the path recorded for role and whether it was recorded.
func (r StepResult) Output(role string) (string, bool) {
	p, ok := r.Outputs[role]
	return p, ok && p != ""
}

// ReadStats is the parsed summary of a reads file. A nil field means the tool
// output did not contain the corresponding key.
type ReadStats struct {
	Count      *int64   `json:"count,omitempty"`
	Bases      *int64   `json:"bases,omitempty"`
	Max        *int64   `json:"max,omitempty"`
	Min        *int64   `json:"min,omitempty"`
	Avg        *float64 `json:"avg,omitempty"`
	Median     *int64   `json:"median,omitempty"`
	Mode       *int64   `json:"mode,omitempty"`
	StdDev     *float64 `json:"std_dev,omitempty"`
	OutputFile string   `json:"output_file"`
}

// CountOrZero returns the read count, or 0 when it was not reported.
func (s ReadStats) CountOrZero() int64 {
	if s.Count == nil {
		return 0
	}
	return *s.Count
}

// ReadLengthResult is a read-length measurement of one reads file.
type ReadLengthResult struct {
	StepResult
	Stats ReadStats `json:"stats"`
}

// FilterResult is the quality filter output. It has the same shape whether
// the filter ran or was skipped.
type FilterResult struct {
	StepResult
	OutputDirectory string `json:"output_directory"`
	FilteredReads   string `json:"filtered_fastq_file"`
	RunLog          string `json:"run_log"`
	Skipped         bool   `json:"skipped"`
}

// CorrectionResult is the raw read-corrector output.
type CorrectionResult struct {
	StepResult
	CorrectedReads string `json:"corrected_reads"`
}

// CleanResult is the corrected reads with singletons removed, compressed.
type CleanResult struct {
	StepResult
	CleanedReads string `json:"cleaned_reads"`
}

// AssemblyResult is the assembler output. Scaffolds and Contigs are empty when
// the assembler did not produce them.
type AssemblyResult struct {
	StepResult
	OutputDir   string `json:"output_dir"`
	RunLog      string `json:"run_log"`
	ParamsLog   string `json:"params_log"`
	WarningsLog string `json:"warnings_log,omitempty"`
	Scaffolds   string `json:"scaffolds_file,omitempty"`
	Contigs     string `json:"contigs_file,omitempty"`
	Kmers       []int  `json:"kmers"`
}

// PolishResult is the cleaned-up scaffolds with their AGP description.
type PolishResult struct {
	StepResult
	Scaffolds string `json:"scaffolds_file"`
	Contigs   string `json:"contigs_file"`
	AGP       string `json:"agp_file"`
	Legend    string `json:"legend_file"`
}

// StatsResult is the assembly statistics summary.
type StatsResult struct {
	StepResult
	TSV    string `json:"stats_tsv"`
	Text   string `json:"stats_txt"`
	Stderr string `json:"stats_err"`
}

// MappingResult is the coverage mapping of filtered reads onto the assembly.
type MappingResult struct {
	StepResult
	MapFile      string `json:"map_file"`
	CoverageFile string `json:"coverage_file"`
	StatsFile    string `json:"stats_file"`
}

// PipelineResult aggregates every stage output of a completed run along with
// the three read-length snapshots.
type PipelineResult struct {
	OutputDir     string           `json:"output_dir"`
	InputReads    string           `json:"input_reads"`
	PreFilter     ReadLengthResult `json:"pre_filter"`
	Filter        FilterResult     `json:"filter"`
	PostFilter    ReadLengthResult `json:"post_filter"`
	Correction    CorrectionResult `json:"correction"`
	Clean         CleanResult      `json:"clean"`
	PostCorrected ReadLengthResult `json:"post_correction"`
	Assembly      AssemblyResult   `json:"assembly"`
	Polish        PolishResult     `json:"polish"`
	Stats         StatsResult      `json:"stats"`
	Mapping       MappingResult    `json:"mapping"`
}

// Steps returns the step records in execution order.
func (r *PipelineResult) Steps() []StepResult {
	return []StepResult{
		r.PreFilter.StepResult,
		r.Filter.StepResult,
		r.PostFilter.StepResult,
		r.Correction.StepResult,
		r.Clean.StepResult,
		r.PostCorrected.StepResult,
		r.Assembly.StepResult,
		r.Polish.StepResult,
		r.Stats.StepResult,
		r.Mapping.StepResult,
	}
}

// OutputRole names an object persisted after a run.
type OutputRole string

const (
	OutputAssembly      OutputRole = "assembly"
	OutputCleanedReads  OutputRole = "cleaned_reads"
	OutputFilteredReads OutputRole = "filtered_reads"
	OutputAlignment     OutputRole = "alignment"
)

// ManifestEntry is one persisted object.
type ManifestEntry struct {
	Role        OutputRole `json:"role"`
	Ref         string     `json:"ref"`
	Description string     `json:"description"`
}

// UploadManifest records the objects persisted for a run, in upload order.
type UploadManifest struct {
	Entries []ManifestEntry `json:"entries"`
}

// Add appends an entry.
func (m *UploadManifest) Add(role OutputRole, ref, description string) {
	m.Entries = append(m.Entries, ManifestEntry{Role: role, Ref: ref, Description: description})
}

// Ref returns the object reference stored for role.
func (m *UploadManifest) Ref(role OutputRole) (string, bool) {
	for _, e := range m.Entries {
		if e.Role == role {
			return e.Ref, true
		}
	}
	return "", false
}

// Len returns the number of persisted objects.
func (m *UploadManifest) Len() int { return len(m.Entries) }
