package report

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/internal/tools"
	"github.com/me/mgasm/pkg/model"
)

// ErrMissingInput is returned when a report cannot be built because a
// required statistics file, reads snapshot or workspace is missing.
var ErrMissingInput = errors.New("missing report input")

// Input is everything a report is built from.
type Input struct {
	Workspace string
	Result    *model.PipelineResult
	Manifest  *model.UploadManifest
}

// Metrics are the figures derived for the report.
type Metrics struct {
	PreFilterReads   int64
	PreFilterBases   int64
	FilteredReads    int64
	CorrectedReads   int64
	FilteredPercent  int64
	CorrectedPercent int64
	Alignment        AlignmentSummary
	MappedPercent    int64
	M50              Threshold
	M90              Threshold
}

// CheckInput reports every missing required input at once.
func CheckInput(in Input) error {
	var missing []string
	if strings.TrimSpace(in.Workspace) == "" {
		missing = append(missing, "workspace name")
	}
	if in.Result == nil {
		missing = append(missing, "pipeline result")
		return fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(missing, ", "))
	}

	r := in.Result
	files := []struct{ name, path string }{
		{"bbmap_stats", r.Mapping.StatsFile},
		{"covstats", r.Mapping.CoverageFile},
		{"assembly_stats", r.Stats.Text},
		{"assembly_tsv", r.Stats.TSV},
		{"rqcfilter_log", r.Filter.RunLog},
	}
	for _, f := range files {
		if !steprun.Exists(f.path) {
			missing = append(missing, f.name+" file")
		}
	}
	snapshots := []struct {
		name  string
		stats model.ReadStats
	}{
		{"pre_filter", r.PreFilter.Stats},
		{"filtered", r.PostFilter.Stats},
		{"corrected", r.PostCorrected.Stats},
	}
	for _, s := range snapshots {
		if s.stats.Count == nil {
			missing = append(missing, s.name+" reads info")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(missing, ", "))
	}
	return nil
}

// ComputeMetrics derives retention percentages and alignment statistics.
// Parse problems are carried in the result, not returned.
func ComputeMetrics(r *model.PipelineResult) Metrics {
	m := Metrics{
		PreFilterReads: r.PreFilter.Stats.CountOrZero(),
		FilteredReads:  r.PostFilter.Stats.CountOrZero(),
		CorrectedReads: r.PostCorrected.Stats.CountOrZero(),
	}
	if r.PreFilter.Stats.Bases != nil {
		m.PreFilterBases = *r.PreFilter.Stats.Bases
	}
	m.FilteredPercent = Percent(m.FilteredReads, m.PreFilterReads)
	m.CorrectedPercent = Percent(m.CorrectedReads, m.PreFilterReads)

	m.Alignment = ParseAlignmentSummaryFile(r.Mapping.StatsFile)
	m.MappedPercent = Percent(m.Alignment.MappedReads, m.Alignment.InputReads)
	if m.Alignment.Error == "" {
		m.M50, m.M90 = ComputeM50M90File(r.Mapping.CoverageFile, m.Alignment.InputReads)
	}
	return m
}

// Body assembles the plain-text report.
func Body(r *model.PipelineResult, m Metrics) (string, error) {
	assemblyStats, err := os.ReadFile(r.Stats.Text)
	if err != nil {
		return "", fmt.Errorf("read assembly stats: %w", err)
	}

	var b strings.Builder
	b.WriteString("JGI Metagenome Assembly Report\n")
	b.WriteString("==============================\n\n")

	b.WriteString("Read processing\n---------------\n")
	fmt.Fprintf(&b, "Input reads: %s reads (%s bases)\n", humanize.Comma(m.PreFilterReads), humanize.Comma(m.PreFilterBases))
	if r.Filter.Skipped {
		fmt.Fprintf(&b, "Quality filtering was skipped; %s reads (%d%% of input) passed to correction.\n",
			humanize.Comma(m.FilteredReads), m.FilteredPercent)
	} else {
		fmt.Fprintf(&b, "Quality filtering kept %s reads (%d%% of input).\n", humanize.Comma(m.FilteredReads), m.FilteredPercent)
	}
	fmt.Fprintf(&b, "Read correction and singleton removal kept %s reads (%d%% of input).\n\n",
		humanize.Comma(m.CorrectedReads), m.CorrectedPercent)

	b.WriteString("Assembly statistics\n-------------------\n")
	b.Write(assemblyStats)
	if len(assemblyStats) > 0 && assemblyStats[len(assemblyStats)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	b.WriteString("Read mapping\n------------\n")
	if m.Alignment.Error != "" {
		fmt.Fprintf(&b, "Error: %s.\n", m.Alignment.Error)
	} else {
		fmt.Fprintf(&b, "%s of %s filtered reads (%d%%) mapped back to the assembly.\n",
			humanize.Comma(m.Alignment.MappedReads), humanize.Comma(m.Alignment.InputReads), m.MappedPercent)
	}
	fmt.Fprintf(&b, "m50: %s\nm90: %s\n\n", m.M50, m.M90)

	writeMethods(&b, r)
	return b.String(), nil
}

func writeMethods(b *strings.Builder, r *model.PipelineResult) {
	b.WriteString("Methods\n-------\n")
	b.WriteString("Reads were processed with the JGI metagenome assembly workflow.\n\n")

	steps := []struct {
		title string
		step  model.StepResult
		skip  bool
	}{
		{"Quality filtering with RQCFilter", r.Filter.StepResult, r.Filter.Skipped},
		{"Read error correction with BFC", r.Correction.StepResult, false},
		{"Singleton removal with seqtk", r.Clean.StepResult, false},
		{"Assembly with metaSPAdes (k = " + tools.JoinKmers(r.Assembly.Kmers) + ")", r.Assembly.StepResult, false},
		{"Scaffold cleanup and AGP creation with fungalrelease", r.Polish.StepResult, false},
		{"Assembly statistics with stats", r.Stats.StepResult, false},
		{"Read mapping with BBMap", r.Mapping.StepResult, false},
	}
	n := 0
	for _, s := range steps {
		if s.skip {
			continue
		}
		n++
		fmt.Fprintf(b, "%d. %s", n, s.title)
		if s.step.Version != "" {
			fmt.Fprintf(b, " [%s]", s.step.Version)
		}
		fmt.Fprintf(b, "\n   %s\n", strings.ReplaceAll(s.step.Command, "\n", "\n   "))
	}

	b.WriteString("\nCitations\n")
	b.WriteString("BBTools: Bushnell B. BBMap. sourceforge.net/projects/bbmap/\n")
	b.WriteString("BFC: Li H. BFC: correcting Illumina sequencing errors. Bioinformatics 31(17):2885-2887 (2015).\n")
	b.WriteString("seqtk: Li H. https://github.com/lh3/seqtk\n")
	b.WriteString("metaSPAdes: Nurk S, Meleshko D, Korobeynikov A, Pevzner PA. Genome Research 27(5):824-834 (2017).\n")
}
