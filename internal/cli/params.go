package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/mgasm/pkg/model"
)

// paramFlags binds the pipeline parameters shared by run and submit.
// Values given on the command line override those from --params.
type paramFlags struct {
	file   string
	params model.PipelineParams
	skip   bool
	debug  bool
}

func (f *paramFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.file, "params", "p", "", "JSON file with pipeline parameters")
	fs.StringVar(&f.params.ReadsRef, "reads", "", "Reads object reference")
	fs.StringVarP(&f.params.WorkspaceName, "workspace", "w", "", "Workspace for the saved objects")
	fs.StringVarP(&f.params.OutputAssemblyName, "assembly-name", "o", "", "Name of the output assembly")
	fs.StringVar(&f.params.CleanedReadsName, "cleaned-reads-name", "", "Save the corrected reads under this name")
	fs.StringVar(&f.params.FilteredReadsName, "filtered-reads-name", "", "Save the filtered reads under this name")
	fs.StringVar(&f.params.AlignmentName, "alignment-name", "", "Save a read alignment under this name")
	fs.BoolVar(&f.skip, "skip-rqcfilter", false, "Skip the quality filter stage")
	fs.BoolVar(&f.debug, "debug-mode", false, "Pipeline debug mode (bfc runs without the genome size flag)")
}

func (f *paramFlags) resolve(cmd *cobra.Command) (model.PipelineParams, error) {
	var p model.PipelineParams
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return p, fmt.Errorf("read params: %w", err)
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("parse params %s: %w", f.file, err)
		}
	}

	fs := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("reads", &p.ReadsRef, f.params.ReadsRef)
	set("workspace", &p.WorkspaceName, f.params.WorkspaceName)
	set("assembly-name", &p.OutputAssemblyName, f.params.OutputAssemblyName)
	set("cleaned-reads-name", &p.CleanedReadsName, f.params.CleanedReadsName)
	set("filtered-reads-name", &p.FilteredReadsName, f.params.FilteredReadsName)
	set("alignment-name", &p.AlignmentName, f.params.AlignmentName)
	if fs.Changed("skip-rqcfilter") {
		p.SkipRQCFilter = model.Flag(f.skip)
	}
	if fs.Changed("debug-mode") {
		p.Debug = model.Flag(f.debug)
	}
	return p, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRun writes the detail view shared by "runs show" and "status".
func printRun(w io.Writer, run *model.Run) {
	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "  State:    %s\n", run.State)
	fmt.Fprintf(w, "  Reads:    %s\n", run.Params.ReadsRef)
	fmt.Fprintf(w, "  Assembly: %s/%s\n", run.Params.WorkspaceName, run.Params.OutputAssemblyName)
	fmt.Fprintf(w, "  Output:   %s\n", run.OutputDir)

	if len(run.Steps) > 0 {
		fmt.Fprintln(w, "  Steps:")
		for _, s := range run.Steps {
			fmt.Fprintf(w, "    %2d. %-14s exit=%d  %-10s %s\n",
				s.Seq, s.Step, s.ExitCode, s.Duration.Round(time.Millisecond), s.Version)
		}
	}

	if r := run.Results; r != nil {
		fmt.Fprintln(w, "  Results:")
		fmt.Fprintf(w, "    assembly:       %s\n", r.AssemblyRef)
		fmt.Fprintf(w, "    report:         %s (%s)\n", r.ReportRef, r.ReportName)
		if r.CleanedReadsRef != "" {
			fmt.Fprintf(w, "    cleaned reads:  %s\n", r.CleanedReadsRef)
		}
		if r.FilteredReadsRef != "" {
			fmt.Fprintf(w, "    filtered reads: %s\n", r.FilteredReadsRef)
		}
		if r.AlignmentRef != "" {
			fmt.Fprintf(w, "    alignment:      %s\n", r.AlignmentRef)
		}
	}
	if run.Error != "" {
		fmt.Fprintf(w, "  Error:    %s\n", run.Error)
	}

	fmt.Fprintf(w, "  Created:  %s (%s)\n", run.CreatedAt.Format(time.RFC3339), humanize.Time(run.CreatedAt))
	if run.CompletedAt != nil {
		fmt.Fprintf(w, "  Completed: %s\n", run.CompletedAt.Format(time.RFC3339))
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
