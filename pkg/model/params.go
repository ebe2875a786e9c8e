package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flag is a boolean parameter that also accepts the 0/1 integers used by
// narrative-style callers.
type Flag bool

// UnmarshalJSON accepts true/false, 0/1 and their string forms.
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid boolean flag %s", string(data))
	}
	return nil
}

// MarshalJSON writes the flag as a JSON boolean.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// PipelineParams is the upstream invocation record for one assembly run.
type PipelineParams struct {
	ReadsRef           string `json:"reads_upa"`
	WorkspaceName      string `json:"workspace_name"`
	OutputAssemblyName string `json:"output_assembly_name"`
	CleanedReadsName   string `json:"cleaned_reads_name,omitempty"`
	FilteredReadsName  string `json:"filtered_reads_name,omitempty"`
	AlignmentName      string `json:"alignment_name,omitempty"`
	SkipRQCFilter      Flag   `json:"skip_rqcfilter,omitempty"`
	Debug              Flag   `json:"debug,omitempty"`
}

// Options resolves the immutable run options from the parameters.
func (p PipelineParams) Options() PipelineOptions {
	return PipelineOptions{
		SkipQualityFilter: bool(p.SkipRQCFilter),
		Debug:             bool(p.Debug),
		CleanedReadsName:  strings.TrimSpace(p.CleanedReadsName),
		FilteredReadsName: strings.TrimSpace(p.FilteredReadsName),
		AlignmentName:     strings.TrimSpace(p.AlignmentName),
	}
}

// PipelineOptions is the configuration a run resolves from its parameters.
// When SkipQualityFilter is set, FilteredReadsName is empty.
type PipelineOptions struct {
	SkipQualityFilter bool
	Debug             bool
	CleanedReadsName  string
	FilteredReadsName string
	AlignmentName     string
}

// WantsCleanedReads reports whether the corrected reads are persisted.
func (o PipelineOptions) WantsCleanedReads() bool { return o.CleanedReadsName != "" }

// WantsFilteredReads reports whether the filtered reads are persisted.
func (o PipelineOptions) WantsFilteredReads() bool {
	return o.FilteredReadsName != "" && !o.SkipQualityFilter
}

// WantsAlignment reports whether a read alignment is persisted.
func (o PipelineOptions) WantsAlignment() bool { return o.AlignmentName != "" }

// AlignmentSource says which reads object an alignment is built against.
type AlignmentSource string

const (
	AlignmentSourceNone     AlignmentSource = ""
	AlignmentSourceInput    AlignmentSource = "input_reads"
	AlignmentSourceFiltered AlignmentSource = "filtered_reads"
)

// PipelineResults is what the upstream caller gets back from a successful run.
type PipelineResults struct {
	ReportName       string `json:"report_name"`
	ReportRef        string `json:"report_ref"`
	AssemblyRef      string `json:"assembly_upa"`
	CleanedReadsRef  string `json:"cleaned_reads_upa,omitempty"`
	FilteredReadsRef string `json:"filtered_reads_upa,omitempty"`
	AlignmentRef     string `json:"alignment_upa,omitempty"`
}
