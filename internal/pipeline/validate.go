package pipeline

import (
	"strings"

	"github.com/me/mgasm/internal/outputs"
	"github.com/me/mgasm/pkg/model"
)

// Validate checks params and reports every violated rule at once. It has no
// side effects.
func Validate(p model.PipelineParams) error {
	verr := &model.ValidationError{}
	if strings.TrimSpace(p.ReadsRef) == "" {
		verr.Add("reads_upa", "is required")
	}
	if strings.TrimSpace(p.WorkspaceName) == "" {
		verr.Add("workspace_name", "is required")
	}
	if strings.TrimSpace(p.OutputAssemblyName) == "" {
		verr.Add("output_assembly_name", "is required")
	}
	for _, fe := range outputs.Validate(p) {
		verr.Add(fe.Field, fe.Message)
	}
	return verr.OrNil()
}
