package steprun

import (
	"context"
	"fmt"
	"os"

	"github.com/me/mgasm/internal/config"
	"github.com/me/mgasm/pkg/model"
)

// Output declares a file an invocation is expected to produce.
type Output struct {
	Role     string
	Path     string
	Optional bool // recorded only if present; absence is not an error
}

// Spec is a declarative description of one tool invocation.
type Spec struct {
	Step    string
	Tool    config.Tool
	Args    []string
	Shell   bool
	Outputs []Output
}

// Invoke executes spec and checks its declared outputs. A nonzero exit returns
// an *InvocationError; a missing mandatory output returns an *OutputError.
func (r *Runner) Invoke(ctx context.Context, spec Spec) (model.StepResult, error) {
	res := r.Execute(ctx, spec.Step, spec.Tool.Path, spec.Args, spec.Shell)
	if res.ExitCode != 0 {
		cause := ErrNonZeroExit
		if res.StartErr != nil {
			cause = fmt.Errorf("start %s: %w", spec.Tool.Path, res.StartErr)
		}
		return model.StepResult{}, &InvocationError{
			Step:     spec.Step,
			Command:  res.Command,
			ExitCode: res.ExitCode,
			Err:      cause,
		}
	}

	outputs, missing := CollectOutputs(spec.Outputs)
	if len(missing) > 0 {
		return model.StepResult{}, &OutputError{Step: spec.Step, Missing: missing}
	}

	return model.StepResult{
		Step:     spec.Step,
		Command:  res.Command,
		Version:  spec.Tool.Version,
		Outputs:  outputs,
		Duration: res.Duration,
	}, nil
}

// CollectOutputs maps each existing declared output by role and lists the
// mandatory outputs that do not exist.
func CollectOutputs(declared []Output) (map[string]string, []string) {
	outputs := make(map[string]string, len(declared))
	var missing []string
	for _, o := range declared {
		if Exists(o.Path) {
			outputs[o.Role] = o.Path
			continue
		}
		if !o.Optional {
			missing = append(missing, o.Path)
		}
	}
	return outputs, missing
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
