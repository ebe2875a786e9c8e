package steprun

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	ErrNonZeroExit   = errors.New("command exited with non-zero status")
	ErrMissingOutput = errors.New("expected output not produced")
	ErrEmptyCommand  = errors.New("empty command")
)

// InvocationError reports a tool that exited nonzero or could not be started.
type InvocationError struct {
	Step     string
	Command  string
	ExitCode int
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)\ncommand: %s", e.Step, e.Err, e.ExitCode, e.Command)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// OutputError reports a tool that exited zero without producing a mandatory
// output.
type OutputError struct {
	Step    string
	Missing []string
	Detail  string
}

func (e *OutputError) Error() string {
	msg := fmt.Sprintf("%s: %v: %s", e.Step, ErrMissingOutput, strings.Join(e.Missing, ", "))
	if e.Detail != "" {
		msg += "\n" + e.Detail
	}
	return msg
}

func (e *OutputError) Unwrap() error {
	return ErrMissingOutput
}
