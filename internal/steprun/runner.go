// Package steprun runs external pipeline tools as synchronous subprocesses.
package steprun

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/me/mgasm/internal/logging"
)

// Shell is the interpreter used for shell-mode commands.
const Shell = "/bin/sh"

// Runner executes one external tool at a time in a fixed working directory.
type Runner struct {
	logger  *slog.Logger
	workDir string
	output  io.Writer
}

// Config holds runner configuration.
type Config struct {
	Logger  *slog.Logger
	WorkDir string    // Directory tools run in (default: current directory)
	Output  io.Writer // Receives tool stdout/stderr not redirected by the command (default: stderr)
}

// New creates a Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	return &Runner{
		logger:  logger.With("component", "steprun"),
		workDir: cfg.WorkDir,
		output:  out,
	}
}

// Result is the outcome of one execution. ExitCode is -1 when the process
// could not be started, in which case StartErr is set.
type Result struct {
	ExitCode int
	Command  string
	Duration time.Duration
	StartErr error
}

// Execute runs toolPath with argv and waits for it to exit. With useShell the
// vector is joined with spaces and interpreted by /bin/sh, so pipes and
// redirections in argv take effect. Elements other than those operators are
// quoted first. Otherwise each element is passed to the process unchanged. A nonzero exit is reported in the Result, never as an
// error; the caller decides what a failure means.
func (r *Runner) Execute(ctx context.Context, name, toolPath string, argv []string, useShell bool) Result {
	command := append([]string{toolPath}, argv...)
	cmdStr := strings.Join(command, " ")

	r.logger.Info("running pipeline step", "step", name, "work_dir", r.workDir, "command", cmdStr, "shell", useShell)

	if toolPath == "" {
		r.logger.Error("pipeline step has no command", "step", name)
		return Result{ExitCode: -1, Command: cmdStr, StartErr: ErrEmptyCommand}
	}

	var cmd *exec.Cmd
	if useShell {
		cmd = exec.CommandContext(ctx, Shell, "-c", ShellLine(command))
	} else {
		cmd = exec.CommandContext(ctx, command[0], command[1:]...)
	}
	cmd.Dir = r.workDir
	cmd.Stdout = r.output
	cmd.Stderr = r.output

	start := time.Now()
	err := cmd.Run()
	res := Result{Command: cmdStr, Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.StartErr = err
		}
	}

	if res.ExitCode == 0 {
		r.logger.Info("successfully ran step", "step", name, "duration", res.Duration.Round(time.Millisecond).String())
	} else {
		r.logger.Error("pipeline step returned a nonzero exit code",
			"step", name,
			"command", cmdStr,
			"exit_code", res.ExitCode,
			"start_error", res.StartErr,
		)
	}
	return res
}

// shellOperators pass through ShellLine unquoted.
var shellOperators = map[string]bool{
	"|": true, "<": true, ">": true, ">>": true, ">|": true,
	"1>": true, "1>|": true, "2>": true, "2>>": true, "2>&1": true,
	"&&": true, "||": true, ";": true,
}

// ShellLine joins command into a /bin/sh command line. Operators are kept as
// they are; any other word holding characters the shell would interpret is
// single quoted.
func ShellLine(command []string) string {
	words := make([]string, len(command))
	for i, w := range command {
		if shellOperators[w] {
			words[i] = w
		} else {
			words[i] = shellQuote(w)
		}
	}
	return strings.Join(words, " ")
}

func shellQuote(w string) string {
	if w == "" {
		return "''"
	}
	safe := true
	for _, c := range w {
		if !isShellSafe(c) {
			safe = false
			break
		}
	}
	if safe {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}

func isShellSafe(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.ContainsRune("-_./=:,+%@", c)
}
