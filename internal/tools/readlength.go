package tools

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/pkg/model"
)

// ReadLengthArgs builds the readlength.sh arguments. The report goes to
// stdout, so the invocation runs in shell mode.
func ReadLengthArgs(input, output string) []string {
	return []string{"in=" + input, "1>|", output}
}

// ReadLength measures input and writes the report as outputName under the
// readlength stage directory.
func (e *Env) ReadLength(ctx context.Context, input, outputName string) (model.ReadLengthResult, error) {
	if err := requireInput(model.StageReadLength, input); err != nil {
		return model.ReadLengthResult{}, err
	}
	dir, err := e.StageDir(model.StageReadLength)
	if err != nil {
		return model.ReadLengthResult{}, err
	}
	out := filepath.Join(dir, outputName)

	step, err := e.Runner.Invoke(ctx, steprun.Spec{
		Step:    model.StageReadLength,
		Tool:    e.Tools.ReadLength,
		Args:    ReadLengthArgs(input, out),
		Shell:   true,
		Outputs: []steprun.Output{{Role: model.RoleReadLengthReport, Path: out}},
	})
	if err != nil {
		return model.ReadLengthResult{}, err
	}

	stats, err := ParseReadLengthFile(out)
	if err != nil {
		return model.ReadLengthResult{}, fmt.Errorf("%s: %w", model.StageReadLength, err)
	}
	return model.ReadLengthResult{StepResult: step, Stats: stats}, nil
}

// ParseReadLengthFile parses a readlength.sh report on disk.
func ParseReadLengthFile(path string) (model.ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.ReadStats{}, fmt.Errorf("open read length report: %w", err)
	}
	defer f.Close()

	stats, err := ParseReadLength(f)
	if err != nil {
		return model.ReadStats{}, err
	}
	stats.OutputFile = path
	return stats, nil
}

// ParseReadLength reads the "#Key:<tab>value" header lines of a readlength.sh
// report. Unknown keys are ignored and absent keys leave nil fields.
func ParseReadLength(r io.Reader) (model.ReadStats, error) {
	var stats model.ReadStats
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		key, value := fields[0], fields[1]

		var err error
		switch key {
		case "#Reads:":
			stats.Count, err = parseInt(value)
		case "#Bases:":
			stats.Bases, err = parseInt(value)
		case "#Max:":
			stats.Max, err = parseInt(value)
		case "#Min:":
			stats.Min, err = parseInt(value)
		case "#Avg:":
			stats.Avg, err = parseFloat(value)
		case "#Median:":
			stats.Median, err = parseInt(value)
		case "#Mode:":
			stats.Mode, err = parseInt(value)
		case "#Std_Dev:":
			stats.StdDev, err = parseFloat(value)
		default:
			continue
		}
		if err != nil {
			return model.ReadStats{}, fmt.Errorf("parse %s %q: %w", strings.Trim(key, "#:"), value, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return model.ReadStats{}, fmt.Errorf("read read length report: %w", err)
	}
	return stats, nil
}

func parseInt(s string) (*int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseFloat(s string) (*float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
