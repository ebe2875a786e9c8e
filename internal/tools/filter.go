package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/pkg/model"
)

// Quality filter output names within the rqcfilter stage directory.
const (
	FilterOutputName = "filtered.fastq.gz"
	FilterLogName    = "rqcfilter.log"
)

// filterParams are the fixed RQCFilter settings of the JGI metagenome
// workflow, in command-line order.
var filterParams = [][2]string{
	{"rna", "0"},
	{"trimfragadapter", "1"},
	{"qtrim", "r"},
	{"trimq", "0"},
	{"maxns", "3"},
	{"minavgquality", "3"},
	{"minlength", "51"},
	{"mlf", "0.333"},
	{"phix", "1"},
	{"removehuman", "1"},
	{"removedog", "1"},
	{"removecat", "1"},
	{"removemouse", "1"},
	{"khist", "1"},
	{"removemicrobes", "1"},
	{"clumpify", "1"},
}

// FilterArgs builds the rqcfilter2.sh arguments. Stderr is captured as the
// run log.
func (e *Env) FilterArgs(reads, dir string) []string {
	res := e.Resources
	var args []string
	if res.RQCFilterHeap != "" {
		args = append(args, "-Xmx"+res.RQCFilterHeap)
	}
	args = append(args,
		"in="+reads,
		"path="+dir,
		"out="+FilterOutputName,
	)
	if res.RQCFilterData != "" {
		args = append(args, "rqcfilterdata="+res.RQCFilterData)
	}
	if res.RQCFilterThreads > 0 {
		args = append(args, "threads="+strconv.Itoa(res.RQCFilterThreads))
	}
	for _, p := range filterParams {
		args = append(args, p[0]+"="+p[1])
	}
	return append(args, "2>", filepath.Join(dir, FilterLogName))
}

// Filter runs the quality filter over reads, or fakes its result when skip is
// set. Both paths return the same shape so later stages need not care.
func (e *Env) Filter(ctx context.Context, reads string, skip bool) (model.FilterResult, error) {
	if err := requireInput(model.StageQualityFilter, reads); err != nil {
		return model.FilterResult{}, err
	}
	dir, err := e.StageDir(model.StageQualityFilter)
	if err != nil {
		return model.FilterResult{}, err
	}
	if skip {
		return e.skipFilter(reads, dir)
	}

	filtered := filepath.Join(dir, FilterOutputName)
	runLog := filepath.Join(dir, FilterLogName)
	step, err := e.Runner.Invoke(ctx, steprun.Spec{
		Step:  model.StageQualityFilter,
		Tool:  e.Tools.RQCFilter,
		Args:  e.FilterArgs(reads, dir),
		Shell: true,
		Outputs: []steprun.Output{
			{Role: model.RoleOutputDirectory, Path: dir},
			{Role: model.RoleFilteredReads, Path: filtered},
			{Role: model.RoleRunLog, Path: runLog},
		},
	})
	if err != nil {
		return model.FilterResult{}, err
	}
	return model.FilterResult{
		StepResult:      step,
		OutputDirectory: dir,
		FilteredReads:   filtered,
		RunLog:          runLog,
	}, nil
}

// skipFilter compresses the reads unchanged next to an empty run log. Reads
// that are already gzip compressed are copied as they are.
func (e *Env) skipFilter(reads, dir string) (model.FilterResult, error) {
	e.Logger.Info("skipping quality filter, compressing input reads unchanged", "reads", reads)

	runLog := filepath.Join(dir, FilterLogName)
	if err := os.WriteFile(runLog, nil, 0o644); err != nil {
		return model.FilterResult{}, fmt.Errorf("create empty filter log: %w", err)
	}
	gzipped, err := IsGzip(reads)
	if err != nil {
		return model.FilterResult{}, fmt.Errorf("inspect unfiltered reads: %w", err)
	}
	var filtered string
	if gzipped {
		filtered = filepath.Join(dir, filepath.Base(reads))
		if err := copyFile(reads, filtered); err != nil {
			return model.FilterResult{}, fmt.Errorf("copy unfiltered reads: %w", err)
		}
	} else {
		filtered = filepath.Join(dir, filepath.Base(reads)+".gz")
		if err := GzipFile(reads, filtered); err != nil {
			return model.FilterResult{}, fmt.Errorf("compress unfiltered reads: %w", err)
		}
	}

	return model.FilterResult{
		StepResult: model.StepResult{
			Step:    model.StageQualityFilter,
			Command: e.Tools.RQCFilter.Path + " -- skipped. No command run.",
			Version: e.Tools.RQCFilter.Version,
			Outputs: map[string]string{
				model.RoleOutputDirectory: dir,
				model.RoleFilteredReads:   filtered,
				model.RoleRunLog:          runLog,
			},
		},
		OutputDirectory: dir,
		FilteredReads:   filtered,
		RunLog:          runLog,
		Skipped:         true,
	}, nil
}

// IsGzip reports whether the file at path starts with the gzip magic bytes.
func IsGzip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var magic [2]byte
	n, err := io.ReadFull(f, magic[:])
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n == 2 && magic[0] == 0x1f && magic[1] == 0x8b, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// GzipFile writes a gzip-compressed copy of src to dst.
func GzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(src)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
