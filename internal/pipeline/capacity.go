package pipeline

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/me/mgasm/internal/config"
	"github.com/me/mgasm/pkg/model"
)

// CheckInputSize rejects downloaded reads larger than the configured
// ceiling. It runs before any tool sees the file.
func CheckInputSize(limits config.Limits, inputReads string) error {
	if limits.MaxInputBytes <= 0 {
		return nil
	}
	info, err := os.Stat(inputReads)
	if err != nil {
		return fmt.Errorf("stat input reads: %w", err)
	}
	if info.Size() > limits.MaxInputBytes {
		return &model.CapacityError{Violations: []string{fmt.Sprintf("input reads are %s, limit is %s",
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(limits.MaxInputBytes)))}}
	}
	return nil
}

// CheckCapacity compares the run against the configured ceilings before
// assembly starts. All violated limits are reported together.
func CheckCapacity(limits config.Limits, res config.Resources, assemblyInput model.ReadStats) error {
	var violations []string

	if limits.MaxReads > 0 && assemblyInput.CountOrZero() > limits.MaxReads {
		violations = append(violations, fmt.Sprintf("%s reads to assemble, limit is %s",
			humanize.Comma(assemblyInput.CountOrZero()), humanize.Comma(limits.MaxReads)))
	}
	if limits.MaxBases > 0 && assemblyInput.Bases != nil && *assemblyInput.Bases > limits.MaxBases {
		violations = append(violations, fmt.Sprintf("%s bases to assemble, limit is %s",
			humanize.Comma(*assemblyInput.Bases), humanize.Comma(limits.MaxBases)))
	}
	if limits.MaxAssemblyMemoryGB > 0 && res.SpadesMemoryGB > limits.MaxAssemblyMemoryGB {
		violations = append(violations, fmt.Sprintf("assembler memory is %d GB, limit is %d GB",
			res.SpadesMemoryGB, limits.MaxAssemblyMemoryGB))
	}

	if len(violations) > 0 {
		return &model.CapacityError{Violations: violations}
	}
	return nil
}
