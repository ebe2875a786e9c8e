// Package report derives summary metrics from tool outputs and assembles the
// published run report.
package report

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// NotAvailable marks a metric that could not be derived.
const NotAvailable = "not available"

// Percent returns floor(100*x/y), or 0 when y is 0.
func Percent(x, y int64) int64 {
	if y == 0 {
		return 0
	}
	p := 100 * x / y
	if (100*x)%y != 0 && (x < 0) != (y < 0) {
		p--
	}
	return p
}

// AlignmentSummary is the read accounting parsed from the mapper's stderr.
// Error is set, and the counts are zero, when a figure could not be found.
type AlignmentSummary struct {
	InputReads  int64
	MappedReads int64
	Error       string
}

// ParseAlignmentSummary reads the "Reads Used:" count and the two "mapped:"
// subtotals (read 1 and read 2) from mapper stderr text.
func ParseAlignmentSummary(r io.Reader) AlignmentSummary {
	var (
		s           AlignmentSummary
		foundInput  bool
		mappedLines int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		switch {
		case strings.HasPrefix(line, "Reads Used:") && len(fields) >= 3:
			if n, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
				s.InputReads = n
				foundInput = true
			}
		case strings.HasPrefix(line, "mapped:") && len(fields) >= 3 && mappedLines < 2:
			if n, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
				s.MappedReads += n
				mappedLines++
			}
		}
	}

	var missing []string
	if !foundInput {
		s.InputReads = 0
		missing = append(missing, "number of reads used as input")
	}
	if mappedLines < 2 {
		s.MappedReads = 0
		missing = append(missing, "number of reads mapped")
	}
	if err := scanner.Err(); err != nil {
		missing = append(missing, "unreadable alignment stats ("+err.Error()+")")
	}
	if len(missing) > 0 {
		s.Error = "Unable to determine " + strings.Join(missing, " and ") + " from the alignment stats"
	}
	return s
}

// ParseAlignmentSummaryFile is ParseAlignmentSummary over a file. An
// unreadable file yields a summary carrying the error.
func ParseAlignmentSummaryFile(path string) AlignmentSummary {
	f, err := os.Open(path)
	if err != nil {
		return AlignmentSummary{Error: "Unable to read the alignment stats: " + err.Error()}
	}
	defer f.Close()
	return ParseAlignmentSummary(f)
}

// Threshold is a contig length at which a fraction of reads is accounted
// for. Found is false when the fraction was never reached.
type Threshold struct {
	Length int64
	Found  bool
}

func (t Threshold) String() string {
	if !t.Found {
		return NotAvailable
	}
	return strconv.FormatInt(t.Length, 10)
}

// Coverage-table columns located by header name, with the BBMap covstats
// positions as fallback.
const (
	colLength = "Length"
	colPlus   = "Plus_reads"
	colMinus  = "Minus_reads"

	defaultLengthIdx = 2
	defaultPlusIdx   = 6
	defaultMinusIdx  = 7
)

// ComputeM50M90 scans a coverage table in file order, accumulating the plus
// and minus read counts of each row, and returns the contig length of the
// first row where the running total exceeds 50% and 90% of inputReads.
// Rows that cannot be parsed are skipped.
func ComputeM50M90(r io.Reader, inputReads int64) (m50, m90 Threshold) {
	lengthIdx, plusIdx, minusIdx := defaultLengthIdx, defaultPlusIdx, defaultMinusIdx

	var total int64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if strings.HasPrefix(line, "#") {
			for i, name := range fields {
				switch strings.TrimPrefix(strings.TrimSpace(name), "#") {
				case colLength:
					lengthIdx = i
				case colPlus:
					plusIdx = i
				case colMinus:
					minusIdx = i
				}
			}
			continue
		}

		length, ok1 := field(fields, lengthIdx)
		plus, ok2 := field(fields, plusIdx)
		minus, ok3 := field(fields, minusIdx)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		total += plus + minus

		if !m50.Found && 2*total > inputReads {
			m50 = Threshold{Length: length, Found: true}
		}
		if !m90.Found && 10*total > 9*inputReads {
			m90 = Threshold{Length: length, Found: true}
			break
		}
	}
	return m50, m90
}

// ComputeM50M90File is ComputeM50M90 over a file. An unreadable file yields
// two unavailable thresholds.
func ComputeM50M90File(path string, inputReads int64) (m50, m90 Threshold) {
	f, err := os.Open(path)
	if err != nil {
		return Threshold{}, Threshold{}
	}
	defer f.Close()
	return ComputeM50M90(f, inputReads)
}

func field(fields []string, idx int) (int64, bool) {
	if idx >= len(fields) {
		return 0, false
	}
	s := strings.TrimSpace(fields[idx])
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	// Read counts are integral, but tolerate a "12.0" rendering.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}
