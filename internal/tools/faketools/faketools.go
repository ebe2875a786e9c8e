// Package faketools installs /bin/sh stand-ins for the external assembly
// tools so the pipeline can run end to end in tests.
package faketools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/mgasm/internal/config"
)

// CallsLog is the file, relative to the install directory, every fake tool
// appends its name to when invoked.
const CallsLog = "calls.log"

// Options shape the fake outputs.
type Options struct {
	AvgLength   float64 // reported by readlength; default 100.0
	Reads       int64   // reported by readlength and bbmap; default 1250
	NoScaffolds bool    // spades writes no scaffolds.fasta
	NoContigs   bool    // spades writes no contigs.fasta
	Fail        string  // logical name of a tool that exits 1
}

// Install writes the fake tools into dir and returns a tool table pointing at
// them.
func Install(t testing.TB, dir string, opts Options) config.Tools {
	t.Helper()
	if opts.AvgLength == 0 {
		opts.AvgLength = 100.0
	}
	if opts.Reads == 0 {
		opts.Reads = 1250
	}
	calls := filepath.Join(dir, CallsLog)

	scripts := map[string]string{
		"readlength":    readLength(opts),
		"rqcfilter":     rqcFilter,
		"bfc":           bfc,
		"seqtk":         seqtk,
		"pigz":          "cat",
		"spades":        spades(opts),
		"fungalrelease": fungalRelease,
		"stats":         stats,
		"bbmap":         bbmap(opts),
	}
	paths := make(map[string]config.Tool, len(scripts))
	for name, body := range scripts {
		if opts.Fail == name {
			body = "echo " + name + " failed >&2\nexit 1"
		}
		path := filepath.Join(dir, "fake-"+name+".sh")
		script := fmt.Sprintf("#!/bin/sh\necho %s >> %s\n%s\n", name, calls, body)
		if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
			t.Fatalf("install fake %s: %v", name, err)
		}
		paths[name] = config.Tool{Path: path, Version: "fake " + name + " 1.0"}
	}

	return config.Tools{
		ReadLength:    paths["readlength"],
		RQCFilter:     paths["rqcfilter"],
		BFC:           paths["bfc"],
		Seqtk:         paths["seqtk"],
		Pigz:          paths["pigz"],
		Spades:        paths["spades"],
		FungalRelease: paths["fungalrelease"],
		Stats:         paths["stats"],
		BBMap:         paths["bbmap"],
	}
}

// Calls returns the logical names of the fake tools invoked so far, in order.
func Calls(t testing.TB, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, CallsLog))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read calls log: %v", err)
	}
	return strings.Fields(string(data))
}

// argValue extracts key=value arguments into shell variables.
const argValue = `for a in "$@"; do
  case "$a" in
    in=*) in="${a#in=}" ;;
    out=*) out="${a#out=}" ;;
    outc=*) outc="${a#outc=}" ;;
    agp=*) agp="${a#agp=}" ;;
    legend=*) legend="${a#legend=}" ;;
    path=*) path="${a#path=}" ;;
    ref=*) ref="${a#ref=}" ;;
    covstats=*) covstats="${a#covstats=}" ;;
  esac
done`

func readLength(opts Options) string {
	return fmt.Sprintf(`printf '#Reads:\t%d\n#Bases:\t%d\n#Max:\t%d\n#Min:\t%d\n#Avg:\t%.1f\n#Median:\t%d\n#Mode:\t%d\n#Std_Dev:\t0.0\n#Read Length Histogram:\n'`,
		opts.Reads, opts.Reads*int64(opts.AvgLength), int64(opts.AvgLength), int64(opts.AvgLength),
		opts.AvgLength, int64(opts.AvgLength), int64(opts.AvgLength))
}

const rqcFilter = argValue + `
cp "$in" "$path/$out"
echo "filtered $in" >&2`

// bfc copies its last argument, the input reads, to stdout.
const bfc = `for a in "$@"; do last="$a"; done
cat "$last"`

const seqtk = `cat "$2"`

func spades(opts Options) string {
	var b strings.Builder
	b.WriteString(`while [ $# -gt 0 ]; do
  case "$1" in
    -o) dir="$2"; shift ;;
  esac
  shift
done
mkdir -p "$dir"
echo "spades run" > "$dir/spades.log"
echo "params" > "$dir/params.txt"
`)
	if !opts.NoScaffolds {
		b.WriteString(`printf '>scaffold_1\nACGTACGTAC\n>scaffold_2\nACGT\n' > "$dir/scaffolds.fasta"` + "\n")
	}
	if !opts.NoContigs {
		b.WriteString(`printf '>contig_1\nACGTACGTAC\n' > "$dir/contigs.fasta"` + "\n")
	}
	return b.String()
}

const fungalRelease = argValue + `
cp "$in" "$out"
cp "$in" "$outc"
echo "scaffold_1 agp" > "$agp"
echo "scaffold_1 legend" > "$legend"`

// stats writes a table for the format=6 pass and a text summary otherwise.
const stats = `if [ "$1" = "format=6" ]; then
  printf 'n_scaffolds\tn_contigs\tscaf_bp\n2\t2\t14\n'
else
  printf 'Main genome scaffold total:\t2\nMain genome contig total:\t2\n'
fi
echo "stats done" >&2`

// bbmap writes a coverage table whose rows cross 50% of the input reads on
// the first contig and 90% on the second.
func bbmap(opts Options) string {
	half := opts.Reads / 2
	return argValue + fmt.Sprintf(`
echo "sam" > "$out"
printf '#ID\tAvg_fold\tLength\tRef_GC\tCovered_percent\tCovered_bases\tPlus_reads\tMinus_reads\tRead_GC\tMedian_fold\tStd_Dev\n' > "$covstats"
printf 'scaffold_1\t10.0\t1000\t0.5\t100\t1000\t%d\t%d\t0.5\t10\t1.0\n' >> "$covstats"
printf 'scaffold_2\t5.0\t400\t0.5\t100\t400\t%d\t%d\t0.5\t5\t1.0\n' >> "$covstats"
printf 'Reads Used:           \t%d\t(%d bases)\n\n' >&2
printf 'Read 1 data:      \tpct reads\tnum reads \tpct bases\t   num bases\n' >&2
printf 'mapped:          \t 50.0000%%%% \t     %d \t 50.0000%%%% \t      %d\n' >&2
printf 'Read 2 data:      \tpct reads\tnum reads \tpct bases\t   num bases\n' >&2
printf 'mapped:          \t 50.0000%%%% \t     %d \t 50.0000%%%% \t      %d\n' >&2`,
		half/2+1, half/2+1, // first contig: just over half of all reads
		half/2, half/2,
		opts.Reads, opts.Reads*100,
		half/2, half/2*100,
		half/2, half/2*100)
}
