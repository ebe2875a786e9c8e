package tools

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/me/mgasm/internal/config"
	"github.com/me/mgasm/internal/steprun"
	"github.com/me/mgasm/internal/tools/faketools"
	"github.com/me/mgasm/pkg/model"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv returns an Env backed by fake tools and the bin directory they
// were installed in.
func newTestEnv(t *testing.T, opts faketools.Options) (*Env, string) {
	t.Helper()
	bin := t.TempDir()
	cfg := config.Default()
	cfg.Tools = faketools.Install(t, bin, opts)
	runner := steprun.New(steprun.Config{Logger: newTestLogger(), WorkDir: t.TempDir(), Output: io.Discard})
	return NewEnv(runner, &cfg, t.TempDir(), nil, newTestLogger()), bin
}

func writeReads(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reads.fastq")
	data := "@r1/1\nACGT\n+\nIIII\n@r1/2\nTGCA\n+\nIIII\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write reads: %v", err)
	}
	return path
}

func TestParseReadLength(t *testing.T) {
	input := "#Reads:\t1250\n#Bases:\t125000\n#Max:\t100\n#Min:\t100\n#Avg:\t100.0\n" +
		"#Median:\t100\n#Mode:\t100\n#Std_Dev:\t0.0\n#Read Length Histogram:\n#Length\treads\n100\t1250\n"

	stats, err := ParseReadLength(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReadLength: %v", err)
	}

	ints := []struct {
		name string
		got  *int64
		want int64
	}{
		{"Count", stats.Count, 1250},
		{"Bases", stats.Bases, 125000},
		{"Max", stats.Max, 100},
		{"Min", stats.Min, 100},
		{"Median", stats.Median, 100},
		{"Mode", stats.Mode, 100},
	}
	for _, tc := range ints {
		if tc.got == nil || *tc.got != tc.want {
			t.Errorf("%s = %v, want %d", tc.name, tc.got, tc.want)
		}
	}
	if stats.Avg == nil || *stats.Avg != 100.0 {
		t.Errorf("Avg = %v, want 100.0", stats.Avg)
	}
	if stats.StdDev == nil || *stats.StdDev != 0.0 {
		t.Errorf("StdDev = %v, want 0.0", stats.StdDev)
	}
}

func TestParseReadLength_MissingKeys(t *testing.T) {
	stats, err := ParseReadLength(strings.NewReader("#Reads:\t10\n#Unknown:\t5\n\n"))
	if err != nil {
		t.Fatalf("ParseReadLength: %v", err)
	}
	if stats.Count == nil || *stats.Count != 10 {
		t.Errorf("Count = %v, want 10", stats.Count)
	}
	if stats.Avg != nil || stats.Bases != nil {
		t.Errorf("absent keys produced values: Avg=%v Bases=%v", stats.Avg, stats.Bases)
	}
}

func TestParseReadLength_BadNumber(t *testing.T) {
	if _, err := ParseReadLength(strings.NewReader("#Reads:\tmany\n")); err == nil {
		t.Fatal("expected error for non-numeric read count")
	}
}

func TestSelectKmers(t *testing.T) {
	tests := []struct {
		avg  float64
		want []int
	}{
		{100, []int{33, 55, 77, 99}},
		{130, []int{33, 55, 77, 99, 127}},
		{127, []int{33, 55, 77, 99, 127}},
		{98.5, []int{33, 55, 77}},
		{33, []int{33}},
		{32.9, nil},
	}
	for _, tt := range tests {
		got := SelectKmers(tt.avg)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SelectKmers(%v) = %v, want %v", tt.avg, got, tt.want)
		}
	}
}

func TestJoinKmers(t *testing.T) {
	if got := JoinKmers([]int{33, 55, 77}); got != "33,55,77" {
		t.Errorf("JoinKmers = %q", got)
	}
}

func TestBFCArgs_Debug(t *testing.T) {
	env := &Env{Resources: config.Default().Resources}

	normal := strings.Join(env.BFCArgs("in.fq", "out.fq", false), " ")
	if normal != "-1 -k 21 -t 10 -s 10g in.fq > out.fq" {
		t.Errorf("BFCArgs = %q", normal)
	}
	debug := strings.Join(env.BFCArgs("in.fq", "out.fq", true), " ")
	if debug != "-1 -k 21 -t 10 in.fq > out.fq" {
		t.Errorf("BFCArgs(debug) = %q", debug)
	}
}

func TestSpadesArgs(t *testing.T) {
	env := &Env{Resources: config.Default().Resources}
	got := strings.Join(env.SpadesArgs("in.fq.gz", "/out/spades/spades3", []int{33, 55}), " ")
	want := "--only-assembler -k 33,55 --meta -t 32 -m 2000 -o /out/spades/spades3 --12 in.fq.gz"
	if got != want {
		t.Errorf("SpadesArgs = %q, want %q", got, want)
	}
}

func TestReadLength(t *testing.T) {
	env, _ := newTestEnv(t, faketools.Options{})
	reads := writeReads(t)

	res, err := env.ReadLength(context.Background(), reads, "pre.txt")
	if err != nil {
		t.Fatalf("ReadLength: %v", err)
	}
	want := filepath.Join(env.OutputDir, model.StageReadLength, "pre.txt")
	if res.Stats.OutputFile != want {
		t.Errorf("OutputFile = %q, want %q", res.Stats.OutputFile, want)
	}
	if res.Stats.CountOrZero() != 1250 {
		t.Errorf("Count = %d, want 1250", res.Stats.CountOrZero())
	}
	if !strings.Contains(res.Command, "in="+reads) {
		t.Errorf("Command = %q", res.Command)
	}
}

func TestReadLength_MissingInput(t *testing.T) {
	env, bin := newTestEnv(t, faketools.Options{})

	_, err := env.ReadLength(context.Background(), "/nonexistent/reads.fq", "pre.txt")
	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("err = %v, want ErrInputNotFound", err)
	}
	if calls := faketools.Calls(t, bin); len(calls) != 0 {
		t.Errorf("tools invoked for missing input: %v", calls)
	}
}

func TestFilter_Skip(t *testing.T) {
	env, bin := newTestEnv(t, faketools.Options{})
	reads := writeReads(t)
	original, _ := os.ReadFile(reads)

	res, err := env.Filter(context.Background(), reads, true)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if !res.Skipped {
		t.Error("Skipped = false")
	}
	if calls := faketools.Calls(t, bin); len(calls) != 0 {
		t.Errorf("skip mode invoked tools: %v", calls)
	}

	for _, role := range []string{model.RoleOutputDirectory, model.RoleFilteredReads, model.RoleRunLog} {
		if _, ok := res.Output(role); !ok {
			t.Errorf("missing output role %q", role)
		}
	}

	info, err := os.Stat(res.RunLog)
	if err != nil {
		t.Fatalf("run log: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("run log size = %d, want 0", info.Size())
	}

	f, err := os.Open(res.FilteredReads)
	if err != nil {
		t.Fatalf("open filtered reads: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("filtered reads are not gzip: %v", err)
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Error("decompressed filtered reads differ from the input")
	}
}

func TestFilter_SkipGzippedInput(t *testing.T) {
	env, _ := newTestEnv(t, faketools.Options{})
	plain := writeReads(t)
	original, _ := os.ReadFile(plain)
	reads := filepath.Join(t.TempDir(), "reads.fastq.gz")
	if err := GzipFile(plain, reads); err != nil {
		t.Fatalf("gzip reads: %v", err)
	}

	res, err := env.Filter(context.Background(), reads, true)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if filepath.Base(res.FilteredReads) != "reads.fastq.gz" {
		t.Errorf("filtered reads = %s, want reads.fastq.gz", res.FilteredReads)
	}

	f, err := os.Open(res.FilteredReads)
	if err != nil {
		t.Fatalf("open filtered reads: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("filtered reads are not gzip: %v", err)
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("decompressed filtered reads = %q, want the original FASTQ", got)
	}
}

func TestIsGzip(t *testing.T) {
	dir := t.TempDir()
	plain := writeReads(t)
	gz := filepath.Join(dir, "reads.gz")
	if err := GzipFile(plain, gz); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty")
	os.WriteFile(empty, nil, 0o644)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"plain", plain, false},
		{"gzip", gz, true},
		{"empty", empty, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsGzip(tt.path)
			if err != nil {
				t.Fatalf("IsGzip: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsGzip = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Run(t *testing.T) {
	env, bin := newTestEnv(t, faketools.Options{})
	reads := writeReads(t)

	res, err := env.Filter(context.Background(), reads, false)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if res.Skipped {
		t.Error("Skipped = true")
	}
	if got := faketools.Calls(t, bin); !reflect.DeepEqual(got, []string{"rqcfilter"}) {
		t.Errorf("calls = %v", got)
	}
	for _, p := range []string{"removehuman=1", "minlength=51", "mlf=0.333", "clumpify=1"} {
		if !strings.Contains(res.Command, p) {
			t.Errorf("command %q lacks %s", res.Command, p)
		}
	}
	log, _ := os.ReadFile(res.RunLog)
	if !strings.Contains(string(log), "filtered") {
		t.Errorf("run log = %q, want filter stderr", log)
	}
}

func TestCorrectAndStrip(t *testing.T) {
	env, _ := newTestEnv(t, faketools.Options{})
	reads := writeReads(t)

	corr, err := env.Correct(context.Background(), reads, false)
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if filepath.Base(corr.CorrectedReads) != CorrectedName {
		t.Errorf("CorrectedReads = %q", corr.CorrectedReads)
	}

	clean, err := env.StripSingletons(context.Background(), corr.CorrectedReads)
	if err != nil {
		t.Fatalf("StripSingletons: %v", err)
	}
	if filepath.Dir(clean.CleanedReads) != filepath.Dir(corr.CorrectedReads) {
		t.Errorf("cleaned reads not in the bfc directory: %q", clean.CleanedReads)
	}
	if !strings.Contains(clean.Command, "dropse") || !strings.Contains(clean.Command, "|") {
		t.Errorf("Command = %q", clean.Command)
	}
}

func TestCorrect_Failure(t *testing.T) {
	env, _ := newTestEnv(t, faketools.Options{Fail: "bfc"})

	_, err := env.Correct(context.Background(), writeReads(t), false)
	var invErr *steprun.InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("err = %v, want *InvocationError", err)
	}
	if invErr.ExitCode != 1 || invErr.Step != model.StageReadCorrector {
		t.Errorf("InvocationError = %+v", invErr)
	}
}

func readsInfo(t *testing.T, avg float64) model.ReadLengthResult {
	t.Helper()
	return model.ReadLengthResult{Stats: model.ReadStats{Avg: &avg}}
}

func TestAssemble(t *testing.T) {
	var transcript bytes.Buffer
	env, _ := newTestEnv(t, faketools.Options{})
	env.Transcript = &transcript

	res, err := env.Assemble(context.Background(), writeReads(t), readsInfo(t, 100))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !reflect.DeepEqual(res.Kmers, []int{33, 55, 77, 99}) {
		t.Errorf("Kmers = %v", res.Kmers)
	}
	if !strings.Contains(res.Command, "-k 33,55,77,99 ") {
		t.Errorf("Command = %q", res.Command)
	}
	if res.Scaffolds == "" || res.Contigs == "" {
		t.Errorf("Scaffolds = %q, Contigs = %q", res.Scaffolds, res.Contigs)
	}
	if res.WarningsLog != "" {
		t.Errorf("WarningsLog = %q, want empty", res.WarningsLog)
	}
	if !strings.Contains(transcript.String(), "SPAdes log file spades.log") {
		t.Error("spades.log not copied to the transcript")
	}
}

func TestAssemble_NoKmers(t *testing.T) {
	env, bin := newTestEnv(t, faketools.Options{})

	_, err := env.Assemble(context.Background(), writeReads(t), readsInfo(t, 20))
	if !errors.Is(err, ErrNoKmers) {
		t.Fatalf("err = %v, want ErrNoKmers", err)
	}
	if calls := faketools.Calls(t, bin); len(calls) != 0 {
		t.Errorf("spades invoked without k-mers: %v", calls)
	}
}

func TestAssemble_ContigsOnly(t *testing.T) {
	env, _ := newTestEnv(t, faketools.Options{NoScaffolds: true})

	res, err := env.Assemble(context.Background(), writeReads(t), readsInfo(t, 100))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Scaffolds != "" || res.Contigs == "" {
		t.Fatalf("Scaffolds = %q, Contigs = %q", res.Scaffolds, res.Contigs)
	}

	_, err = env.Polish(context.Background(), res)
	var outErr *steprun.OutputError
	if !errors.As(err, &outErr) {
		t.Fatalf("Polish err = %v, want *OutputError", err)
	}
	if !strings.Contains(outErr.Detail, "did produce contigs") {
		t.Errorf("Detail = %q, want partial assembly message", outErr.Detail)
	}
}

func TestAssemble_NothingProduced(t *testing.T) {
	env, _ := newTestEnv(t, faketools.Options{NoScaffolds: true, NoContigs: true})

	_, err := env.Assemble(context.Background(), writeReads(t), readsInfo(t, 100))
	var outErr *steprun.OutputError
	if !errors.As(err, &outErr) {
		t.Fatalf("err = %v, want *OutputError", err)
	}
	if len(outErr.Missing) != 2 {
		t.Errorf("Missing = %v", outErr.Missing)
	}
}

func TestMissingScaffoldsError_TotalFailure(t *testing.T) {
	err := MissingScaffoldsError(model.AssemblyResult{OutputDir: "/out/spades/spades3"})
	if !errors.Is(err, steprun.ErrMissingOutput) {
		t.Fatalf("err = %v, want ErrMissingOutput", err)
	}
	if !strings.Contains(err.Error(), "also did not produce a contigs file") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestPolishSummarizeMap(t *testing.T) {
	env, _ := newTestEnv(t, faketools.Options{})
	reads := writeReads(t)
	ctx := context.Background()

	asm, err := env.Assemble(ctx, reads, readsInfo(t, 100))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	pol, err := env.Polish(ctx, asm)
	if err != nil {
		t.Fatalf("Polish: %v", err)
	}
	if filepath.Base(filepath.Dir(pol.AGP)) != model.StageScaffoldPolish {
		t.Errorf("AGP = %q", pol.AGP)
	}

	st, err := env.Summarize(ctx, pol.Scaffolds)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	for _, role := range []string{model.RoleStatsTSV, model.RoleStatsTXT, model.RoleStatsErr} {
		if _, ok := st.Output(role); !ok {
			t.Errorf("stats output %q missing", role)
		}
	}
	stderr, _ := os.ReadFile(st.Stderr)
	if n := strings.Count(string(stderr), "stats done"); n != 2 {
		t.Errorf("stderr has %d pass records, want 2", n)
	}

	mp, err := env.Map(ctx, reads, pol.Contigs)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	summary, _ := os.ReadFile(mp.StatsFile)
	if !strings.Contains(string(summary), "Reads Used:") {
		t.Errorf("stats file = %q", summary)
	}
}
