// Package config loads mgasm configuration from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Tool locates one external executable and the version tag reported for it.
type Tool struct {
	Path    string `yaml:"path"`
	Version string `yaml:"version"`
}

// Tools maps each logical tool to its executable. It replaces fixed install
// paths so tests and alternate installs can substitute their own binaries.
type Tools struct {
	ReadLength    Tool `yaml:"readlength"`
	RQCFilter     Tool `yaml:"rqcfilter"`
	BFC           Tool `yaml:"bfc"`
	Seqtk         Tool `yaml:"seqtk"`
	Pigz          Tool `yaml:"pigz"`
	Spades        Tool `yaml:"spades"`
	FungalRelease Tool `yaml:"fungalrelease"`
	Stats         Tool `yaml:"stats"`
	BBMap         Tool `yaml:"bbmap"`
}

// All returns the tool table keyed by logical name.
func (t Tools) All() map[string]Tool {
	return map[string]Tool{
		"readlength":    t.ReadLength,
		"rqcfilter":     t.RQCFilter,
		"bfc":           t.BFC,
		"seqtk":         t.Seqtk,
		"pigz":          t.Pigz,
		"spades":        t.Spades,
		"fungalrelease": t.FungalRelease,
		"stats":         t.Stats,
		"bbmap":         t.BBMap,
	}
}

// Validate checks that every tool resolves to an executable file and reports
// all unresolved tools at once.
func (t Tools) Validate() error {
	all := t.All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		if err := checkExecutable(all[name].Path); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("unresolved tools: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Check reports whether the tool resolves to an executable file.
func (t Tool) Check() error { return checkExecutable(t.Path) }

func checkExecutable(path string) error {
	if path == "" {
		return errors.New("no path configured")
	}
	if !filepath.IsAbs(path) {
		if _, err := exec.LookPath(path); err != nil {
			return fmt.Errorf("%q not found in PATH", path)
		}
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%q is not executable", path)
	}
	return nil
}

// Resources holds the thread and memory flags handed to the external tools.
type Resources struct {
	BFCThreads       int    `yaml:"bfc_threads"`
	BFCGenomeSize    string `yaml:"bfc_genome_size"`
	PigzThreads      int    `yaml:"pigz_threads"`
	SpadesThreads    int    `yaml:"spades_threads"`
	SpadesMemoryGB   int    `yaml:"spades_memory_gb"`
	BBMapHeap        string `yaml:"bbmap_heap"`
	AGPHeap          string `yaml:"agp_heap"`
	RQCFilterHeap    string `yaml:"rqcfilter_heap"`
	RQCFilterData    string `yaml:"rqcfilter_data"`
	RQCFilterThreads int    `yaml:"rqcfilter_threads"`
}

// Limits are optional pre-flight ceilings; zero disables a limit.
type Limits struct {
	MaxInputBytes       int64 `yaml:"max_input_bytes"`
	MaxReads            int64 `yaml:"max_reads"`
	MaxBases            int64 `yaml:"max_bases"`
	MaxAssemblyMemoryGB int   `yaml:"max_assembly_memory_gb"`
}

// Services configures the JSON-RPC callback server that fronts the reads,
// assembly, alignment and report services.
type Services struct {
	CallbackURL string        `yaml:"callback_url"`
	Token       string        `yaml:"token"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// Archive configures the optional S3-compatible mirror of report archives.
type Archive struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether an archive endpoint is configured.
func (a Archive) Enabled() bool { return a.Endpoint != "" }

// Backend selects the collaborator implementation.
const (
	BackendKBase = "kbase"
	BackendLocal = "local"
)

// Config is the complete mgasm configuration.
type Config struct {
	ScratchDir string    `yaml:"scratch"`
	DBPath     string    `yaml:"db"`
	LogLevel   string    `yaml:"log_level"`
	LogFormat  string    `yaml:"log_format"`
	Backend    string    `yaml:"backend"`
	CatalogDir string    `yaml:"catalog_dir"`
	Addr       string    `yaml:"addr"`
	Tools      Tools     `yaml:"tools"`
	Resources  Resources `yaml:"resources"`
	Limits     Limits    `yaml:"limits"`
	Services   Services  `yaml:"services"`
	Archive    Archive   `yaml:"archive"`
}

// Default returns the configuration of a standard module install.
func Default() Config {
	return Config{
		ScratchDir: "/kb/module/work/tmp",
		LogLevel:   "info",
		LogFormat:  "text",
		Backend:    BackendKBase,
		Addr:       ":5000",
		Tools: Tools{
			ReadLength:    Tool{Path: "/kb/module/bbmap/readlength.sh", Version: "BBTools"},
			RQCFilter:     Tool{Path: "/kb/module/bbmap/rqcfilter2.sh", Version: "BBTools"},
			BFC:           Tool{Path: "/kb/module/bin/bfc", Version: "BFC"},
			Seqtk:         Tool{Path: "/kb/module/bin/seqtk", Version: "seqtk"},
			Pigz:          Tool{Path: "pigz", Version: "pigz"},
			Spades:        Tool{Path: "/opt/SPAdes-3.12.0-Linux/bin/spades.py", Version: "SPAdes 3.12.0"},
			FungalRelease: Tool{Path: "/kb/module/bbmap/fungalrelease.sh", Version: "BBTools"},
			Stats:         Tool{Path: "/kb/module/bbmap/stats.sh", Version: "BBTools"},
			BBMap:         Tool{Path: "/kb/module/bbmap/bbmap.sh", Version: "BBTools"},
		},
		Resources: Resources{
			BFCThreads:       10,
			BFCGenomeSize:    "10g",
			PigzThreads:      4,
			SpadesThreads:    32,
			SpadesMemoryGB:   2000,
			BBMapHeap:        "100g",
			AGPHeap:          "40g",
			RQCFilterHeap:    "100g",
			RQCFilterThreads: 16,
		},
		Services: Services{
			Timeout:    30 * time.Minute,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional),
// a .env file in the working directory (optional) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overlays environment variables on the configuration.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SDK_CALLBACK_URL"); v != "" {
		c.Services.CallbackURL = v
	}
	if v := os.Getenv("KB_AUTH_TOKEN"); v != "" {
		c.Services.Token = v
	}
	if v := os.Getenv("MGASM_SCRATCH"); v != "" {
		c.ScratchDir = v
	}
	if v := os.Getenv("MGASM_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("MGASM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MGASM_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("MGASM_ARCHIVE_ACCESS_KEY"); v != "" {
		c.Archive.AccessKey = v
	}
	if v := os.Getenv("MGASM_ARCHIVE_SECRET_KEY"); v != "" {
		c.Archive.SecretKey = v
	}
}

// Validate checks the settings that do not depend on the tools being installed.
func (c Config) Validate() error {
	var problems []string
	if c.ScratchDir == "" {
		problems = append(problems, "scratch directory is required")
	}
	switch c.Backend {
	case BackendKBase:
		if c.Services.CallbackURL == "" {
			problems = append(problems, "services.callback_url (or SDK_CALLBACK_URL) is required for the kbase backend")
		}
	case BackendLocal:
		if c.CatalogDir == "" {
			problems = append(problems, "catalog_dir is required for the local backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown backend %q", c.Backend))
	}
	if c.Archive.Enabled() && c.Archive.Bucket == "" {
		problems = append(problems, "archive.bucket is required when archive.endpoint is set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
