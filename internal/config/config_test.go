package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Backend != BackendKBase {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendKBase)
	}
	if cfg.Resources.SpadesThreads != 32 || cfg.Resources.BFCGenomeSize != "10g" {
		t.Errorf("Resources = %+v", cfg.Resources)
	}
	if len(cfg.Tools.All()) != 9 {
		t.Errorf("tool table has %d entries, want 9", len(cfg.Tools.All()))
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mgasm.yaml")
	data := `scratch: /data/scratch
backend: local
catalog_dir: /data/catalog
tools:
  spades:
    path: /usr/local/bin/spades.py
    version: SPAdes 3.15.5
resources:
  spades_threads: 8
services:
  timeout: 90s
limits:
  max_reads: 1000000
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SDK_CALLBACK_URL", "http://callback:9999")
	t.Setenv("MGASM_SCRATCH", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScratchDir != "/data/scratch" {
		t.Errorf("ScratchDir = %q", cfg.ScratchDir)
	}
	if cfg.Tools.Spades.Version != "SPAdes 3.15.5" {
		t.Errorf("Spades.Version = %q", cfg.Tools.Spades.Version)
	}
	if cfg.Tools.BFC.Path != "/kb/module/bin/bfc" {
		t.Errorf("unset tool lost its default: %q", cfg.Tools.BFC.Path)
	}
	if cfg.Resources.SpadesThreads != 8 || cfg.Resources.BFCThreads != 10 {
		t.Errorf("Resources = %+v", cfg.Resources)
	}
	if cfg.Services.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Services.Timeout)
	}
	if cfg.Limits.MaxReads != 1000000 {
		t.Errorf("MaxReads = %d", cfg.Limits.MaxReads)
	}
	if cfg.Services.CallbackURL != "http://callback:9999" {
		t.Errorf("CallbackURL = %q, want env override", cfg.Services.CallbackURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestTools_Validate(t *testing.T) {
	dir := t.TempDir()
	ok := writeExecutable(t, dir, "tool.sh")
	notExec := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(notExec, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tools := Tools{
		ReadLength:    Tool{Path: ok},
		RQCFilter:     Tool{Path: ok},
		BFC:           Tool{Path: ok},
		Seqtk:         Tool{Path: ok},
		Pigz:          Tool{Path: "sh"},
		Spades:        Tool{Path: ok},
		FungalRelease: Tool{Path: ok},
		Stats:         Tool{Path: ok},
		BBMap:         Tool{Path: ok},
	}
	if err := tools.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	tools.BFC.Path = notExec
	tools.Spades.Path = filepath.Join(dir, "missing")
	tools.Stats.Path = ""
	err := tools.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"bfc:", "spades:", "stats: no path configured"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestTool_Check(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"executable", writeExecutable(t, dir, "ok.sh"), false},
		{"in PATH", "sh", false},
		{"directory", dir, true},
		{"missing", filepath.Join(dir, "nope"), true},
		{"not in PATH", "mgasm-no-such-tool", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Tool{Path: tt.path}.Check()
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"kbase ok", func(c *Config) { c.Services.CallbackURL = "http://cb" }, ""},
		{"kbase without callback", func(c *Config) {}, "callback_url"},
		{"local without catalog", func(c *Config) { c.Backend = BackendLocal }, "catalog_dir"},
		{"unknown backend", func(c *Config) { c.Backend = "ftp" }, "unknown backend"},
		{"archive without bucket", func(c *Config) {
			c.Services.CallbackURL = "http://cb"
			c.Archive.Endpoint = "localhost:9000"
		}, "archive.bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
