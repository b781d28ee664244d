// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}

	if cfg.Server.Listen != ":12345" {
		t.Errorf("expected listen=:12345, got %s", cfg.Server.Listen)
	}

	if cfg.Server.MaxLine != 1024 {
		t.Errorf("expected max_line=1024, got %d", cfg.Server.MaxLine)
	}

	if cfg.Processing.CustomerTagMatch != "exact" {
		t.Errorf("expected customer_tag_match=exact, got %s", cfg.Processing.CustomerTagMatch)
	}

	if cfg.Archive.Enabled {
		t.Error("expected archiving disabled for development")
	}
}

func TestLoad_WithoutSourceUsesDefaults(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Paths.CDRSource != filepath.Join("data", "data.cdr") {
		t.Errorf("expected cdr_source=data/data.cdr, got %s", cfg.Paths.CDRSource)
	}
	if cfg.Paths.Output != "Output" {
		t.Errorf("expected output=Output, got %s", cfg.Paths.Output)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_FlagBeatsEnvironment(t *testing.T) {
	fromEnv := writeConfig(t, "env.yaml", "server:\n  listen: \":1\"\n")
	fromFlag := writeConfig(t, "flag.yaml", "server:\n  listen: \":2\"\n")

	t.Setenv(EnvironmentVariable, fromEnv)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Listen != ":1" {
		t.Errorf("expected listen from CDRBILL_CONFIG, got %s", cfg.Server.Listen)
	}

	cfg, err = Load(fromFlag)
	if err != nil {
		t.Fatalf("Load(flag) failed: %v", err)
	}
	if cfg.Server.Listen != ":2" {
		t.Errorf("expected listen from --config, got %s", cfg.Server.Listen)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, "cdrbill.yaml", `
environment: staging

server:
  listen: 127.0.0.1:9000
  idle_timeout: 5m

paths:
  root: /custom/root
  output: ${CDRBILL_ROOT}/reports

processing:
  customer_tag_match: fold
  display_batch_delay: 0s

archive:
  enabled: true
  compression: lz4
  keep: 2
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}

	if cfg.Server.Listen != "127.0.0.1:9000" {
		t.Errorf("expected listen=127.0.0.1:9000, got %s", cfg.Server.Listen)
	}

	if timeout, err := cfg.Server.IdleTimeoutDuration(); err != nil || timeout != 5*time.Minute {
		t.Errorf("expected idle timeout 5m, got %v (%v)", timeout, err)
	}

	if cfg.Paths.Output != "/custom/root/reports" {
		t.Errorf("expected output=/custom/root/reports, got %s", cfg.Paths.Output)
	}

	if cfg.Paths.CDRSource != "/custom/root/data/data.cdr" {
		t.Errorf("expected default cdr_source under root, got %s", cfg.Paths.CDRSource)
	}

	if cfg.Processing.CustomerTagMatch != "fold" {
		t.Errorf("expected customer_tag_match=fold, got %s", cfg.Processing.CustomerTagMatch)
	}

	if cfg.Processing.DisplayBatchLines != 10 {
		t.Errorf("expected default display_batch_lines=10, got %d", cfg.Processing.DisplayBatchLines)
	}

	if !cfg.Archive.Enabled || cfg.Archive.Compression != "lz4" || cfg.Archive.Keep != 2 {
		t.Errorf("unexpected archive config: %+v", cfg.Archive)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	configPath := writeConfig(t, "cdrbill.jsonc", `{
  // Staging box.
  "environment": "staging",
  "server": {"listen": ":4000", "max_line": 2048},
  "archive": {
    "recipients": ["age1qyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqs3290gq"], // ops key
  },
}`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Listen != ":4000" || cfg.Server.MaxLine != 2048 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if len(cfg.Archive.Recipients) != 1 {
		t.Errorf("expected one recipient, got %v", cfg.Archive.Recipients)
	}
	// Unset fields keep their defaults.
	if cfg.Archive.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Archive.Compression)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, "cdrbill.yaml", `
environment: production

paths:
  root: /default/root

archive:
  enabled: false

production:
  paths:
    root: /prod/root
  server:
    listen: ":443"
  archive:
    enabled: true
    compression: none
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	// Production overrides should be applied.
	if cfg.Paths.Root != "/prod/root" {
		t.Errorf("expected root=/prod/root, got %s", cfg.Paths.Root)
	}

	if cfg.Paths.Credentials != "/prod/root/data/users.db" {
		t.Errorf("expected credentials under the overridden root, got %s", cfg.Paths.Credentials)
	}

	if cfg.Server.Listen != ":443" {
		t.Errorf("expected listen=:443, got %s", cfg.Server.Listen)
	}

	if !cfg.Archive.Enabled || cfg.Archive.Compression != "none" {
		t.Errorf("expected archive override, got %+v", cfg.Archive)
	}
}

func TestProductionDefaultsEnableArchive(t *testing.T) {
	configPath := writeConfig(t, "cdrbill.yaml", "environment: production\n")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !cfg.Archive.Enabled {
		t.Error("expected production to enable archiving")
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	// Only ${VAR} references in path fields consult the environment.
	t.Setenv("CDRBILL_ROOT", "/env/root")
	t.Setenv("CDRBILL_LISTEN", ":9999")

	configPath := writeConfig(t, "cdrbill.yaml", `
environment: development
server:
  listen: ":7000"
paths:
  root: /file/root
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.Root != "/file/root" {
		t.Errorf("expected root=/file/root from file, got %s", cfg.Paths.Root)
	}

	if cfg.Server.Listen != ":7000" {
		t.Errorf("expected listen=:7000 from file, got %s", cfg.Server.Listen)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/cdrbill",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/cdrbill",
		},
		{
			input:    "${CDRBILL_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid environment",
			modify: func(c *Config) {
				c.Environment = "invalid"
			},
			wantErr: true,
		},
		{
			name: "empty listen address",
			modify: func(c *Config) {
				c.Server.Listen = ""
			},
			wantErr: true,
		},
		{
			name: "tiny line bound",
			modify: func(c *Config) {
				c.Server.MaxLine = 8
			},
			wantErr: true,
		},
		{
			name: "bad idle timeout",
			modify: func(c *Config) {
				c.Server.IdleTimeout = "soon"
			},
			wantErr: true,
		},
		{
			name: "empty output path",
			modify: func(c *Config) {
				c.Paths.Output = ""
			},
			wantErr: true,
		},
		{
			name: "unknown tag match",
			modify: func(c *Config) {
				c.Processing.CustomerTagMatch = "regex"
			},
			wantErr: true,
		},
		{
			name: "negative batch delay",
			modify: func(c *Config) {
				c.Processing.DisplayBatchDelay = "-1s"
			},
			wantErr: true,
		},
		{
			name: "zero chunk size",
			modify: func(c *Config) {
				c.Processing.TransferChunkSize = 0
			},
			wantErr: true,
		},
		{
			name: "unknown compression",
			modify: func(c *Config) {
				c.Archive.Compression = "gzip"
			},
			wantErr: true,
		},
		{
			name: "archive keeps nothing",
			modify: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Keep = 0
			},
			wantErr: true,
		},
		{
			name: "recipient is not an age key",
			modify: func(c *Config) {
				c.Archive.Recipients = []string{"ssh-ed25519 AAAA"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsurePaths(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Paths.Output = filepath.Join(tmpDir, "Output")
	cfg.Paths.Credentials = filepath.Join(tmpDir, "data", "users.db")
	cfg.Paths.AuditLog = filepath.Join(tmpDir, "ServerLog", "audit.log")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}

	// Verify directories were created.
	for _, path := range []string{cfg.Paths.Output, filepath.Join(tmpDir, "data"), filepath.Join(tmpDir, "ServerLog")} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("path %s not created: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("path %s is not a directory", path)
		}
	}
}
