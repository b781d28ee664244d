// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable consulted when no --config
// flag is given.
const EnvironmentVariable = "CDRBILL_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the server configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment" json:"environment"`

	// Server configures the listening socket and the line protocol.
	Server ServerConfig `yaml:"server" json:"server"`

	// Paths configures file and directory locations.
	Paths PathsConfig `yaml:"paths" json:"paths"`

	// Processing tunes the billing passes and report streaming.
	Processing ProcessingConfig `yaml:"processing" json:"processing"`

	// Archive configures rotation of previous reports.
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty" json:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty" json:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty" json:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
// Zero-valued fields leave the base value in place.
type ConfigOverrides struct {
	Server     *ServerConfig     `yaml:"server,omitempty" json:"server,omitempty"`
	Paths      *PathsConfig      `yaml:"paths,omitempty" json:"paths,omitempty"`
	Processing *ProcessingConfig `yaml:"processing,omitempty" json:"processing,omitempty"`
	Archive    *ArchiveConfig    `yaml:"archive,omitempty" json:"archive,omitempty"`
}

// ServerConfig configures the listening socket.
type ServerConfig struct {
	// Listen is the TCP address to accept connections on.
	// Default: :12345
	Listen string `yaml:"listen" json:"listen"`

	// MaxLine bounds a single received protocol line in bytes.
	// Default: 1024
	MaxLine int `yaml:"max_line" json:"max_line"`

	// IdleTimeout closes sessions whose client sends nothing for this
	// long. Empty disables the timeout.
	IdleTimeout string `yaml:"idle_timeout" json:"idle_timeout"`
}

// PathsConfig configures file and directory locations.
type PathsConfig struct {
	// Root is the base directory the other paths default under.
	Root string `yaml:"root" json:"root"`

	// CDRSource is the shared CDR input file read by every pass.
	CDRSource string `yaml:"cdr_source" json:"cdr_source"`

	// Output is the parent of the per-identity report directories.
	Output string `yaml:"output" json:"output"`

	// Credentials is the SQLite credential database.
	Credentials string `yaml:"credentials" json:"credentials"`

	// AuditLog is the append-only audit event file. Empty disables
	// the audit trail.
	AuditLog string `yaml:"audit_log" json:"audit_log"`
}

// ProcessingConfig tunes the billing passes and report streaming.
type ProcessingConfig struct {
	// CustomerTagMatch is "exact" or "fold" (case-insensitive tags in
	// the customer pass).
	CustomerTagMatch string `yaml:"customer_tag_match" json:"customer_tag_match"`

	// DisplayBatchLines is the number of report lines sent between
	// pauses when a report is displayed.
	DisplayBatchLines int `yaml:"display_batch_lines" json:"display_batch_lines"`

	// DisplayBatchDelay is the pause between display batches, as a
	// Go duration string.
	DisplayBatchDelay string `yaml:"display_batch_delay" json:"display_batch_delay"`

	// TransferChunkSize is the write size of the file-transfer payload.
	TransferChunkSize int `yaml:"transfer_chunk_size" json:"transfer_chunk_size"`

	// WriteRetries is how many times a transient write error is retried.
	WriteRetries int `yaml:"write_retries" json:"write_retries"`
}

// ArchiveConfig configures rotation of previous reports.
type ArchiveConfig struct {
	// Enabled turns on rotation before each overwrite.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Compression is "zstd", "lz4", or "none".
	Compression string `yaml:"compression" json:"compression"`

	// Recipients are age X25519 public keys. Archived reports are
	// encrypted to all of them; empty leaves archives unencrypted.
	Recipients []string `yaml:"recipients" json:"recipients"`

	// Keep is the number of archived generations retained per report.
	Keep int `yaml:"keep" json:"keep"`
}

// Default returns the default configuration. It is complete on its own:
// a development server runs without a config file.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Listen:  ":12345",
			MaxLine: 1024,
		},
		Paths: PathsConfig{
			Root:        ".",
			CDRSource:   "${CDRBILL_ROOT}/data/data.cdr",
			Output:      "${CDRBILL_ROOT}/Output",
			Credentials: "${CDRBILL_ROOT}/data/users.db",
			AuditLog:    "${CDRBILL_ROOT}/ServerLog/audit.log",
		},
		Processing: ProcessingConfig{
			CustomerTagMatch:  "exact",
			DisplayBatchLines: 10,
			DisplayBatchDelay: "10ms",
			TransferChunkSize: 8192,
			WriteRetries:      3,
		},
		Archive: ArchiveConfig{
			Enabled:     false,
			Compression: "zstd",
			Keep:        5,
		},
	}
}

// Load resolves the configuration source: flagPath if non-empty, else
// the CDRBILL_CONFIG environment variable, else [Default] with
// variables expanded.
func Load(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. Files ending
// in .json or .jsonc are parsed as JSON with comments; everything else
// as YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return yaml.Unmarshal(data, c)
	}
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: keep previous reports.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Archive: &ArchiveConfig{Enabled: true},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Server != nil {
		if overrides.Server.Listen != "" {
			c.Server.Listen = overrides.Server.Listen
		}
		if overrides.Server.MaxLine != 0 {
			c.Server.MaxLine = overrides.Server.MaxLine
		}
		if overrides.Server.IdleTimeout != "" {
			c.Server.IdleTimeout = overrides.Server.IdleTimeout
		}
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.CDRSource != "" {
			c.Paths.CDRSource = overrides.Paths.CDRSource
		}
		if overrides.Paths.Output != "" {
			c.Paths.Output = overrides.Paths.Output
		}
		if overrides.Paths.Credentials != "" {
			c.Paths.Credentials = overrides.Paths.Credentials
		}
		if overrides.Paths.AuditLog != "" {
			c.Paths.AuditLog = overrides.Paths.AuditLog
		}
	}

	if overrides.Processing != nil {
		if overrides.Processing.CustomerTagMatch != "" {
			c.Processing.CustomerTagMatch = overrides.Processing.CustomerTagMatch
		}
		if overrides.Processing.DisplayBatchLines != 0 {
			c.Processing.DisplayBatchLines = overrides.Processing.DisplayBatchLines
		}
		if overrides.Processing.DisplayBatchDelay != "" {
			c.Processing.DisplayBatchDelay = overrides.Processing.DisplayBatchDelay
		}
		if overrides.Processing.TransferChunkSize != 0 {
			c.Processing.TransferChunkSize = overrides.Processing.TransferChunkSize
		}
		if overrides.Processing.WriteRetries != 0 {
			c.Processing.WriteRetries = overrides.Processing.WriteRetries
		}
	}

	if overrides.Archive != nil {
		// Enabled is a bool, so we always apply it from overrides.
		c.Archive.Enabled = overrides.Archive.Enabled
		if overrides.Archive.Compression != "" {
			c.Archive.Compression = overrides.Archive.Compression
		}
		if len(overrides.Archive.Recipients) > 0 {
			c.Archive.Recipients = overrides.Archive.Recipients
		}
		if overrides.Archive.Keep != 0 {
			c.Archive.Keep = overrides.Archive.Keep
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"CDRBILL_ROOT": c.Paths.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.Root = filepath.Clean(expandVars(c.Paths.Root, vars))
	vars["CDRBILL_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.CDRSource = cleanPath(expandVars(c.Paths.CDRSource, vars))
	c.Paths.Output = cleanPath(expandVars(c.Paths.Output, vars))
	c.Paths.Credentials = cleanPath(expandVars(c.Paths.Credentials, vars))
	c.Paths.AuditLog = cleanPath(expandVars(c.Paths.AuditLog, vars))
}

func cleanPath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	if c.Server.MaxLine < 64 {
		errs = append(errs, fmt.Errorf("server.max_line must be at least 64, got %d", c.Server.MaxLine))
	}
	if c.Server.IdleTimeout != "" {
		if _, err := c.Server.IdleTimeoutDuration(); err != nil {
			errs = append(errs, fmt.Errorf("server.idle_timeout: %w", err))
		}
	}

	if c.Paths.CDRSource == "" {
		errs = append(errs, errors.New("paths.cdr_source is required"))
	}
	if c.Paths.Output == "" {
		errs = append(errs, errors.New("paths.output is required"))
	}
	if c.Paths.Credentials == "" {
		errs = append(errs, errors.New("paths.credentials is required"))
	}

	tagMatches := []string{"exact", "fold"}
	if !slices.Contains(tagMatches, c.Processing.CustomerTagMatch) {
		errs = append(errs, fmt.Errorf("processing.customer_tag_match must be one of: %v", tagMatches))
	}
	if c.Processing.DisplayBatchLines < 1 {
		errs = append(errs, errors.New("processing.display_batch_lines must be positive"))
	}
	if _, err := c.Processing.BatchDelay(); err != nil {
		errs = append(errs, fmt.Errorf("processing.display_batch_delay: %w", err))
	}
	if c.Processing.TransferChunkSize < 1 {
		errs = append(errs, errors.New("processing.transfer_chunk_size must be positive"))
	}
	if c.Processing.WriteRetries < 0 {
		errs = append(errs, errors.New("processing.write_retries must not be negative"))
	}

	compressions := []string{"zstd", "lz4", "none"}
	if !slices.Contains(compressions, c.Archive.Compression) {
		errs = append(errs, fmt.Errorf("archive.compression must be one of: %v", compressions))
	}
	if c.Archive.Enabled && c.Archive.Keep < 1 {
		errs = append(errs, errors.New("archive.keep must be positive when archiving is enabled"))
	}
	for _, recipient := range c.Archive.Recipients {
		if !strings.HasPrefix(recipient, "age1") {
			errs = append(errs, fmt.Errorf("archive.recipients: %q is not an age public key", recipient))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// IdleTimeoutDuration parses IdleTimeout. Empty means no timeout.
func (s ServerConfig) IdleTimeoutDuration() (time.Duration, error) {
	if s.IdleTimeout == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(s.IdleTimeout)
	if err != nil {
		return 0, err
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %s", s.IdleTimeout)
	}
	return duration, nil
}

// BatchDelay parses DisplayBatchDelay.
func (p ProcessingConfig) BatchDelay() (time.Duration, error) {
	duration, err := time.ParseDuration(p.DisplayBatchDelay)
	if err != nil {
		return 0, err
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %s", p.DisplayBatchDelay)
	}
	return duration, nil
}

// EnsurePaths creates the output directory and the parent directories
// of the credential database and audit log.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Paths.Output, filepath.Dir(c.Paths.Credentials)}
	if c.Paths.AuditLog != "" {
		paths = append(paths, filepath.Dir(c.Paths.AuditLog))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
