// Package config loads and validates docdex configuration.
//
// Configuration is resolved in priority order:
//  1. Environment variables (DOCDEX_*) - highest priority
//  2. Project config (.docdex.yaml in the working directory)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	errs "github.com/docdex/docdex/internal/errors"
)

// ConfigFileName is the project-level config file name.
const ConfigFileName = ".docdex.yaml"

// DataDirName is the directory holding the index and telemetry database.
const DataDirName = ".docdex"

// Config represents the complete docdex configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Refresh   RefreshConfig   `yaml:"refresh" json:"refresh"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// IndexConfig configures the on-disk index location.
type IndexConfig struct {
	// Path is the index directory. Defaults to <cwd>/.docdex/index.
	Path string `yaml:"path" json:"path"`
}

// ChunkingConfig configures the document chunker.
type ChunkingConfig struct {
	// MaxWords is the chunk window size in words.
	MaxWords int `yaml:"max_words" json:"max_words"`
	// OverlapWords is the number of words consecutive chunks share.
	// Must be strictly less than MaxWords.
	OverlapWords int `yaml:"overlap_words" json:"overlap_words"`
}

// SearchConfig configures query execution.
type SearchConfig struct {
	// MaxResults is the number of ranked hits returned per query.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// RefreshConfig configures the reader refresh coordinator.
type RefreshConfig struct {
	// Debounce is the quiet period between reader reopens, e.g. "30s".
	Debounce string `yaml:"debounce" json:"debounce"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// TelemetryConfig configures local query telemetry.
// All telemetry stays on disk next to the index; nothing is reported anywhere.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Path: filepath.Join(DataDirName, "index"),
		},
		Chunking: ChunkingConfig{
			MaxWords:     250,
			OverlapWords: 40,
		},
		Search: SearchConfig{
			MaxResults: 10,
		},
		Refresh: RefreshConfig{
			Debounce: "30s",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			Path:    filepath.Join(DataDirName, "telemetry.db"),
		},
	}
}

// Load reads configuration from the given YAML file, applying defaults for
// unset fields and environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeConfigInvalid, fmt.Errorf("read config %s: %w", path, err))
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(errs.ErrCodeConfigInvalid, fmt.Errorf("parse config %s: %w", path, err))
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads .docdex.yaml from dir when present, otherwise returns
// defaults with environment overrides applied.
func LoadOrDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := NewConfig()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies DOCDEX_* environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("DOCDEX_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("DOCDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("DOCDEX_REFRESH_DEBOUNCE"); v != "" {
		c.Refresh.Debounce = v
	}
	if v := os.Getenv("DOCDEX_TELEMETRY"); v == "off" || v == "false" || v == "0" {
		c.Telemetry.Enabled = false
	}
}

// Validate checks configuration invariants.
// An overlap window at or above the chunk window would make the chunker
// stride non-positive, so it is rejected here rather than at split time.
func (c *Config) Validate() error {
	if c.Chunking.MaxWords <= 0 {
		return errs.Newf(errs.ErrCodeConfigInvalid, "chunking.max_words must be positive, got %d", c.Chunking.MaxWords)
	}
	if c.Chunking.OverlapWords < 0 {
		return errs.Newf(errs.ErrCodeConfigInvalid, "chunking.overlap_words must not be negative, got %d", c.Chunking.OverlapWords)
	}
	if c.Chunking.OverlapWords >= c.Chunking.MaxWords {
		return errs.Newf(errs.ErrCodeBadChunkWindow,
			"chunking.overlap_words (%d) must be less than chunking.max_words (%d)",
			c.Chunking.OverlapWords, c.Chunking.MaxWords)
	}
	if c.Search.MaxResults <= 0 {
		return errs.Newf(errs.ErrCodeConfigInvalid, "search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if _, err := c.RefreshDebounce(); err != nil {
		return errs.Newf(errs.ErrCodeConfigInvalid, "refresh.debounce: %v", err)
	}
	if c.Server.Transport != "stdio" {
		return errs.Newf(errs.ErrCodeConfigInvalid, "server.transport must be stdio, got %q", c.Server.Transport)
	}
	return nil
}

// RefreshDebounce parses the refresh debounce window.
func (c *Config) RefreshDebounce() (time.Duration, error) {
	d, err := time.ParseDuration(c.Refresh.Debounce)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// Save writes the configuration to the given path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
