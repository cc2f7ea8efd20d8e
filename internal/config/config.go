package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zheng/rdecomp/internal/emit"
	"github.com/zheng/rdecomp/internal/gateway"
	"github.com/zheng/rdecomp/internal/log"
)

// DefaultFile is the project config file looked up in the working directory
const DefaultFile = ".rdecomp.yaml"

// Config holds all configuration for rdecomp
type Config struct {
	// Database is the SQLite program database path
	Database string `yaml:"database" env:"RDECOMP_DATABASE"`

	// Output is where decompile writes the C file
	Output string `yaml:"output" env:"RDECOMP_OUTPUT"`

	// StructOrder is "topo" or "name"
	StructOrder string `yaml:"struct_order" env:"RDECOMP_STRUCT_ORDER"`

	// OnError is "abort" or "placeholder"
	OnError string `yaml:"on_error" env:"RDECOMP_ON_ERROR"`

	// Logging
	LogLevel string `yaml:"log_level" env:"RDECOMP_LOG_LEVEL"`
	LogJSON  bool   `yaml:"log_json" env:"RDECOMP_LOG_JSON"`

	// WatchDebounceMS delays a watch re-run until writes settle
	WatchDebounceMS int `yaml:"watch_debounce_ms" env:"RDECOMP_WATCH_DEBOUNCE_MS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database:        ".rdecomp.db",
		Output:          "decomp.c",
		StructOrder:     string(emit.OrderTopo),
		OnError:         string(gateway.PolicyAbort),
		LogLevel:        "info",
		LogJSON:         false,
		WatchDebounceMS: 500,
	}
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. The config file at path, or ./.rdecomp.yaml when path is empty
// 3. Defaults
//
// A missing default file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case explicit || !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RDECOMP_DATABASE"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("RDECOMP_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("RDECOMP_STRUCT_ORDER"); v != "" {
		cfg.StructOrder = v
	}
	if v := os.Getenv("RDECOMP_ON_ERROR"); v != "" {
		cfg.OnError = v
	}
	if v := os.Getenv("RDECOMP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RDECOMP_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RDECOMP_LOG_JSON %q: %w", v, err)
		}
		cfg.LogJSON = b
	}
	if v := os.Getenv("RDECOMP_WATCH_DEBOUNCE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RDECOMP_WATCH_DEBOUNCE_MS %q: %w", v, err)
		}
		cfg.WatchDebounceMS = ms
	}
	return nil
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database must not be empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output must not be empty")
	}
	if _, err := emit.ParseStructOrder(c.StructOrder); err != nil {
		return fmt.Errorf("struct_order: %w", err)
	}
	if _, err := gateway.ParsePolicy(c.OnError); err != nil {
		return fmt.Errorf("on_error: %w", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.WatchDebounceMS < 0 {
		return fmt.Errorf("watch_debounce_ms must be non-negative")
	}
	return nil
}

// Save writes the configuration to path as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
