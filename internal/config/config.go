// Package config provides unified configuration loading for doorsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DirName is the per-user and per-project state directory.
	DirName = ".doorsim"

	// FileName is the config file inside DirName.
	FileName = "config.yaml"
)

// Config contains all doorsim configuration settings.
type Config struct {
	// Grid sets the dimensions of the simulated sensor array.
	Grid GridConfig `json:"grid" yaml:"grid"`

	// Synthesis contains settings for the generate command.
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis"`

	// Verify contains the default paths of the verify command.
	Verify VerifyConfig `json:"verify" yaml:"verify"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// History controls the run ledger.
	History HistoryConfig `json:"history" yaml:"history"`
}

// GridConfig sets how many floors and doors per floor are simulated.
type GridConfig struct {
	Doors  int `json:"doors" yaml:"doors"`
	Floors int `json:"floors" yaml:"floors"`
}

// SynthesisConfig configures event log generation.
type SynthesisConfig struct {
	// Seed fixes the random source. 0 derives a seed from the clock.
	Seed uint64 `json:"seed" yaml:"seed"`

	// RetryThreshold is how many consecutive collisions are tolerated
	// before a linear repair scan runs.
	RetryThreshold int `json:"retry_threshold" yaml:"retry_threshold"`

	// Output is the path of the generated CSV.
	Output string `json:"output" yaml:"output"`

	// Distribution is an optional YAML distribution table. Empty selects
	// the built-in table.
	Distribution string `json:"distribution,omitempty" yaml:"distribution,omitempty"`
}

// VerifyConfig holds the default reference and candidate paths.
type VerifyConfig struct {
	Mock      string `json:"mock" yaml:"mock"`
	Extracted string `json:"extracted" yaml:"extracted"`
}

// LoggingConfig configures doorsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "warn", "info" (default), "debug", or "trace".
	// "debug" enables the repair trace in .doorsim/trace.jsonl.
	Level string `json:"level" yaml:"level"`
}

// HistoryConfig configures the SQLite run ledger.
type HistoryConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Default returns a Config with the tool's stock settings.
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			Doors:  20,
			Floors: 10,
		},
		Synthesis: SynthesisConfig{
			Seed:           0,
			RetryThreshold: 1000,
			Output:         "mock_data.csv",
		},
		Verify: VerifyConfig{
			Mock:      "../1_mock_data/mock_data.csv",
			Extracted: "../4_extract_TEXT/extracted_text.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// DefaultPath returns ~/.doorsim/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, FileName), nil
}

// Load loads configuration and applies environment variable overrides.
// Order: defaults -> path (or ~/.doorsim/config.yaml) -> environment variables.
// An explicit path must exist; the default path is optional.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	} else if defaultPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(defaultPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(defaultPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Synthesis.Output = expandEnvVars(config.Synthesis.Output)
	config.Synthesis.Distribution = expandEnvVars(config.Synthesis.Distribution)
	config.Verify.Mock = expandEnvVars(config.Verify.Mock)
	config.Verify.Extracted = expandEnvVars(config.Verify.Extracted)

	return config, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Grid.Doors <= 0 {
		return fmt.Errorf("grid.doors must be positive, got %d", c.Grid.Doors)
	}
	if c.Grid.Floors <= 0 {
		return fmt.Errorf("grid.floors must be positive, got %d", c.Grid.Floors)
	}

	if c.Synthesis.RetryThreshold < 0 {
		return fmt.Errorf("synthesis.retry_threshold must be non-negative, got %d", c.Synthesis.RetryThreshold)
	}
	if c.Synthesis.Output == "" {
		return errors.New("synthesis.output must not be empty")
	}

	validLevels := map[string]bool{"warn": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// Keys lists every key accepted by Get and Set, in display order.
func Keys() []string {
	return []string{
		"grid.doors",
		"grid.floors",
		"synthesis.seed",
		"synthesis.retry_threshold",
		"synthesis.output",
		"synthesis.distribution",
		"verify.mock",
		"verify.extracted",
		"logging.level",
		"history.enabled",
	}
}

// Get retrieves a configuration value by dot-notation key.
func (c *Config) Get(key string) (any, bool) {
	switch key {
	case "grid.doors":
		return c.Grid.Doors, true
	case "grid.floors":
		return c.Grid.Floors, true
	case "synthesis.seed":
		return c.Synthesis.Seed, true
	case "synthesis.retry_threshold":
		return c.Synthesis.RetryThreshold, true
	case "synthesis.output":
		return c.Synthesis.Output, true
	case "synthesis.distribution":
		return c.Synthesis.Distribution, true
	case "verify.mock":
		return c.Verify.Mock, true
	case "verify.extracted":
		return c.Verify.Extracted, true
	case "logging.level":
		return c.Logging.Level, true
	case "history.enabled":
		return c.History.Enabled, true
	default:
		return nil, false
	}
}

// Set sets a configuration value by dot-notation key. The result is
// validated before it is kept.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "grid.doors":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid door count: %s", value)
		}
		next.Grid.Doors = n
	case "grid.floors":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid floor count: %s", value)
		}
		next.Grid.Floors = n
	case "synthesis.seed":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %s", value)
		}
		next.Synthesis.Seed = n
	case "synthesis.retry_threshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retry threshold: %s", value)
		}
		next.Synthesis.RetryThreshold = n
	case "synthesis.output":
		next.Synthesis.Output = value
	case "synthesis.distribution":
		next.Synthesis.Distribution = value
	case "verify.mock":
		next.Verify.Mock = value
	case "verify.extracted":
		next.Verify.Extracted = value
	case "logging.level":
		next.Logging.Level = value
	case "history.enabled":
		next.History.Enabled = parseBool(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numbers are rejected rather than ignored.
func applyEnvOverrides(config *Config) error {
	if v := os.Getenv("DOORSIM_DOORS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOORSIM_DOORS: %w", err)
		}
		config.Grid.Doors = n
	}

	if v := os.Getenv("DOORSIM_FLOORS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOORSIM_FLOORS: %w", err)
		}
		config.Grid.Floors = n
	}

	if v := os.Getenv("DOORSIM_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DOORSIM_SEED: %w", err)
		}
		config.Synthesis.Seed = n
	}

	if v := os.Getenv("DOORSIM_RETRY_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOORSIM_RETRY_THRESHOLD: %w", err)
		}
		config.Synthesis.RetryThreshold = n
	}

	if v := os.Getenv("DOORSIM_OUTPUT"); v != "" {
		config.Synthesis.Output = v
	}

	if v := os.Getenv("DOORSIM_DISTRIBUTION"); v != "" {
		config.Synthesis.Distribution = v
	}

	if v := os.Getenv("DOORSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("DOORSIM_HISTORY"); v != "" {
		config.History.Enabled = parseBool(v)
	}

	return nil
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
