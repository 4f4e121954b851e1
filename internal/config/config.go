// Package config loads the tradecompass configuration. A missing file is
// not an error: defaults apply, then environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all tradecompass configuration.
type Config struct {
	// Backend configures the remote generation client.
	Backend BackendConfig `yaml:"backend"`

	// Models maps stage names to model ids. Stages not listed use
	// DefaultModel.
	Models       map[string]string `yaml:"models"`
	DefaultModel string            `yaml:"default_model"`

	// PolicyPath points at the doctrine policy YAML. Empty means the
	// built-in policy.
	PolicyPath string `yaml:"policy_path"`

	// PromptsPath points at the prompt source YAML. Empty means the
	// built-in prompts.
	PromptsPath string `yaml:"prompts_path"`

	// StorePath is the SQLite artifact store location. Empty means
	// in-memory persistence only.
	StorePath string `yaml:"store_path"`

	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the remote generation backend.
type BackendConfig struct {
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Verbose bool   `yaml:"verbose"`
}

// DefaultConfig returns the deterministic zero-credential setup: every
// stage on rules/v1, in-memory store, info logging.
func DefaultConfig() *Config {
	return &Config{
		Backend:      BackendConfig{Timeout: "60s"},
		Models:       map[string]string{},
		DefaultModel: "rules/v1",
		Logging:      LoggingConfig{Level: "info"},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file is absent. Environment overrides apply last either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Backend.APIKey = key
	}
	if model := os.Getenv("TRADECOMPASS_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if path := os.Getenv("TRADECOMPASS_STORE"); path != "" {
		c.StorePath = path
	}
}
