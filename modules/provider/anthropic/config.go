package anthropic

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	// defaultModel is pinned to a dated release for reproducibility.
	defaultModel       = "claude-3-5-haiku-20241022"
	defaultAPIKeyEnv   = "ANTHROPIC_API_KEY"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7

	// defaultTimeout bounds the wait for response headers only.
	defaultTimeout = 30 * time.Second
)

// Config holds the YAML-decoded configuration for the Anthropic provider.
type Config struct {
	APIKey      string        `yaml:"api_key"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// defaults fills in zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAPIKeyEnv
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature == nil {
		t := defaultTemperature
		c.Temperature = &t
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// resolveKey returns api_key, falling back to the api_key_env variable.
func (c *Config) resolveKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv(c.APIKeyEnv)
}

func (c *Config) validate() error {
	if c.Model == "" {
		return errors.New("provider.anthropic: model must not be empty")
	}
	if c.APIKey == "" {
		return fmt.Errorf("provider.anthropic: api_key is required (or set %s)", c.APIKeyEnv)
	}
	if c.MaxTokens <= 0 {
		return errors.New("provider.anthropic: max_tokens must be positive")
	}
	if t := c.Temperature; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("provider.anthropic: temperature must be between 0 and 1, got %v", *t)
	}
	return nil
}
