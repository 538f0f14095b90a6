package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/anvil-dev/anvil/internal/secrets"
)

// Config represents the full Anvil configuration.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Budget   BudgetConfig   `mapstructure:"budget"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ProviderConfig describes the generative backend.
type ProviderConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	// APIKey is used verbatim when set. APIKeySecret names a GCP Secret
	// Manager secret to resolve instead, for hosted deployments.
	APIKey         string `mapstructure:"api_key"`
	APIKeySecret   string `mapstructure:"api_key_secret"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	MaxTokens      int    `mapstructure:"max_tokens"`
}

// Timeout returns the per-attempt request timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// BudgetConfig bounds conversation size sent to the backend.
type BudgetConfig struct {
	MaxContextTokens int     `mapstructure:"max_context_tokens"`
	CharsPerToken    float64 `mapstructure:"chars_per_token"`
}

// MemoryConfig bounds the persisted project memory.
type MemoryConfig struct {
	MaxEntries       int `mapstructure:"max_entries"`
	MaxBytes         int `mapstructure:"max_bytes"`
	CompactionTarget int `mapstructure:"compaction_target"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "openai"
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = "gpt-4o-mini"
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 60
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 2
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 2048
	}

	if cfg.Budget.MaxContextTokens == 0 {
		cfg.Budget.MaxContextTokens = 8000
	}
	if cfg.Budget.CharsPerToken == 0 {
		cfg.Budget.CharsPerToken = 4.0
	}

	if cfg.Memory.MaxEntries == 0 {
		cfg.Memory.MaxEntries = 100
	}
	if cfg.Memory.MaxBytes == 0 {
		cfg.Memory.MaxBytes = 256 * 1024
	}
	if cfg.Memory.CompactionTarget == 0 {
		cfg.Memory.CompactionTarget = 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// ResolveAPIKey returns the provider API key, fetching it from Secret
// Manager when a secret reference is configured.
func (c *Config) ResolveAPIKey(ctx context.Context) (string, error) {
	if c.Provider.APIKey != "" {
		return c.Provider.APIKey, nil
	}
	if strings.TrimSpace(c.Provider.APIKeySecret) == "" {
		return "", nil
	}

	fetcher, err := secrets.NewManager(ctx)
	if err != nil {
		return "", fmt.Errorf("create secret manager: %w", err)
	}
	defer fetcher.Close()

	key, err := fetcher.Fetch(ctx, c.Provider.APIKeySecret)
	if err != nil {
		return "", fmt.Errorf("resolve api key secret: %w", err)
	}
	return strings.TrimSpace(key), nil
}
