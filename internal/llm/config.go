package llm

import (
	"fmt"

	"github.com/zero-day-ai/graphask/internal/types"
)

// ProviderType represents the type of LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
	ProviderMock      ProviderType = "mock"
)

// requiresAPIKey reports whether the provider cannot run without credentials.
// Keys may still come from the provider's usual environment variable.
func (t ProviderType) requiresAPIKey() bool {
	return t == ProviderAnthropic || t == ProviderOpenAI || t == ProviderGoogle
}

// LLMConfig selects the provider that backs the generation oracle.
type LLMConfig struct {
	DefaultProvider string                    `mapstructure:"default_provider" yaml:"default_provider" validate:"required"`
	Providers       map[string]ProviderConfig `mapstructure:"providers" yaml:"providers" validate:"required,min=1,dive"`
	RateLimit       RateLimitConfig           `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// Validate ensures the default provider exists and every provider is well formed.
func (c *LLMConfig) Validate() error {
	if c.DefaultProvider == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "default_provider cannot be empty")
	}

	if len(c.Providers) == 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "providers map cannot be empty")
	}

	if _, exists := c.Providers[c.DefaultProvider]; !exists {
		return types.NewError(
			types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("default_provider '%s' not found in providers map", c.DefaultProvider),
		)
	}

	for name, provider := range c.Providers {
		if err := provider.Validate(); err != nil {
			return types.WrapError(
				types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("provider '%s' validation failed", name),
				err,
			)
		}
	}

	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "rate_limit values must be non-negative")
	}

	return nil
}

// Default returns the configuration of the default provider.
func (c *LLMConfig) Default() (ProviderConfig, error) {
	p, ok := c.Providers[c.DefaultProvider]
	if !ok {
		return ProviderConfig{}, NewProviderNotFoundError(c.DefaultProvider)
	}
	return p, nil
}

// ProviderConfig contains configuration for a specific LLM provider.
type ProviderConfig struct {
	Type         ProviderType `mapstructure:"type" yaml:"type" validate:"required,oneof=anthropic openai google ollama mock"`
	APIKey       string       `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL      string       `mapstructure:"base_url" yaml:"base_url,omitempty"`
	DefaultModel string       `mapstructure:"default_model" yaml:"default_model"`
	Temperature  float64      `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int          `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gte=0"`

	// Responses are replayed in order by the mock provider.
	Responses []string `mapstructure:"responses" yaml:"responses,omitempty"`
}

// Validate performs validation on the ProviderConfig.
func (p *ProviderConfig) Validate() error {
	switch p.Type {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama, ProviderMock:
	case "":
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "provider type cannot be empty")
	default:
		return types.NewError(
			types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("invalid provider type '%s', must be one of: anthropic, openai, google, ollama, mock", p.Type),
		)
	}

	if p.Type != ProviderMock && p.DefaultModel == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "default_model cannot be empty")
	}

	if p.Temperature < 0 || p.Temperature > 2 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "temperature must be between 0 and 2")
	}

	if p.MaxTokens < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "max_tokens must be non-negative")
	}

	return nil
}

// RateLimitConfig throttles oracle calls. Zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" yaml:"burst" validate:"gte=0"`
}
