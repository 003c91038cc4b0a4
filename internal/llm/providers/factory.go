package providers

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/graphask/internal/llm"
	"github.com/zero-day-ai/graphask/internal/types"
)

// NewProvider creates an LLM provider from its configuration.
func NewProvider(ctx context.Context, cfg llm.ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case llm.ProviderAnthropic:
		return NewAnthropicProvider(cfg)

	case llm.ProviderOpenAI:
		return NewOpenAIProvider(cfg)

	case llm.ProviderGoogle:
		return NewGoogleProvider(ctx, cfg)

	case llm.ProviderOllama:
		return NewOllamaProvider(cfg)

	case llm.ProviderMock:
		return NewMockProvider(cfg.Responses), nil

	default:
		return nil, types.NewError(llm.ErrProviderInitFailed, fmt.Sprintf("unknown provider type: %s", cfg.Type))
	}
}

// NewOracle builds the oracle for the default provider of cfg, rate limited
// when cfg.RateLimit asks for it.
func NewOracle(ctx context.Context, cfg llm.LLMConfig, opts ...llm.OracleOption) (llm.Oracle, llm.LLMProvider, error) {
	pcfg, err := cfg.Default()
	if err != nil {
		return nil, nil, err
	}

	provider, err := NewProvider(ctx, pcfg)
	if err != nil {
		return nil, nil, types.WrapError(llm.ErrProviderInitFailed,
			fmt.Sprintf("failed to initialize provider %q", cfg.DefaultProvider), err)
	}

	oracle := llm.NewRateLimitedOracle(llm.NewProviderOracle(provider, pcfg, opts...), cfg.RateLimit)
	return oracle, provider, nil
}
