package providers

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/zero-day-ai/graphask/internal/llm"
)

// GoogleProvider implements LLMProvider for Google's Gemini models
type GoogleProvider struct {
	langchainProvider
}

// NewGoogleProvider creates a new Google provider. The API key falls back to GOOGLE_API_KEY.
func NewGoogleProvider(ctx context.Context, cfg llm.ProviderConfig) (*GoogleProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	if apiKey == "" {
		return nil, llm.NewProviderUnauthorizedError("google", nil)
	}

	opts := []googleai.Option{
		googleai.WithAPIKey(apiKey),
	}

	if cfg.DefaultModel != "" {
		opts = append(opts, googleai.WithDefaultModel(cfg.DefaultModel))
	}

	client, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, llm.TranslateError("google", err)
	}

	return &GoogleProvider{langchainProvider{name: "google", client: client, config: cfg}}, nil
}
