package providers

import (
	"os"

	"github.com/tmc/langchaingo/llms/openai"
	"github.com/zero-day-ai/graphask/internal/llm"
)

// OpenAIProvider implements LLMProvider for OpenAI and OpenAI-compatible endpoints.
type OpenAIProvider struct {
	langchainProvider
}

// NewOpenAIProvider creates a new OpenAI provider. The API key falls back to OPENAI_API_KEY.
func NewOpenAIProvider(cfg llm.ProviderConfig) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if apiKey == "" {
		return nil, llm.NewProviderUnauthorizedError("openai", nil)
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
	}

	if cfg.DefaultModel != "" {
		opts = append(opts, openai.WithModel(cfg.DefaultModel))
	}

	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("openai", err)
	}

	return &OpenAIProvider{langchainProvider{name: "openai", client: client, config: cfg}}, nil
}
