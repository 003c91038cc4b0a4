package providers

import (
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/zero-day-ai/graphask/internal/llm"
)

// DefaultOllamaURL is used when the provider config leaves base_url empty.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaProvider implements LLMProvider for local Ollama models.
type OllamaProvider struct {
	langchainProvider
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(cfg llm.ProviderConfig) (*OllamaProvider, error) {
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = DefaultOllamaURL
	}

	opts := []ollama.Option{
		ollama.WithServerURL(serverURL),
	}

	if cfg.DefaultModel != "" {
		opts = append(opts, ollama.WithModel(cfg.DefaultModel))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("ollama", err)
	}

	return &OllamaProvider{langchainProvider{name: "ollama", client: client, config: cfg}}, nil
}
