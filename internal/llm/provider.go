package llm

import (
	"context"

	"github.com/zero-day-ai/graphask/internal/types"
)

// LLMProvider is a chat-completion backend (OpenAI, Anthropic, Ollama, ...).
// The engine never talks to a provider directly; it goes through an Oracle.
type LLMProvider interface {
	// Name returns the provider name (e.g., "anthropic", "openai", "ollama")
	Name() string

	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Health checks the health status of the provider and its connectivity
	Health(ctx context.Context) types.HealthStatus
}
