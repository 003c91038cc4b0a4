package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/zero-day-ai/graphask/internal/types"
)

// Oracle turns a prompt into text. It is the only model capability the
// query engine depends on.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, prompt string) (string, error)

func (f OracleFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ProviderOracle sends each prompt as a single user message to an LLMProvider.
type ProviderOracle struct {
	provider LLMProvider
	cfg      ProviderConfig
	system   string
}

// OracleOption configures a ProviderOracle.
type OracleOption func(*ProviderOracle)

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) OracleOption {
	return func(o *ProviderOracle) {
		o.system = prompt
	}
}

// NewProviderOracle wraps provider; model and sampling settings come from cfg.
func NewProviderOracle(provider LLMProvider, cfg ProviderConfig, opts ...OracleOption) *ProviderOracle {
	o := &ProviderOracle{provider: provider, cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Complete implements Oracle.
func (o *ProviderOracle) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", TranslateError(o.provider.Name(), err)
	}

	messages := make([]Message, 0, 2)
	if o.system != "" {
		messages = append(messages, NewSystemMessage(o.system))
	}
	messages = append(messages, NewUserMessage(prompt))

	req := NewCompletionRequest(o.cfg.DefaultModel, messages,
		WithTemperature(o.cfg.Temperature),
		WithMaxTokens(o.cfg.MaxTokens),
	)
	if err := req.Validate(); err != nil {
		return "", err
	}

	resp, err := o.provider.Complete(ctx, req)
	if err != nil {
		return "", TranslateError(o.provider.Name(), err)
	}
	if resp == nil || strings.TrimSpace(resp.Message.Content) == "" {
		return "", types.NewError(ErrEmptyResponse, "provider "+o.provider.Name()+" returned no content")
	}
	if resp.FinishReason == FinishReasonContentFilter {
		return "", types.NewError(ErrContentFiltered, "provider "+o.provider.Name()+" filtered the response")
	}
	return resp.Message.Content, nil
}

// Health reports the wrapped provider's health.
func (o *ProviderOracle) Health(ctx context.Context) types.HealthStatus {
	return o.provider.Health(ctx)
}

// StaticOracle replays scripted replies in order and records every prompt.
// Once the script is exhausted it returns an error.
type StaticOracle struct {
	mu      sync.Mutex
	replies []string
	errs    map[int]error
	prompts []string
}

// NewStaticOracle returns an oracle that answers with replies, in order.
func NewStaticOracle(replies ...string) *StaticOracle {
	return &StaticOracle{replies: replies, errs: make(map[int]error)}
}

// FailOn makes the call with the given zero-based index return err.
func (s *StaticOracle) FailOn(call int, err error) *StaticOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[call] = err
	return s
}

// Complete implements Oracle.
func (s *StaticOracle) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := len(s.prompts)
	s.prompts = append(s.prompts, prompt)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := s.errs[call]; ok {
		return "", err
	}
	if call >= len(s.replies) {
		return "", types.NewError(ErrNoScriptedReplies, "static oracle has no reply for this call")
	}
	return s.replies[call], nil
}

// Prompts returns a copy of every prompt received so far.
func (s *StaticOracle) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Calls returns the number of Complete calls.
func (s *StaticOracle) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

var (
	_ Oracle = (*ProviderOracle)(nil)
	_ Oracle = (*StaticOracle)(nil)
	_ Oracle = OracleFunc(nil)
)
