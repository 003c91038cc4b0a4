package synth

import (
	"fmt"

	"github.com/zero-day-ai/graphask/internal/types"
)

// SafetyMode selects how strictly candidates are checked before execution.
type SafetyMode string

const (
	// SafetyReadOnly rejects any candidate that could modify the graph.
	SafetyReadOnly SafetyMode = "read_only"
	// SafetyUnrestricted allows every candidate.
	SafetyUnrestricted SafetyMode = "unrestricted"
)

func (m SafetyMode) IsValid() bool {
	return m == SafetyReadOnly || m == SafetyUnrestricted
}

// EngineConfig controls one engine. It is immutable once validated and safe
// to share across concurrent calls.
type EngineConfig struct {
	// MaxAttempts bounds generation oracle calls per question.
	MaxAttempts int `json:"max_attempts"`

	// TopK caps the rows returned from one successful execution.
	TopK int `json:"top_k"`

	PerformExplanation bool `json:"perform_explanation"`
	ReturnRawResult    bool `json:"return_raw_result"`
	ReturnCandidate    bool `json:"return_candidate"`

	// Examples are worked question/query pairs rendered into generation prompts.
	Examples []Example `json:"examples,omitempty"`

	SafetyMode SafetyMode `json:"safety_mode"`
}

// DefaultEngineConfig returns three attempts, ten rows, raw results and read-only safety.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxAttempts:     3,
		TopK:            10,
		ReturnRawResult: true,
		SafetyMode:      SafetyReadOnly,
	}
}

// ConfigOption adjusts an EngineConfig under construction.
type ConfigOption func(*EngineConfig)

func WithMaxAttempts(n int) ConfigOption {
	return func(c *EngineConfig) { c.MaxAttempts = n }
}

func WithTopK(k int) ConfigOption {
	return func(c *EngineConfig) { c.TopK = k }
}

// WithOutput selects which parts of the result are produced.
func WithOutput(explanation, rawResult, candidate bool) ConfigOption {
	return func(c *EngineConfig) {
		c.PerformExplanation = explanation
		c.ReturnRawResult = rawResult
		c.ReturnCandidate = candidate
	}
}

func WithExamples(examples ...Example) ConfigOption {
	return func(c *EngineConfig) { c.Examples = examples }
}

func WithSafetyMode(mode SafetyMode) ConfigOption {
	return func(c *EngineConfig) { c.SafetyMode = mode }
}

// NewEngineConfig applies opts to DefaultEngineConfig and validates the result.
func NewEngineConfig(opts ...ConfigOption) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a usable answer.
func (c EngineConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return types.NewError(ErrCodeInvalidConfig, fmt.Sprintf("max_attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.TopK < 1 {
		return types.NewError(ErrCodeInvalidConfig, fmt.Sprintf("top_k must be at least 1, got %d", c.TopK))
	}
	if !c.PerformExplanation && !c.ReturnRawResult {
		return types.NewError(ErrCodeInvalidConfig, "at least one of perform_explanation and return_raw_result must be enabled")
	}
	if !c.SafetyMode.IsValid() {
		return types.NewError(ErrCodeInvalidConfig, fmt.Sprintf("invalid safety_mode %q", c.SafetyMode))
	}
	for i, ex := range c.Examples {
		if err := ex.Validate(); err != nil {
			return types.WrapError(ErrCodeInvalidConfig, fmt.Sprintf("example %d", i), err)
		}
	}
	return nil
}
