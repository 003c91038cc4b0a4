package guardrail

// GuardrailInput is the candidate under inspection.
type GuardrailInput struct {
	// Content is the candidate body, exactly as it will be executed.
	Content string `json:"content"`

	// Language is the fence info string of the candidate ("cypher", "python", ...).
	Language string `json:"language,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// GuardrailAction defines the action taken by a guardrail
type GuardrailAction string

const (
	GuardrailActionAllow GuardrailAction = "allow"
	GuardrailActionBlock GuardrailAction = "block"
	GuardrailActionWarn  GuardrailAction = "warn"
)

// GuardrailResult represents the result of a guardrail check
type GuardrailResult struct {
	Action   GuardrailAction `json:"action"`
	Reason   string          `json:"reason,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// IsBlocked returns true if the action is block
func (r GuardrailResult) IsBlocked() bool {
	return r.Action == GuardrailActionBlock
}

// AllowContinue returns true if execution should continue (allow or warn)
func (r GuardrailResult) AllowContinue() bool {
	return r.Action == GuardrailActionAllow || r.Action == GuardrailActionWarn
}

// NewAllowResult creates a result that allows the operation
func NewAllowResult() GuardrailResult {
	return GuardrailResult{
		Action:   GuardrailActionAllow,
		Metadata: make(map[string]any),
	}
}

// NewBlockResult creates a result that blocks the operation
func NewBlockResult(reason string) GuardrailResult {
	return GuardrailResult{
		Action:   GuardrailActionBlock,
		Reason:   reason,
		Metadata: make(map[string]any),
	}
}

// NewWarnResult creates a result that warns but allows the operation
func NewWarnResult(reason string) GuardrailResult {
	return GuardrailResult{
		Action:   GuardrailActionWarn,
		Reason:   reason,
		Metadata: make(map[string]any),
	}
}
