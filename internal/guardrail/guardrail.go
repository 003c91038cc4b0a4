package guardrail

import "context"

// GuardrailType defines the category of guardrail
type GuardrailType string

const (
	GuardrailTypeMutation GuardrailType = "mutation"
	GuardrailTypeContent  GuardrailType = "content"
	GuardrailTypeSize     GuardrailType = "size"
)

// Guardrail inspects a candidate program before it is executed.
type Guardrail interface {
	Name() string
	Type() GuardrailType
	CheckInput(ctx context.Context, input GuardrailInput) (GuardrailResult, error)
}
