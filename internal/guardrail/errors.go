package guardrail

import (
	"fmt"

	"github.com/zero-day-ai/graphask/internal/types"
)

// Guardrail error codes
const (
	ErrGuardrailBlocked       types.ErrorCode = "GUARDRAIL_BLOCKED"
	ErrGuardrailConfigInvalid types.ErrorCode = "GUARDRAIL_CONFIG_INVALID"
	ErrGuardrailExecution     types.ErrorCode = "GUARDRAIL_EXECUTION"
)

// GuardrailBlockedError is returned by the pipeline when a guardrail blocks a candidate.
type GuardrailBlockedError struct {
	GuardrailName string
	GuardrailType GuardrailType
	Reason        string
}

func (e *GuardrailBlockedError) Error() string {
	return fmt.Sprintf("guardrail '%s' (%s) blocked operation: %s",
		e.GuardrailName, e.GuardrailType, e.Reason)
}

// Is matches a *types.Error carrying ErrGuardrailBlocked.
func (e *GuardrailBlockedError) Is(target error) bool {
	t, ok := target.(*types.Error)
	return ok && t.Code == ErrGuardrailBlocked
}

// NewGuardrailBlockedError creates a new GuardrailBlockedError
func NewGuardrailBlockedError(name string, guardType GuardrailType, reason string) *GuardrailBlockedError {
	return &GuardrailBlockedError{
		GuardrailName: name,
		GuardrailType: guardType,
		Reason:        reason,
	}
}
