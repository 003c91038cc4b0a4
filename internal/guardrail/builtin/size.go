package builtin

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/graphask/internal/guardrail"
)

// SizeLimit blocks candidates longer than MaxBytes.
type SizeLimit struct {
	MaxBytes int
}

func (s SizeLimit) Name() string { return "size-limit" }

func (s SizeLimit) Type() guardrail.GuardrailType { return guardrail.GuardrailTypeSize }

func (s SizeLimit) CheckInput(ctx context.Context, input guardrail.GuardrailInput) (guardrail.GuardrailResult, error) {
	if s.MaxBytes > 0 && len(input.Content) > s.MaxBytes {
		return guardrail.NewBlockResult(fmt.Sprintf("candidate is %d bytes, limit is %d", len(input.Content), s.MaxBytes)), nil
	}
	return guardrail.NewAllowResult(), nil
}
