package synth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zero-day-ai/graphask/internal/guardrail"
	"github.com/zero-day-ai/graphask/internal/guardrail/builtin"
	"go.opentelemetry.io/otel/trace"
)

// Verdict is the safety guard's decision on one candidate.
type Verdict struct {
	Allowed   bool
	Guardrail string
	Reason    string
}

// SafetyGuard decides whether a candidate may run. Cypher candidates always
// pass the mutation guard in read-only mode; scripts run against a frozen
// snapshot and only see the configured extra guardrails.
type SafetyGuard struct {
	pipeline *guardrail.GuardrailPipeline
}

// NewSafetyGuard builds the guard for dialect with extra operator guardrails
// appended after the built-in ones.
func NewSafetyGuard(dialect Dialect, extra []guardrail.Guardrail, tracer trace.Tracer, logger *slog.Logger) *SafetyGuard {
	var rails []guardrail.Guardrail
	if dialect == DialectCypher {
		rails = append(rails, builtin.NewMutationGuard())
	}
	rails = append(rails, extra...)

	pipeline := guardrail.NewGuardrailPipeline(rails...).WithLogger(logger)
	if tracer != nil {
		pipeline = pipeline.WithTracer(tracer)
	}
	return &SafetyGuard{pipeline: pipeline}
}

// Check runs the guard. Unrestricted mode allows everything without
// consulting any guardrail. A guardrail that fails to run rejects the
// candidate and the failure is returned alongside the verdict.
func (g *SafetyGuard) Check(ctx context.Context, c *Candidate, mode SafetyMode) (Verdict, error) {
	if mode == SafetyUnrestricted {
		return Verdict{Allowed: true}, nil
	}

	err := g.pipeline.ProcessInput(ctx, guardrail.GuardrailInput{
		Content:  c.Body,
		Language: c.Language,
	})
	if err == nil {
		return Verdict{Allowed: true}, nil
	}

	var blocked *guardrail.GuardrailBlockedError
	if errors.As(err, &blocked) {
		return Verdict{Guardrail: blocked.GuardrailName, Reason: blocked.Reason}, nil
	}
	return Verdict{Reason: err.Error()}, err
}

// Guardrails lists the guardrails the guard runs in read-only mode.
func (g *SafetyGuard) Guardrails() []guardrail.Guardrail {
	return g.pipeline.Guardrails()
}
