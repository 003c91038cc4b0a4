package guardrail

import (
	"context"
	"log/slog"

	"github.com/zero-day-ai/graphask/internal/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// GuardrailPipeline executes a sequence of guardrails on a candidate.
// It holds no per-call state and is safe for concurrent use.
type GuardrailPipeline struct {
	guardrails []Guardrail
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewGuardrailPipeline creates a new pipeline with the given guardrails
func NewGuardrailPipeline(guardrails ...Guardrail) *GuardrailPipeline {
	return &GuardrailPipeline{
		guardrails: guardrails,
		logger:     slog.Default(),
	}
}

// WithTracer sets the OpenTelemetry tracer for the pipeline
func (p *GuardrailPipeline) WithTracer(tracer trace.Tracer) *GuardrailPipeline {
	p.tracer = tracer
	return p
}

// WithLogger sets the logger for the pipeline
func (p *GuardrailPipeline) WithLogger(logger *slog.Logger) *GuardrailPipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// ProcessInput runs all guardrails on input sequentially
//   - On block: immediately return GuardrailBlockedError
//   - On warn: log warning and continue
//   - On allow: continue to next guardrail
//
// A guardrail that fails to run is treated as a block; the error is wrapped
// with ErrGuardrailExecution.
func (p *GuardrailPipeline) ProcessInput(ctx context.Context, input GuardrailInput) error {
	for _, g := range p.guardrails {
		result, err := p.check(ctx, g, input)
		if err != nil {
			return types.WrapError(ErrGuardrailExecution, "guardrail "+g.Name()+" failed", err)
		}

		switch result.Action {
		case GuardrailActionBlock:
			return NewGuardrailBlockedError(g.Name(), g.Type(), result.Reason)

		case GuardrailActionWarn:
			p.logger.WarnContext(ctx, "guardrail warning",
				"guardrail", g.Name(),
				"reason", result.Reason,
			)
		}
	}

	return nil
}

func (p *GuardrailPipeline) check(ctx context.Context, g Guardrail, input GuardrailInput) (GuardrailResult, error) {
	if p.tracer == nil {
		return g.CheckInput(ctx, input)
	}

	ctx, span := p.tracer.Start(ctx, "guardrail.check_input",
		trace.WithAttributes(
			attribute.String("guardrail.name", g.Name()),
			attribute.String("guardrail.type", string(g.Type())),
		),
	)
	defer span.End()

	result, err := g.CheckInput(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	span.SetAttributes(
		attribute.String("guardrail.action", string(result.Action)),
		attribute.String("guardrail.reason", result.Reason),
	)
	return result, nil
}

// Add returns a new pipeline with additional guardrails
func (p *GuardrailPipeline) Add(guardrails ...Guardrail) *GuardrailPipeline {
	newGuardrails := make([]Guardrail, len(p.guardrails)+len(guardrails))
	copy(newGuardrails, p.guardrails)
	copy(newGuardrails[len(p.guardrails):], guardrails)

	return &GuardrailPipeline{
		guardrails: newGuardrails,
		tracer:     p.tracer,
		logger:     p.logger,
	}
}

// Guardrails returns a copy of the guardrails in the pipeline
func (p *GuardrailPipeline) Guardrails() []Guardrail {
	result := make([]Guardrail, len(p.guardrails))
	copy(result, p.guardrails)
	return result
}
