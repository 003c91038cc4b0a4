package synth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zero-day-ai/graphask/internal/graph"
	"github.com/zero-day-ai/graphask/internal/guardrail"
	"github.com/zero-day-ai/graphask/internal/llm"
	"github.com/zero-day-ai/graphask/internal/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Engine answers natural-language questions about a graph by generating,
// checking and running candidates, repairing them from their errors.
//
// An Engine is immutable after New and safe for concurrent use; each call to
// Answer owns its own attempt log.
type Engine struct {
	cfg      EngineConfig
	oracle   llm.Oracle
	executor CandidateExecutor
	schema   string

	guard   *SafetyGuard
	prompts *PromptSet

	extraGuardrails []guardrail.Guardrail
	promptOverrides map[PromptKind]string

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics MetricsRecorder
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func WithMetrics(recorder MetricsRecorder) Option {
	return func(e *Engine) {
		if recorder != nil {
			e.metrics = recorder
		}
	}
}

// WithGuardrails adds guardrails that run after the built-in safety checks.
func WithGuardrails(rails ...guardrail.Guardrail) Option {
	return func(e *Engine) {
		e.extraGuardrails = append(e.extraGuardrails, rails...)
	}
}

// WithPromptTemplates replaces some of the default prompt templates.
func WithPromptTemplates(overrides map[PromptKind]string) Option {
	return func(e *Engine) {
		e.promptOverrides = overrides
	}
}

// New builds an engine. schema is rendered into every prompt and may be nil
// for a script engine whose prompts should not describe the graph.
func New(cfg EngineConfig, oracle llm.Oracle, executor CandidateExecutor, schema *graph.SchemaDescriptor, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if oracle == nil {
		return nil, types.NewError(ErrCodeInvalidConfig, "oracle is required")
	}
	if executor == nil {
		return nil, types.NewError(ErrCodeInvalidConfig, "executor is required")
	}

	e := &Engine{
		cfg:      cfg,
		oracle:   oracle,
		executor: executor,
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("graphask"),
		metrics:  noopRecorder{},
	}
	if schema != nil {
		e.schema = schema.String()
	}
	for _, opt := range opts {
		opt(e)
	}

	prompts, err := NewPromptSet(executor.Dialect(), e.promptOverrides)
	if err != nil {
		return nil, err
	}
	e.prompts = prompts
	e.guard = NewSafetyGuard(executor.Dialect(), e.extraGuardrails, e.tracer, e.logger)
	return e, nil
}

// Config returns the engine's default configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Dialect reports the language candidates are generated in.
func (e *Engine) Dialect() Dialect {
	return e.executor.Dialect()
}

// Answer answers question with the engine's configuration.
func (e *Engine) Answer(ctx context.Context, question string) (*FinalResult, error) {
	return e.AnswerWith(ctx, question, e.cfg)
}

// AnswerWith answers question with a per-call configuration.
func (e *Engine) AnswerWith(ctx context.Context, question string, cfg EngineConfig) (*FinalResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, types.NewError(ErrCodeInvalidQuestion, "question is empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID, "dialect", string(e.executor.Dialect()))
	ctx, span := e.tracer.Start(ctx, "graphask.answer", trace.WithAttributes(
		attribute.String("graphask.run_id", runID),
		attribute.String("graphask.dialect", string(e.executor.Dialect())),
		attribute.Int("graphask.max_attempts", cfg.MaxAttempts),
	))
	defer span.End()

	start := time.Now()
	logger.InfoContext(ctx, "answering question", "question", question)

	loop := &repairLoop{
		oracle:   e.oracle,
		executor: e.executor,
		guard:    e.guard,
		prompts:  e.prompts,
		schema:   e.schema,
		tracer:   e.tracer,
		metrics:  e.metrics,
	}
	res, err := loop.run(ctx, logger, question, cfg)
	if err != nil {
		e.recordAnswer(start, outcomeLabel(err), attemptsOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "question failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	shaper := &resultShaper{oracle: e.oracle, prompts: e.prompts, schema: e.schema, tracer: e.tracer}
	out := shaper.shape(ctx, logger, question, cfg, res)
	out.RunID = runID

	label := "success"
	if out.ExplanationFailed {
		label = "degraded"
	}
	e.recordAnswer(start, label, len(res.log))
	span.SetAttributes(attribute.Int("graphask.attempts", len(res.log)))
	logger.InfoContext(ctx, "question answered",
		"attempts", len(res.log),
		"rows", len(res.outcome.Rows),
		"duration", time.Since(start))
	return out, nil
}

func (e *Engine) recordAnswer(start time.Time, outcome string, attempts int) {
	labels := map[string]string{
		"outcome": outcome,
		"dialect": string(e.executor.Dialect()),
	}
	e.metrics.RecordCounter(MetricAnswers, 1, labels)
	if attempts > 0 {
		e.metrics.RecordHistogram(MetricAttempts, float64(attempts), labels)
	}
	e.metrics.RecordHistogram(MetricAnswerDuration, time.Since(start).Seconds(), labels)
}

func outcomeLabel(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	if code := CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}

func attemptsOf(err error) int {
	var exhausted *RepairBudgetExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Attempts
	}
	return 0
}

// Health reports the oracle's health when it exposes one.
func (e *Engine) Health(ctx context.Context) types.HealthStatus {
	if h, ok := e.oracle.(interface {
		Health(context.Context) types.HealthStatus
	}); ok {
		return h.Health(ctx)
	}
	return types.Healthy("oracle does not report health")
}
