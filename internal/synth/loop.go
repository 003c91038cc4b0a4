package synth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zero-day-ai/graphask/internal/llm"
	"github.com/zero-day-ai/graphask/internal/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// State is a repair loop state.
type State string

const (
	StateGenerating State = "generating"
	StateValidating State = "validating"
	StateExecuting  State = "executing"
	StateRepairing  State = "repairing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// AttemptRecord describes one generation and what became of it.
type AttemptRecord struct {
	Attempt   int        `json:"attempt"`
	Candidate *Candidate `json:"candidate,omitempty"`

	// State is where the attempt ended: StateSucceeded, or StateValidating
	// for a safety rejection, or StateExecuting for a failed execution.
	State    State  `json:"state"`
	Error    string `json:"error,omitempty"`
	Rejected bool   `json:"rejected,omitempty"`

	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
}

// repairLoop drives generate, validate, execute and repair for one question.
// It holds no state between runs.
type repairLoop struct {
	oracle   llm.Oracle
	executor CandidateExecutor
	guard    *SafetyGuard
	prompts  *PromptSet
	schema   string
	tracer   trace.Tracer
	metrics  MetricsRecorder
}

type loopResult struct {
	candidate *Candidate
	outcome   *Outcome
	log       []AttemptRecord
}

// run returns the first candidate that executes. Every failure after a
// candidate was extracted is fed back to the oracle until cfg.MaxAttempts
// generations have been made. Malformed generations, oracle failures,
// backend failures and cancellation end the run at once.
func (l *repairLoop) run(ctx context.Context, logger *slog.Logger, question string, cfg EngineConfig) (*loopResult, error) {
	data := promptData{
		Question: question,
		Schema:   l.schema,
		Examples: cfg.Examples,
	}

	var (
		log       []AttemptRecord
		rec       AttemptRecord
		candidate *Candidate
		lastErr   error
		started   time.Time
		span      trace.Span
		attemptCx context.Context
	)

	endAttempt := func(state State, err error) {
		rec.State = state
		rec.Duration = time.Since(started)
		if err != nil {
			rec.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("graphask.attempt.state", string(state)))
		span.End()
		log = append(log, rec)
	}

	state := StateGenerating
	for {
		switch state {
		case StateGenerating:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			attempt := len(log) + 1
			rec = AttemptRecord{Attempt: attempt}
			started = time.Now()
			attemptCx, span = l.tracer.Start(ctx, "graphask.attempt",
				trace.WithAttributes(attribute.Int("graphask.attempt", attempt)))

			kind := PromptGenerate
			if lastErr != nil {
				kind = PromptFix
			}
			prompt, err := l.prompts.render(kind, data)
			if err != nil {
				endAttempt(StateGenerating, err)
				return nil, err
			}

			logger.DebugContext(attemptCx, "requesting candidate", "attempt", attempt, "prompt", kind)
			text, err := l.oracle.Complete(attemptCx, prompt)
			if err != nil {
				endAttempt(StateGenerating, err)
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, types.WrapError(ErrCodeOracleFailed, "oracle call failed", err)
			}

			candidate, err = Extract(text)
			if err != nil {
				endAttempt(StateGenerating, err)
				logger.WarnContext(attemptCx, "malformed generation", "attempt", attempt, "error", err)
				return nil, err
			}
			rec.Candidate = candidate
			state = StateValidating

		case StateValidating:
			verdict, err := l.guard.Check(attemptCx, candidate, cfg.SafetyMode)
			if err != nil {
				logger.WarnContext(attemptCx, "safety guard failed, rejecting candidate", "error", err)
			}
			if !verdict.Allowed {
				rec.Rejected = true
				lastErr = &UnsafeCandidateError{Guardrail: verdict.Guardrail, Reason: verdict.Reason}
				l.metrics.RecordCounter(MetricRejections, 1, map[string]string{"guardrail": verdict.Guardrail})
				logger.InfoContext(attemptCx, "candidate rejected", "attempt", rec.Attempt, "reason", verdict.Reason)
				endAttempt(StateValidating, lastErr)
				state = StateRepairing
				continue
			}
			state = StateExecuting

		case StateExecuting:
			if err := ctx.Err(); err != nil {
				endAttempt(StateExecuting, err)
				return nil, err
			}
			outcome, err := l.execute(attemptCx, candidate, cfg.TopK)
			if err != nil {
				var execErr *ExecutionError
				if !errors.As(err, &execErr) {
					endAttempt(StateExecuting, err)
					if ctxErr := ctx.Err(); ctxErr != nil {
						return nil, ctxErr
					}
					return nil, err
				}
				lastErr = execErr
				logger.InfoContext(attemptCx, "candidate failed", "attempt", rec.Attempt, "error", execErr.Message)
				endAttempt(StateExecuting, execErr)
				state = StateRepairing
				continue
			}
			rec.Rows = len(outcome.Rows)
			endAttempt(StateSucceeded, nil)
			return &loopResult{candidate: candidate, outcome: outcome, log: log}, nil

		case StateRepairing:
			if len(log) >= cfg.MaxAttempts {
				state = StateFailed
				continue
			}
			data.PriorCandidate = candidate.Body
			data.PriorError = lastErr.Error()
			if execErr, ok := lastErr.(*ExecutionError); ok {
				data.PriorError = execErr.Message
			}
			state = StateGenerating

		case StateFailed:
			return nil, newRepairBudgetExhaustedError(log, lastErr)
		}
	}
}

func (l *repairLoop) execute(ctx context.Context, c *Candidate, topK int) (*Outcome, error) {
	ctx, span := l.tracer.Start(ctx, "graphask.execute",
		trace.WithAttributes(attribute.String("graphask.dialect", string(l.executor.Dialect()))))
	defer span.End()

	outcome, err := l.executor.Execute(ctx, c.Body, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("graphask.rows", len(outcome.Rows)),
		attribute.Bool("graphask.truncated", outcome.Truncated),
	)
	return outcome, nil
}
