package synth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/zero-day-ai/graphask/internal/llm"
	"github.com/zero-day-ai/graphask/internal/types"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinalResult is the answer to one question.
type FinalResult struct {
	RunID    string `json:"run_id"`
	Question string `json:"question"`

	// Explanation is set when explanation was requested and succeeded.
	Explanation string `json:"explanation,omitempty"`

	// Rows are set when raw results were requested, or when the explanation
	// failed and the engine fell back to them.
	Rows      []map[string]any `json:"rows,omitempty"`
	Columns   []string         `json:"columns,omitempty"`
	Truncated bool             `json:"truncated,omitempty"`

	Candidate *Candidate `json:"candidate,omitempty"`

	// Warning describes a degraded result. ExplanationFailed is set with it.
	Warning           string `json:"warning,omitempty"`
	ExplanationFailed bool   `json:"explanation_failed,omitempty"`

	Attempts []AttemptRecord `json:"attempts"`
}

// AttemptCount is the number of generations the answer took.
func (r *FinalResult) AttemptCount() int {
	return len(r.Attempts)
}

// resultShaper builds the FinalResult from a successful loop run. It makes at
// most one oracle call and never fails.
type resultShaper struct {
	oracle  llm.Oracle
	prompts *PromptSet
	schema  string
	tracer  trace.Tracer
}

func (s *resultShaper) shape(ctx context.Context, logger *slog.Logger, question string, cfg EngineConfig, res *loopResult) *FinalResult {
	out := &FinalResult{
		Question: question,
		Attempts: res.log,
	}
	if cfg.ReturnCandidate {
		out.Candidate = res.candidate
	}
	if cfg.ReturnRawResult {
		out.setRows(res.outcome)
	}
	if !cfg.PerformExplanation {
		return out
	}

	explanation, err := s.explain(ctx, question, res)
	if err != nil {
		logger.WarnContext(ctx, "explanation failed, returning raw rows", "error", err)
		out.ExplanationFailed = true
		out.Warning = "explanation unavailable: " + err.Error()
		out.setRows(res.outcome)
		return out
	}
	out.Explanation = explanation
	return out
}

func (r *FinalResult) setRows(o *Outcome) {
	r.Rows = o.Rows
	if r.Rows == nil {
		r.Rows = []map[string]any{}
	}
	r.Columns = o.Columns
	r.Truncated = o.Truncated
}

func (s *resultShaper) explain(ctx context.Context, question string, res *loopResult) (string, error) {
	ctx, span := s.tracer.Start(ctx, "graphask.explain")
	defer span.End()

	prompt, err := s.prompts.render(PromptExplain, promptData{
		Question:  question,
		Schema:    s.schema,
		Candidate: res.candidate.Body,
		Rows:      res.outcome.Rows,
		Truncated: res.outcome.Truncated,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	text, err := s.oracle.Complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		err := types.NewError(llm.ErrEmptyResponse, "oracle returned an empty explanation")
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}
