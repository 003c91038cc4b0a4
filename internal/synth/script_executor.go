package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zero-day-ai/graphask/internal/graph"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	// ResultBinding is the global a script must assign its answer to.
	ResultBinding = "FINAL_RESULT"

	// MissingResultBinding is the execution error for a script that ran
	// to completion without assigning ResultBinding.
	MissingResultBinding = "missing result binding"

	// DefaultScriptMaxSteps bounds the Starlark steps one candidate may take.
	DefaultScriptMaxSteps uint64 = 10_000_000
)

var scriptFileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// ScriptExecutor runs Starlark candidates against a frozen graph snapshot.
// Scripts see the snapshot as G and graph algorithms under nx. They have no
// load statement and no access to files or the network, so every execution
// starts from the same state.
type ScriptExecutor struct {
	snapshot *graph.Snapshot
	maxSteps uint64
	logger   *slog.Logger
}

// ScriptOption configures a ScriptExecutor.
type ScriptOption func(*ScriptExecutor)

// WithMaxSteps sets the execution step budget; zero keeps the default.
func WithMaxSteps(n uint64) ScriptOption {
	return func(e *ScriptExecutor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

func WithScriptLogger(logger *slog.Logger) ScriptOption {
	return func(e *ScriptExecutor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewScriptExecutor freezes snapshot and returns an executor over it.
func NewScriptExecutor(snapshot *graph.Snapshot, opts ...ScriptOption) *ScriptExecutor {
	snapshot.Freeze()
	e := &ScriptExecutor{
		snapshot: snapshot,
		maxSteps: DefaultScriptMaxSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ScriptExecutor) Dialect() Dialect { return DialectScript }

// Execute runs body in a fresh thread and returns the rows bound to
// FINAL_RESULT. Cancelling ctx interrupts the script.
func (e *ScriptExecutor) Execute(ctx context.Context, body string, topK int) (out *Outcome, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	thread := &starlark.Thread{
		Name: "candidate",
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.DebugContext(ctx, "script output", "line", msg)
		},
	}
	thread.SetMaxExecutionSteps(e.maxSteps)
	thread.SetLocal(threadContextKey, ctx)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &ExecutionError{Message: fmt.Sprintf("script panicked: %v", r)}
		}
	}()

	start := time.Now()
	predeclared := starlark.StringDict{
		"G":  &graphValue{snap: e.snapshot},
		"nx": newNXModule(),
	}
	globals, err := starlark.ExecFileOptions(scriptFileOptions, thread, "candidate.star", body, predeclared)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			e.logger.DebugContext(ctx, "script failed", "backtrace", evalErr.Backtrace())
			return nil, &ExecutionError{Message: evalErr.Msg, Cause: err}
		}
		return nil, &ExecutionError{Message: err.Error(), Cause: err}
	}

	result, ok := globals[ResultBinding]
	if !ok {
		return nil, &ExecutionError{Message: MissingResultBinding}
	}

	rows, columns, truncated, err := resultRows(result, topK)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error(), Cause: err}
	}
	return &Outcome{
		Rows:      rows,
		Columns:   columns,
		Truncated: truncated,
		Duration:  time.Since(start),
	}, nil
}
