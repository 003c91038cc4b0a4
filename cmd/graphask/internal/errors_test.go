package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/zero-day-ai/graphask/internal/bus"
	"github.com/zero-day-ai/graphask/internal/graph"
	"github.com/zero-day-ai/graphask/internal/synth"
	"github.com/zero-day-ai/graphask/internal/types"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "unsafe", err: &synth.UnsafeCandidateError{Guardrail: "cypher-mutation", Reason: "CREATE"}, want: ExitUnanswered},
		{name: "malformed", err: &synth.MalformedGenerationError{Blocks: 0}, want: ExitUnanswered},
		{name: "invalid question", err: types.NewError(synth.ErrCodeInvalidQuestion, "empty"), want: ExitUsageError},
		{name: "config", err: types.NewError(types.CONFIG_VALIDATION_FAILED, "bad"), want: ExitConfigError},
		{name: "backend", err: types.NewError(synth.ErrCodeBackendFailed, "down"), want: ExitBackendError},
		{name: "graph connect", err: types.NewError(graph.ErrCodeGraphConnectionFailed, "refused"), want: ExitBackendError},
		{name: "bus timeout", err: &bus.ReplyError{Code: "DEADLINE_EXCEEDED"}, want: ExitTimeout},
		{name: "bus exhausted", err: &bus.ReplyError{Code: string(synth.ErrCodeRepairBudgetExhausted)}, want: ExitUnanswered},
		{name: "plain", err: errors.New("boom"), want: ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{name: "nil", err: nil, wantCode: ExitSuccess},
		{name: "canceled", err: fmt.Errorf("ask: %w", context.Canceled), wantCode: ExitCancelled, wantOut: "Operation cancelled"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: ExitTimeout, wantOut: "Operation timed out"},
		{name: "cli error", err: NewCLIError(ExitUsageError, "bad flag"), wantCode: ExitUsageError, wantOut: "Error: bad flag"},
		{name: "typed", err: types.NewError(synth.ErrCodeOracleFailed, "model down"), wantCode: ExitBackendError, wantOut: "model down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			buf := &bytes.Buffer{}
			cmd.SetErr(buf)

			assert.Equal(t, tt.wantCode, HandleError(cmd, tt.err))
			if tt.wantOut != "" {
				assert.Contains(t, buf.String(), tt.wantOut)
			}
		})
	}
}

func TestCLIError(t *testing.T) {
	cause := errors.New("dial tcp")
	err := WrapError(ExitBackendError, "failed to reach the bus", cause)
	assert.Equal(t, "failed to reach the bus: dial tcp", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "plain", NewCLIError(ExitError, "plain").Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(types.NewRetryableError("X", "later")))
	assert.False(t, IsRetryable(types.NewError("X", "never")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
