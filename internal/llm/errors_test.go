package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zero-day-ai/graphask/internal/types"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  types.ErrorCode
		retryable bool
	}{
		{name: "auth", err: errors.New("401 Unauthorized: invalid api key"), wantCode: ErrProviderUnauthorized},
		{name: "rate limit", err: errors.New("429 Too Many Requests"), wantCode: ErrProviderRateLimited, retryable: true},
		{name: "timeout", err: errors.New("i/o timeout"), wantCode: ErrTimeoutExceeded, retryable: true},
		{name: "network", err: errors.New("connection refused"), wantCode: ErrNetworkFailed, retryable: true},
		{name: "filter", err: errors.New("blocked by safety settings"), wantCode: ErrContentFiltered},
		{name: "canceled", err: context.Canceled, wantCode: ErrContextCanceled},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: ErrTimeoutExceeded, retryable: true},
		{name: "unknown", err: errors.New("boom"), wantCode: ErrProviderUnavailable, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError("openai", tt.err)
			assert.Equal(t, tt.wantCode, types.CodeOf(got))
			assert.Equal(t, tt.retryable, IsRetryable(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestTranslateError_PassesTypedErrorsThrough(t *testing.T) {
	assert.Nil(t, TranslateError("x", nil))

	typed := NewInvalidRequestError("bad")
	assert.Same(t, typed, TranslateError("x", typed))
	assert.False(t, IsRetryable(typed))
	assert.False(t, IsRetryable(errors.New("plain")))
}
