package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  NewError(CONFIG_NOT_FOUND, "config missing"),
			want: "[CONFIG_NOT_FOUND] config missing",
		},
		{
			name: "with cause",
			err:  WrapError(CONFIG_LOAD_FAILED, "read failed", errors.New("permission denied")),
			want: "[CONFIG_LOAD_FAILED] read failed: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := WrapError(CONFIG_PARSE_FAILED, "bad yaml", errors.New("line 3"))
	wrapped := fmt.Errorf("loading: %w", err)

	assert.True(t, errors.Is(wrapped, NewError(CONFIG_PARSE_FAILED, "")))
	assert.False(t, errors.Is(wrapped, NewError(CONFIG_NOT_FOUND, "")))
}

func TestNewRetryableError(t *testing.T) {
	err := NewRetryableError(CONFIG_LOAD_FAILED, "transient")
	assert.True(t, err.Retryable)
	assert.Nil(t, err.Cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CONFIG_VALIDATION_FAILED, CodeOf(fmt.Errorf("x: %w", NewError(CONFIG_VALIDATION_FAILED, "bad"))))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestRootCause(t *testing.T) {
	root := errors.New("Neo.ClientError.Statement.SyntaxError: Invalid input 'RETURNN'")
	err := fmt.Errorf("execute: %w", WrapError(CONFIG_LOAD_FAILED, "query failed", root))

	require.NotNil(t, RootCause(err))
	assert.Equal(t, root, RootCause(err))
	assert.Nil(t, RootCause(nil))
}
