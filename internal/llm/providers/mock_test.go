package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/graphask/internal/llm"
)

func TestMockProvider_RoundRobin(t *testing.T) {
	ctx := context.Background()
	p := NewMockProvider([]string{"a", "b"})
	req := llm.NewCompletionRequest("m", []llm.Message{llm.NewUserMessage("q")})

	var got []string
	for i := 0; i < 3; i++ {
		resp, err := p.Complete(ctx, req)
		require.NoError(t, err)
		got = append(got, resp.Message.Content)
	}
	assert.Equal(t, []string{"a", "b", "a"}, got)
	assert.Len(t, p.GetCalls(), 3)
	assert.True(t, p.Health(ctx).IsHealthy())
}

func TestMockProvider_Errors(t *testing.T) {
	ctx := context.Background()
	req := llm.NewCompletionRequest("m", []llm.Message{llm.NewUserMessage("q")})

	_, err := NewMockProvider(nil).Complete(ctx, req)
	assert.True(t, llm.IsRetryable(err))

	p := NewMockProvider([]string{"a"})
	p.SetError(errors.New("down"))
	_, err = p.Complete(ctx, req)
	assert.EqualError(t, err, "down")
	assert.True(t, p.Health(ctx).IsUnhealthy())

	p.SetError(nil)
	p.SetResponses([]string{"z"})
	resp, err := p.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "z", resp.Message.Content)
}
