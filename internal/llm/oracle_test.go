package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/graphask/internal/types"
)

type fakeProvider struct {
	resp *CompletionResponse
	err  error
	reqs []CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func (f *fakeProvider) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("fake")
}

func TestProviderOracle_Complete(t *testing.T) {
	fp := &fakeProvider{resp: &CompletionResponse{Message: NewAssistantMessage("```cypher\nRETURN 1\n```")}}
	oracle := NewProviderOracle(fp, ProviderConfig{DefaultModel: "m", Temperature: 0.1, MaxTokens: 256},
		WithSystemPrompt("You write Cypher."))

	out, err := oracle.Complete(context.Background(), "count nodes")
	require.NoError(t, err)
	assert.Equal(t, "```cypher\nRETURN 1\n```", out)

	require.Len(t, fp.reqs, 1)
	req := fp.reqs[0]
	assert.Equal(t, "m", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "count nodes", req.Messages[1].Content)
}

func TestProviderOracle_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		wantCode types.ErrorCode
	}{
		{name: "transport", provider: &fakeProvider{err: errors.New("connection reset")}, wantCode: ErrNetworkFailed},
		{name: "empty", provider: &fakeProvider{resp: &CompletionResponse{Message: NewAssistantMessage("  ")}}, wantCode: ErrEmptyResponse},
		{name: "nil response", provider: &fakeProvider{}, wantCode: ErrEmptyResponse},
		{
			name: "filtered",
			provider: &fakeProvider{resp: &CompletionResponse{
				Message:      NewAssistantMessage("partial"),
				FinishReason: FinishReasonContentFilter,
			}},
			wantCode: ErrContentFiltered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProviderOracle(tt.provider, ProviderConfig{}).Complete(context.Background(), "q")
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, types.CodeOf(err))
		})
	}
}

func TestProviderOracle_CanceledContext(t *testing.T) {
	fp := &fakeProvider{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProviderOracle(fp, ProviderConfig{}).Complete(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fp.reqs)
}

func TestStaticOracle(t *testing.T) {
	boom := errors.New("boom")
	o := NewStaticOracle("first", "second").FailOn(1, boom)

	out, err := o.Complete(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	_, err = o.Complete(context.Background(), "p2")
	assert.ErrorIs(t, err, boom)

	_, err = o.Complete(context.Background(), "p3")
	assert.Equal(t, ErrNoScriptedReplies, types.CodeOf(err))

	assert.Equal(t, 3, o.Calls())
	assert.Equal(t, []string{"p1", "p2", "p3"}, o.Prompts())
}
