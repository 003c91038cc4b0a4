package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/graphask/internal/types"
)

func rows(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"i": i}
	}
	return out
}

func TestMockGraphClient_RequiresConnect(t *testing.T) {
	ctx := context.Background()
	mock := NewMockGraphClient()

	_, err := mock.ReadQuery(ctx, "RETURN 1", nil, 0)
	require.Error(t, err)
	assert.Equal(t, ErrCodeGraphConnectionClosed, types.CodeOf(err))
	assert.True(t, mock.Health(ctx).IsUnhealthy())

	require.NoError(t, mock.Connect(ctx))
	assert.True(t, mock.Health(ctx).IsHealthy())
}

func TestMockGraphClient_CapsRecords(t *testing.T) {
	ctx := context.Background()
	mock := NewMockGraphClient()
	require.NoError(t, mock.Connect(ctx))
	mock.AddQueryResult(QueryResult{Records: rows(5), Columns: []string{"i"}})

	tests := []struct {
		name          string
		max           int
		wantLen       int
		wantTruncated bool
	}{
		{name: "below cap", max: 10, wantLen: 5},
		{name: "exact cap", max: 5, wantLen: 5},
		{name: "over cap", max: 3, wantLen: 3, wantTruncated: true},
		{name: "no cap", max: 0, wantLen: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := mock.ReadQuery(ctx, "MATCH (n) RETURN n", nil, tt.max)
			require.NoError(t, err)
			assert.Len(t, res.Records, tt.wantLen)
			assert.Equal(t, tt.wantTruncated, res.Truncated)
		})
	}
}

func TestMockGraphClient_ErrorKeepsDriverCause(t *testing.T) {
	ctx := context.Background()
	mock := NewMockGraphClient()
	require.NoError(t, mock.Connect(ctx))

	driverErr := errors.New("Variable `x` not defined (line 1, column 8)")
	mock.SetQueryError(driverErr)

	_, err := mock.ReadQuery(ctx, "RETURN x", nil, 10)
	require.Error(t, err)
	assert.Equal(t, driverErr, types.RootCause(err))
}

func TestMockGraphClient_HandlerAndCalls(t *testing.T) {
	ctx := context.Background()
	mock := NewMockGraphClient()
	require.NoError(t, mock.Connect(ctx))

	mock.SetQueryHandler(func(cypher string, params map[string]any) (QueryResult, error) {
		return QueryResult{Records: []map[string]any{{"q": cypher}}}, nil
	})

	res, err := mock.ReadQuery(ctx, "RETURN 42", map[string]any{"a": 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "RETURN 42", res.Records[0]["q"])

	calls := mock.GetCallsByMethod("ReadQuery")
	require.Len(t, calls, 1)
	assert.Equal(t, "RETURN 42", calls[0].Args[0])
	assert.Equal(t, 1, calls[0].Args[2])
}
