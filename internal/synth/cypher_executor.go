package synth

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/zero-day-ai/graphask/internal/graph"
	"github.com/zero-day-ai/graphask/internal/types"
)

// CypherExecutor runs Cypher candidates through a read-only graph client.
type CypherExecutor struct {
	client graph.GraphClient
	params map[string]any
}

// NewCypherExecutor returns an executor over client. params are bound to every
// candidate and may be nil.
func NewCypherExecutor(client graph.GraphClient, params map[string]any) *CypherExecutor {
	return &CypherExecutor{client: client, params: params}
}

func (e *CypherExecutor) Dialect() Dialect { return DialectCypher }

// Execute runs body and keeps at most topK records. The database's own error
// text is passed through unchanged so the oracle sees what the engine saw.
func (e *CypherExecutor) Execute(ctx context.Context, body string, topK int) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := e.client.ReadQuery(ctx, body, e.params, topK)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		root := types.RootCause(err)
		if types.CodeOf(err) == graph.ErrCodeGraphConnectionClosed || neo4j.IsConnectivityError(root) {
			return nil, types.WrapError(ErrCodeBackendFailed, "graph database unavailable", err)
		}
		return nil, &ExecutionError{Message: root.Error(), Cause: err}
	}

	return &Outcome{
		Rows:      res.Records,
		Columns:   res.Columns,
		Truncated: res.Truncated,
		Duration:  time.Since(start),
	}, nil
}
