package synth

import (
	"context"
	"time"
)

// Dialect names the language candidates are generated in.
type Dialect string

const (
	DialectCypher Dialect = "cypher"
	DialectScript Dialect = "starlark"
)

// Outcome is the data produced by one successful execution.
type Outcome struct {
	Rows      []map[string]any `json:"rows"`
	Columns   []string         `json:"columns,omitempty"`
	Truncated bool             `json:"truncated,omitempty"`
	Duration  time.Duration    `json:"duration"`
}

// CandidateExecutor runs a candidate body against the data source.
//
// A failure caused by the candidate itself is returned as *ExecutionError,
// whose message the repair loop hands back to the oracle. Any other error
// (cancellation, an unreachable backend) ends the run.
type CandidateExecutor interface {
	Dialect() Dialect
	Execute(ctx context.Context, body string, topK int) (*Outcome, error)
}
