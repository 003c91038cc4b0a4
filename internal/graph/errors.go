package graph

import "github.com/zero-day-ai/graphask/internal/types"

// Graph database error codes
const (
	// Connection errors
	ErrCodeGraphConnectionFailed types.ErrorCode = "GRAPH_CONNECTION_FAILED"
	ErrCodeGraphConnectionClosed types.ErrorCode = "GRAPH_CONNECTION_CLOSED"

	// Configuration errors
	ErrCodeGraphInvalidConfig types.ErrorCode = "GRAPH_INVALID_CONFIG"

	// Query errors
	ErrCodeGraphQueryFailed   types.ErrorCode = "GRAPH_QUERY_FAILED"
	ErrCodeGraphResultParsing types.ErrorCode = "GRAPH_RESULT_PARSING"

	// Schema and snapshot errors
	ErrCodeGraphSchemaFailed   types.ErrorCode = "GRAPH_SCHEMA_FAILED"
	ErrCodeGraphSnapshotFailed types.ErrorCode = "GRAPH_SNAPSHOT_FAILED"
	ErrCodeGraphNodeNotFound   types.ErrorCode = "GRAPH_NODE_NOT_FOUND"
	ErrCodeGraphSnapshotFrozen types.ErrorCode = "GRAPH_SNAPSHOT_FROZEN"
)
