package graph

import (
	"context"
	"sync"
	"time"

	"github.com/zero-day-ai/graphask/internal/types"
)

// MockCall represents a recorded method call on the mock graph client.
type MockCall struct {
	Method    string
	Args      []interface{}
	Timestamp time.Time
}

// QueryHandler computes a result for a statement; used by MockGraphClient.
type QueryHandler func(cypher string, params map[string]any) (QueryResult, error)

// MockGraphClient is a mock implementation of GraphClient for testing.
// Results are served from the handler when set, otherwise from a FIFO queue;
// the last queued result is reused once the queue drains.
type MockGraphClient struct {
	mu sync.Mutex

	connected    bool
	healthStatus types.HealthStatus
	calls        []MockCall

	handler      QueryHandler
	queryResults []QueryResult
	queryError   error
	connectError error
}

// NewMockGraphClient creates a new mock graph client for testing.
func NewMockGraphClient() *MockGraphClient {
	return &MockGraphClient{
		healthStatus: types.Healthy("mock graph client"),
		calls:        make([]MockCall, 0),
	}
}

func (m *MockGraphClient) record(method string, args ...interface{}) {
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// Connect records the call and simulates connection.
func (m *MockGraphClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Connect")
	if m.connectError != nil {
		return m.connectError
	}
	m.connected = true
	return nil
}

// Close records the call and simulates disconnection.
func (m *MockGraphClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Close")
	m.connected = false
	return nil
}

// Health returns the configured health status.
func (m *MockGraphClient) Health(ctx context.Context) types.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Health")
	if !m.connected {
		return types.Unhealthy("not connected")
	}
	return m.healthStatus
}

// ReadQuery records the call and returns the configured result, capped at maxRecords.
func (m *MockGraphClient) ReadQuery(ctx context.Context, cypher string, params map[string]any, maxRecords int) (QueryResult, error) {
	m.mu.Lock()
	m.record("ReadQuery", cypher, params, maxRecords)

	if !m.connected {
		m.mu.Unlock()
		return QueryResult{}, types.NewError(ErrCodeGraphConnectionClosed, "not connected")
	}

	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return QueryResult{}, types.WrapError(ErrCodeGraphQueryFailed, "query execution failed", err)
	}

	handler := m.handler
	if handler == nil {
		defer m.mu.Unlock()
		if m.queryError != nil {
			return QueryResult{}, types.WrapError(ErrCodeGraphQueryFailed, "query execution failed", m.queryError)
		}
		if len(m.queryResults) == 0 {
			return QueryResult{Records: []map[string]any{}}, nil
		}
		result := m.queryResults[0]
		if len(m.queryResults) > 1 {
			m.queryResults = m.queryResults[1:]
		}
		return capResult(result, maxRecords), nil
	}
	m.mu.Unlock()

	result, err := handler(cypher, params)
	if err != nil {
		return QueryResult{}, types.WrapError(ErrCodeGraphQueryFailed, "query execution failed", err)
	}
	return capResult(result, maxRecords), nil
}

func capResult(result QueryResult, maxRecords int) QueryResult {
	records := make([]map[string]any, len(result.Records))
	copy(records, result.Records)
	result.Records = records
	if maxRecords > 0 && len(result.Records) > maxRecords {
		result.Records = result.Records[:maxRecords]
		result.Truncated = true
	}
	return result
}

// AddQueryResult queues a result for ReadQuery.
func (m *MockGraphClient) AddQueryResult(result QueryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryResults = append(m.queryResults, result)
}

// SetQueryHandler installs a handler that takes precedence over queued results.
func (m *MockGraphClient) SetQueryHandler(handler QueryHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// SetQueryError makes every ReadQuery fail with err wrapped as the driver would.
func (m *MockGraphClient) SetQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryError = err
}

// SetConnectError makes Connect fail.
func (m *MockGraphClient) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectError = err
}

// SetHealthStatus overrides the status returned while connected.
func (m *MockGraphClient) SetHealthStatus(status types.HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthStatus = status
}

// GetCalls returns a copy of all recorded calls.
func (m *MockGraphClient) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// GetCallsByMethod returns recorded calls for one method.
func (m *MockGraphClient) GetCallsByMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var calls []MockCall
	for _, c := range m.calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

var _ GraphClient = (*MockGraphClient)(nil)
var _ GraphClient = (*Neo4jClient)(nil)
