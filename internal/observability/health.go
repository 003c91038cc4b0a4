package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/graphask/internal/synth"
	"github.com/zero-day-ai/graphask/internal/types"
)

// MetricHealthTransitions counts component health state changes.
const MetricHealthTransitions = "graphask.health.transitions"

// HealthChecker is implemented by every backend the engine depends on: the
// graph client, the LLM oracle and the bus worker.
type HealthChecker interface {
	Health(ctx context.Context) types.HealthStatus
}

// HealthCheckerFunc adapts a function to HealthChecker.
type HealthCheckerFunc func(ctx context.Context) types.HealthStatus

func (f HealthCheckerFunc) Health(ctx context.Context) types.HealthStatus { return f(ctx) }

type componentState struct {
	checker       HealthChecker
	lastStatus    types.HealthStatus
	lastCheckedAt time.Time
}

// HealthMonitor checks registered components, logs state transitions and
// counts them. It is safe for concurrent use.
type HealthMonitor struct {
	metrics    synth.MetricsRecorder
	logger     *slog.Logger
	components map[string]*componentState
	mu         sync.RWMutex
}

// NewHealthMonitor creates a monitor. A nil logger falls back to slog.Default().
func NewHealthMonitor(metrics synth.MetricsRecorder, logger *slog.Logger) *HealthMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthMonitor{
		metrics:    metrics,
		logger:     logger,
		components: make(map[string]*componentState),
	}
}

// Register adds or replaces a component. A new component starts unhealthy
// so its first successful check is logged as a recovery.
func (h *HealthMonitor) Register(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.components[name] = &componentState{
		checker:    checker,
		lastStatus: types.NewHealthStatus(types.HealthStateUnhealthy, "not yet checked"),
	}
}

// Unregister removes a component.
func (h *HealthMonitor) Unregister(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.components, name)
}

// Check runs the health check of a single component.
func (h *HealthMonitor) Check(ctx context.Context, name string) (types.HealthStatus, error) {
	h.mu.RLock()
	state, exists := h.components[name]
	h.mu.RUnlock()

	if !exists {
		return types.HealthStatus{}, fmt.Errorf("component %q is not registered", name)
	}

	status := state.checker.Health(ctx)
	h.updateComponentState(ctx, name, state, status)
	return status, nil
}

// CheckAll checks every registered component concurrently and returns the
// per-component results together with their aggregate.
func (h *HealthMonitor) CheckAll(ctx context.Context) (map[string]types.HealthStatus, types.HealthStatus) {
	h.mu.RLock()
	snapshot := make(map[string]*componentState, len(h.components))
	for name, state := range h.components {
		snapshot[name] = state
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]types.HealthStatus, len(snapshot))
		g       errgroup.Group
	)
	for name, state := range snapshot {
		name, state := name, state
		g.Go(func() error {
			status := state.checker.Health(ctx)
			h.updateComponentState(ctx, name, state, status)

			mu.Lock()
			results[name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results, types.Aggregate(results)
}

// StartPeriodicCheck checks all components every interval until ctx is done.
func (h *HealthMonitor) StartPeriodicCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.CheckAll(ctx)
		}
	}
}

func (h *HealthMonitor) updateComponentState(ctx context.Context, name string, state *componentState, newStatus types.HealthStatus) {
	h.mu.Lock()
	previous := state.lastStatus.State
	current := newStatus.State
	state.lastStatus = newStatus
	state.lastCheckedAt = time.Now()
	h.mu.Unlock()

	if previous == current {
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCounter(MetricHealthTransitions, 1, map[string]string{
			"component": name,
			"state":     string(current),
		})
	}
	h.logStateChange(ctx, name, previous, current, newStatus.Message)
}

// logStateChange logs degradation at error, recovery at info and any other
// transition at warn.
func (h *HealthMonitor) logStateChange(ctx context.Context, component string, previous, current types.HealthState, message string) {
	args := []any{
		"component", component,
		"previous_state", string(previous),
		"current_state", string(current),
		"message", message,
	}

	switch {
	case previous == types.HealthStateHealthy:
		h.logger.ErrorContext(ctx, "component health degraded", args...)
	case current == types.HealthStateHealthy:
		h.logger.InfoContext(ctx, "component health recovered", args...)
	default:
		h.logger.WarnContext(ctx, "component health state changed", args...)
	}
}
