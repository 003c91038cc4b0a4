package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// HealthState is the coarse health of a backend the engine depends on.
type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateDegraded  HealthState = "degraded"
	HealthStateUnhealthy HealthState = "unhealthy"
)

func (s HealthState) String() string {
	return string(s)
}

// IsValid checks if the HealthState is a known value
func (s HealthState) IsValid() bool {
	switch s {
	case HealthStateHealthy, HealthStateDegraded, HealthStateUnhealthy:
		return true
	default:
		return false
	}
}

// UnmarshalJSON rejects unknown states.
func (s *HealthState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	state := HealthState(str)
	if !state.IsValid() {
		return fmt.Errorf("invalid health state: %s", str)
	}

	*s = state
	return nil
}

// severity orders states so the worst one wins during aggregation.
func (s HealthState) severity() int {
	switch s {
	case HealthStateHealthy:
		return 0
	case HealthStateDegraded:
		return 1
	default:
		return 2
	}
}

// HealthStatus is a point-in-time health report for the graph store or a model provider.
type HealthStatus struct {
	State     HealthState `json:"state"`
	Message   string      `json:"message,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// NewHealthStatus creates a HealthStatus stamped with the current time.
func NewHealthStatus(state HealthState, message string) HealthStatus {
	return HealthStatus{
		State:     state,
		Message:   message,
		CheckedAt: time.Now(),
	}
}

func Healthy(message string) HealthStatus {
	return NewHealthStatus(HealthStateHealthy, message)
}

func Degraded(message string) HealthStatus {
	return NewHealthStatus(HealthStateDegraded, message)
}

func Unhealthy(message string) HealthStatus {
	return NewHealthStatus(HealthStateUnhealthy, message)
}

func (h HealthStatus) IsHealthy() bool {
	return h.State == HealthStateHealthy
}

func (h HealthStatus) IsDegraded() bool {
	return h.State == HealthStateDegraded
}

func (h HealthStatus) IsUnhealthy() bool {
	return h.State == HealthStateUnhealthy
}

// Aggregate folds per-component statuses into one. The worst state wins and
// the message lists every component that is not healthy, sorted by name.
func Aggregate(components map[string]HealthStatus) HealthStatus {
	if len(components) == 0 {
		return Unhealthy("no components checked")
	}

	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	worst := HealthStateHealthy
	var problems []string
	for _, name := range names {
		status := components[name]
		if status.State.severity() > worst.severity() {
			worst = status.State
		}
		if !status.IsHealthy() {
			problems = append(problems, fmt.Sprintf("%s: %s", name, status.Message))
		}
	}

	if len(problems) == 0 {
		return Healthy(fmt.Sprintf("%d components healthy", len(components)))
	}
	return NewHealthStatus(worst, strings.Join(problems, "; "))
}
