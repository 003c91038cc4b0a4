package observability

import (
	"context"
	"log/slog"

	"github.com/zero-day-ai/graphask/internal/types"
)

// Observability error codes.
const (
	// ErrExporterConnection indicates failure to create or reach a telemetry exporter.
	ErrExporterConnection types.ErrorCode = "OBSERVABILITY_EXPORTER_CONNECTION"

	// ErrMetricsRegistration indicates failure to create a metric instrument.
	ErrMetricsRegistration types.ErrorCode = "OBSERVABILITY_METRICS_REGISTRATION"

	// ErrShutdownTimeout indicates a provider did not flush before its deadline.
	ErrShutdownTimeout types.ErrorCode = "OBSERVABILITY_SHUTDOWN_TIMEOUT"

	// ErrInvalidLogging indicates an unusable logging configuration.
	ErrInvalidLogging types.ErrorCode = "OBSERVABILITY_INVALID_LOGGING"
)

// NewExporterConnectionError creates an error for a failed exporter setup.
func NewExporterConnectionError(endpoint string, cause error) *types.Error {
	e := types.WrapError(ErrExporterConnection, "failed to connect to exporter at "+endpoint, cause)
	e.Retryable = true
	return e
}

// ErrorStrategy defines how a telemetry failure is handled. Telemetry never
// decides the outcome of a question, so every strategy except FailFast
// swallows the error.
type ErrorStrategy int

const (
	// StrategyLog logs the error at warn level and continues (default).
	StrategyLog ErrorStrategy = iota

	// StrategyIgnore silently discards the error.
	StrategyIgnore

	// StrategyFailFast returns the error to the caller.
	StrategyFailFast
)

// ErrorHandler applies an ErrorStrategy to telemetry failures such as a
// provider that fails to flush on shutdown.
type ErrorHandler struct {
	strategy ErrorStrategy
	logger   *slog.Logger
}

// NewErrorHandler creates a handler. A nil logger falls back to slog.Default().
func NewErrorHandler(strategy ErrorStrategy, logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{strategy: strategy, logger: logger}
}

// Handle processes err for the named operation. It only returns non-nil
// under StrategyFailFast.
func (h *ErrorHandler) Handle(ctx context.Context, operation string, err error) error {
	if err == nil {
		return nil
	}
	switch h.strategy {
	case StrategyIgnore:
		return nil
	case StrategyFailFast:
		return err
	default:
		h.logger.WarnContext(ctx, "observability operation failed",
			"operation", operation,
			"error", err.Error(),
		)
		return nil
	}
}
