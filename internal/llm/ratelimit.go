package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/zero-day-ai/graphask/internal/types"
)

// RateLimitedOracle waits on a token bucket before each call to the wrapped Oracle.
type RateLimitedOracle struct {
	next    Oracle
	limiter *rate.Limiter
}

// NewRateLimitedOracle wraps next. A config with RequestsPerSecond == 0
// returns next unchanged.
func NewRateLimitedOracle(next Oracle, cfg RateLimitConfig) Oracle {
	if cfg.RequestsPerSecond <= 0 {
		return next
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedOracle{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// Complete implements Oracle.
func (r *RateLimitedOracle) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", TranslateError("rate_limiter", err)
	}
	return r.next.Complete(ctx, prompt)
}

// Health reports the wrapped oracle's health, or degraded when no token is
// currently available.
func (r *RateLimitedOracle) Health(ctx context.Context) types.HealthStatus {
	status := types.Healthy("oracle does not report health")
	if h, ok := r.next.(interface {
		Health(context.Context) types.HealthStatus
	}); ok {
		status = h.Health(ctx)
	}
	if status.IsHealthy() && r.limiter.Tokens() < 1 {
		return types.Degraded("rate limited: " + status.Message)
	}
	return status
}
