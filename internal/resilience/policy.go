package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy combines a retry schedule with a circuit breaker. Each attempt
// passes through the breaker, so an open circuit ends the retries early.
type Policy struct {
	name    string
	retry   RetryConfig
	breaker *CircuitBreaker
}

// NewPolicy builds a Policy for the named service from configuration
// values. Non-positive values fall back to the defaults.
func NewPolicy(name string, maxRetries, failureThreshold, resetTimeoutSecs int) *Policy {
	retry := DefaultRetryConfig()
	if maxRetries > 0 {
		retry.MaxAttempts = maxRetries
	}
	retry.OnRetry = RetryLogger(name)

	cb := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cb.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cb.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	cb.ShouldTrip = IsTransient
	cb.OnStateChange = func(from, to CircuitState) {
		zap.L().Warn("circuit breaker state change",
			zap.String("service", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}

	return &Policy{name: name, retry: retry, breaker: NewCircuitBreaker(cb)}
}

// WithRetry replaces the retry schedule, keeping the breaker.
func (p *Policy) WithRetry(cfg RetryConfig) *Policy {
	if cfg.OnRetry == nil {
		cfg.OnRetry = p.retry.OnRetry
	}
	return &Policy{name: p.name, retry: cfg, breaker: p.breaker}
}

// Breaker exposes the policy's circuit breaker.
func (p *Policy) Breaker() *CircuitBreaker {
	return p.breaker
}

// Call runs fn under the policy.
func Call[T any](ctx context.Context, p *Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	return DoVal(ctx, p.retry, func(ctx context.Context) (T, error) {
		return ExecuteVal(ctx, p.breaker, fn)
	})
}
