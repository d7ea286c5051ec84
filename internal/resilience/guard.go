package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Guard wraps every call to one collaborator. Each attempt waits for the
// rate limiter, asks the breaker, and runs under its own timeout; failed
// attempts are retried per the retry policy.
type Guard struct {
	service string
	retry   RetryConfig
	breaker *Breaker
	limiter *rate.Limiter
	timeout time.Duration
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithRetry sets the retry policy.
func WithRetry(cfg RetryConfig) GuardOption {
	return func(g *Guard) {
		g.retry = cfg
	}
}

// WithBreaker sets the breaker configuration.
func WithBreaker(cfg BreakerConfig) GuardOption {
	return func(g *Guard) {
		if cfg.OnStateChange == nil {
			cfg.OnStateChange = logStateChange
		}
		g.breaker = NewBreaker(g.service, cfg)
	}
}

// WithRateLimit throttles attempts to rps per second with the given burst.
// rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) GuardOption {
	return func(g *Guard) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, burst))
	}
}

// WithTimeout bounds each attempt. Zero disables the bound.
func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		g.timeout = d
	}
}

// NewGuard creates a guard for service with default retry and breaker
// settings and no rate limit or timeout.
func NewGuard(service string, opts ...GuardOption) *Guard {
	g := &Guard{
		service: service,
		retry:   DefaultRetryConfig(),
	}
	g.breaker = NewBreaker(service, BreakerConfig{OnStateChange: logStateChange})
	for _, o := range opts {
		o(g)
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = RetryLogger(service, "complete")
	}
	return g
}

// Service returns the guarded service name.
func (g *Guard) Service() string {
	return g.service
}

// Breaker exposes the guard's breaker for inspection.
func (g *Guard) Breaker() *Breaker {
	return g.breaker
}

// Call runs fn under the guard. An open breaker ends the call immediately
// and is not retried.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	retry := g.retry
	shouldRetry := retry.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}
	retry.ShouldRetry = func(err error) bool {
		return !errors.Is(err, ErrBreakerOpen) && shouldRetry(err)
	}

	return Retry(ctx, retry, func(ctx context.Context) (T, error) {
		var zero T
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return zero, eris.Wrapf(err, "resilience: %s: rate limit", g.service)
			}
		}
		if err := g.breaker.Allow(); err != nil {
			return zero, err
		}

		attemptCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		val, err := fn(attemptCtx)
		g.breaker.Record(err)
		return val, err
	})
}

func logStateChange(from BreakerState, st BreakerStatus) {
	fields := []zap.Field{
		zap.String("service", st.Service),
		zap.Stringer("from", from),
		zap.Stringer("to", st.State),
		zap.Int("consecutive_failures", st.Failures),
		zap.Int("rejected_calls", st.Rejected),
	}
	if st.State == BreakerOpen {
		fields = append(fields, zap.Time("retry_at", st.RetryAt))
	}
	zap.L().Warn("llm breaker state change", fields...)
}
