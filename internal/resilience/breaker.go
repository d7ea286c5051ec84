// Package resilience guards calls to external collaborators with retry,
// circuit breaking, rate limiting, and per-attempt timeouts.
package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown ends.
	BreakerOpen
	// BreakerHalfOpen lets one trial call through at a time.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned without calling the collaborator while the
// breaker is open or a half-open trial call is still running.
var ErrBreakerOpen = eris.New("circuit breaker is open")

// BreakerConfig controls a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Default: 5.
	FailureThreshold int

	// ResetTimeout is the cooldown of an open breaker. Default: 30s.
	ResetTimeout time.Duration

	// RecoverAfter is the number of successful trial calls that close a
	// half-open breaker. Default: 1.
	RecoverAfter int

	// ShouldTrip decides whether an error counts as a failure. Nil counts
	// every error.
	ShouldTrip func(err error) bool

	// OnStateChange observes transitions. status is taken after the change.
	OnStateChange func(from BreakerState, status BreakerStatus)
}

// DefaultBreakerConfig returns the defaults used for generator and judge calls.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		RecoverAfter:     1,
	}
}

// BreakerStatus is a point-in-time view of a breaker.
type BreakerStatus struct {
	Service  string
	State    BreakerState
	Failures int
	// Rejected counts calls refused since the breaker was created.
	Rejected int
	// RetryAt is when an open breaker admits its next trial call.
	RetryAt time.Time
}

// Breaker is a consecutive-failure circuit breaker for one collaborator
// (the exercise generator or the answer judge).
type Breaker struct {
	service string
	cfg     BreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	rejected  int
	retryAt   time.Time
	trialBusy bool
	trialWins int

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewBreaker creates a closed breaker for service.
func NewBreaker(service string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.RecoverAfter <= 0 {
		cfg.RecoverAfter = def.RecoverAfter
	}
	return &Breaker{
		service: service,
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// Allow reports whether a call may proceed. Every allowed call must be
// followed by Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()
	if b.state == BreakerOpen && !now.Before(b.retryAt) {
		b.moveTo(BreakerHalfOpen)
	}

	switch b.state {
	case BreakerOpen:
		b.rejected++
		return eris.Wrapf(ErrBreakerOpen, "resilience: %s: retry in %s",
			b.service, b.retryAt.Sub(now).Round(time.Millisecond))
	case BreakerHalfOpen:
		if b.trialBusy {
			b.rejected++
			return eris.Wrapf(ErrBreakerOpen, "resilience: %s: trial call in flight", b.service)
		}
		b.trialBusy = true
	}
	return nil
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil && (b.cfg.ShouldTrip == nil || b.cfg.ShouldTrip(err))

	switch b.state {
	case BreakerClosed:
		if !failed {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	case BreakerHalfOpen:
		b.trialBusy = false
		if failed {
			b.failures++
			b.trip()
			return
		}
		b.failures = 0
		b.trialWins++
		if b.trialWins >= b.cfg.RecoverAfter {
			b.moveTo(BreakerClosed)
		}
	}
}

// Status returns the breaker's current view. An open breaker whose
// cooldown has ended reports half-open even before the next call.
func (b *Breaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.statusLocked()
	if st.State == BreakerOpen && !b.nowFunc().Before(b.retryAt) {
		st.State = BreakerHalfOpen
	}
	return st
}

func (b *Breaker) statusLocked() BreakerStatus {
	return BreakerStatus{
		Service:  b.service,
		State:    b.state,
		Failures: b.failures,
		Rejected: b.rejected,
		RetryAt:  b.retryAt,
	}
}

func (b *Breaker) trip() {
	b.retryAt = b.nowFunc().Add(b.cfg.ResetTimeout)
	b.trialWins = 0
	b.moveTo(BreakerOpen)
}

func (b *Breaker) moveTo(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, b.statusLocked())
	}
}
