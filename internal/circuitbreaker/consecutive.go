package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oluwafemi02/sportsfeed-core/internal/metrics"
)

// ConsecutiveBreaker implements a consecutive-failure circuit breaker. It
// opens after failureThreshold failures in a row; any success while closed
// resets the count. While open, calls are rejected until recoveryTimeout has
// elapsed since the most recent failure, after which a single probe call is
// admitted. Probe success closes the circuit, probe failure re-opens it and
// refreshes the recovery clock.
type ConsecutiveBreaker struct {
	mu sync.Mutex

	state    State
	provider string
	logger   *slog.Logger

	failureCount     int
	failureThreshold int
	recoveryTimeout  time.Duration
	lastFailure      time.Time

	// probeInFlight serializes half-open admission: exactly one trial call
	// at a time, concurrent callers are told the circuit is still open.
	probeInFlight bool

	now func() time.Time
}

// NewConsecutiveBreaker creates a breaker for the given provider.
func NewConsecutiveBreaker(provider string, failureThreshold int, recoveryTimeout time.Duration, logger *slog.Logger) *ConsecutiveBreaker {
	return &ConsecutiveBreaker{
		state:            StateClosed,
		provider:         provider,
		logger:           logger,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
	}
}

func (b *ConsecutiveBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.recoveryTimeout {
			b.transitionTo(StateHalfOpen)
			b.probeInFlight = true
			return true
		}
		return false
	case StateHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	default:
		return true
	}
}

func (b *ConsecutiveBreaker) RecordSuccess(_ time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		// Only consecutive failures count.
		b.failureCount = 0
	case StateHalfOpen:
		b.transitionTo(StateClosed)
	}
}

func (b *ConsecutiveBreaker) RecordFailure(_ time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount++
		b.lastFailure = b.now()
		if b.failureCount >= b.failureThreshold {
			b.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		b.lastFailure = b.now()
		b.transitionTo(StateOpen)
	}
}

// Abandon releases an admitted call that never produced an outcome. Without
// this, a probe aborted by caller cancellation would leave probeInFlight set
// and no future probe could ever be admitted.
func (b *ConsecutiveBreaker) Abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probeInFlight = false
	}
}

func (b *ConsecutiveBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *ConsecutiveBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
}

// RetryAfter returns how long callers should wait before the breaker will
// admit a probe. Zero when the circuit is not open.
func (b *ConsecutiveBreaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return 0
	}
	remaining := b.recoveryTimeout - b.now().Sub(b.lastFailure)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// UpdateConfig updates the breaker thresholds at runtime (config hot-reload).
func (b *ConsecutiveBreaker) UpdateConfig(failureThreshold int, recoveryTimeout time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureThreshold = failureThreshold
	b.recoveryTimeout = recoveryTimeout
}

// transitionTo changes the breaker state, emitting metrics and logging.
// Must be called with b.mu held.
func (b *ConsecutiveBreaker) transitionTo(newState State) {
	if b.state == newState {
		return
	}

	from := b.state
	b.state = newState
	b.probeInFlight = false

	metrics.CircuitStateChanges.WithLabelValues(b.provider, from.String(), newState.String()).Inc()
	metrics.CircuitState.WithLabelValues(b.provider).Set(float64(newState))

	b.logger.Info("circuit breaker state change",
		"provider", b.provider,
		"from", from.String(),
		"to", newState.String(),
		"consecutive_failures", b.failureCount,
	)

	if newState == StateClosed {
		b.failureCount = 0
	}
}
