// Package circuitbreaker provides composable circuit breaker implementations
// for protecting the service against failing or degraded sports-data providers.
package circuitbreaker

import "time"

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation; calls pass through.
	StateOpen                  // Failing; calls are rejected immediately.
	StateHalfOpen              // Probing; a single trial call is allowed.
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is the common interface for all circuit breaker types.
type Breaker interface {
	// Allow reports whether a call may proceed. Returns false when the
	// circuit is open and the call should fail fast without any network
	// traffic.
	Allow() bool

	// RecordSuccess records a successful provider response with its latency.
	RecordSuccess(latency time.Duration)

	// RecordFailure records a failed provider response with its latency.
	RecordFailure(latency time.Duration)

	// Abandon releases an admitted call that ended without a provider
	// outcome (caller cancellation, request build failure). In half-open
	// it frees the probe slot so the next caller can probe; otherwise it
	// is a no-op.
	Abandon()

	// State returns the current circuit breaker state.
	State() State

	// Reset forces the breaker back to closed state.
	Reset()
}
