// Package upstream provides the resilient HTTP client used to call external
// sports-data providers, along with the error taxonomy shared by the retry
// policy, circuit breakers, and provider adapters.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TransientError is a transport-level failure: connection error, timeout,
// provider 5xx, or provider-side throttling (429). Transient errors are
// retryable and count against the provider's circuit breaker.
type TransientError struct {
	Provider string
	Status   int // 0 when no HTTP response was received
	Err      error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: transient upstream error: status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: transient upstream error: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ClientError is a well-formed 4xx response from the provider. The call
// reached the dependency successfully, so it is neither retried nor counted
// against the circuit breaker.
type ClientError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: upstream rejected request: status %d", e.Provider, e.Status)
}

// StatusCode maps the provider status onto the caller-facing status. Anything
// other than 404 collapses to 400 so provider-specific codes don't leak.
func (e *ClientError) StatusCode() int {
	if e.Status == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// UnavailableError is returned when the circuit breaker for a provider is
// open (or its bulkhead is saturated): the call failed fast and no network
// traffic was sent.
type UnavailableError struct {
	Provider   string
	RetryAfter time.Duration // hint: remaining recovery timeout, 0 if unknown
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: provider unavailable, circuit open", e.Provider)
}

// ParseError is a malformed or unexpected provider payload. The transport
// call succeeded, so parse failures are never retried and never counted
// against the circuit breaker; they are logged as data-quality issues.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed provider payload: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsRetryable reports whether err may be retried. Only transient transport
// errors qualify; client errors, parse errors, open circuits, and context
// cancellation are returned to the caller immediately.
func IsRetryable(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return false
}

// IsCircuitOpen reports whether err is a fail-fast circuit-open rejection.
func IsCircuitOpen(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// IsUnavailable reports whether err means the provider could not be reached
// at all: circuit open, or a transient failure that exhausted its retries.
func IsUnavailable(err error) bool {
	if IsCircuitOpen(err) {
		return true
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
