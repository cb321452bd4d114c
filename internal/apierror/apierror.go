// Package apierror provides a centralized error response format for the
// service. All handlers use WriteJSON to produce consistent, machine-readable
// error responses with stable error codes, so callers can distinguish
// "provider temporarily unavailable, retry later" from "invalid request".
package apierror

import (
	"encoding/json"
	"net/http"
)

// ErrorCode is a machine-readable error classification string.
type ErrorCode string

// Service error codes. These form a public API contract — clients can program
// against these stable codes. Do not rename or remove existing codes.
const (
	RouteNotFound       ErrorCode = "FEED_ROUTE_NOT_FOUND"
	MethodNotAllowed    ErrorCode = "FEED_METHOD_NOT_ALLOWED"
	UpstreamUnavailable ErrorCode = "FEED_UPSTREAM_UNAVAILABLE"
	InvalidRequest      ErrorCode = "FEED_INVALID_REQUEST"
	NotFound            ErrorCode = "FEED_NOT_FOUND"
	BadUpstreamPayload  ErrorCode = "FEED_BAD_UPSTREAM_PAYLOAD"
	RateLimitExceeded   ErrorCode = "FEED_RATE_LIMIT_EXCEEDED"
	InternalError       ErrorCode = "FEED_INTERNAL_ERROR"
	DeadlineExceeded    ErrorCode = "FEED_DEADLINE_EXCEEDED"
)

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Pre-serialized JSON bodies for the most common error responses.
// Avoids json.Encoder allocation on every error in the hot path.
// These do NOT include request_id since it varies per request.
var (
	preRouteNotFound       = mustMarshal(http.StatusNotFound, RouteNotFound, "no matching route")
	preUpstreamUnavailable = mustMarshal(http.StatusServiceUnavailable, UpstreamUnavailable, "provider temporarily unavailable, retry later")
	preRateLimitExceeded   = mustMarshal(http.StatusTooManyRequests, RateLimitExceeded, "rate limit exceeded, retry later")
)

func mustMarshal(status int, code ErrorCode, message string) []byte {
	b, _ := json.Marshal(ErrorResponse{
		Error:     http.StatusText(status),
		ErrorCode: string(code),
		Message:   message,
	})
	return append(b, '\n')
}

// WriteJSON writes a structured JSON error response. For common error
// code+message combinations, pre-serialized bodies are used (no allocation).
// When request_id is available (from X-Request-ID header), it is included in
// the response. The request parameter may be nil for contexts where the
// request is not available.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	requestID := ""
	if r != nil {
		requestID = r.Header.Get("X-Request-ID")
	}

	if requestID == "" {
		if body := preSerialized(status, code, message); body != nil {
			w.Write(body) //nolint:errcheck
			return
		}
	}

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:     http.StatusText(status),
		ErrorCode: string(code),
		Message:   message,
		RequestID: requestID,
	})
}

// preSerialized returns a pre-built response body for common error
// combinations, or nil if no match.
func preSerialized(status int, code ErrorCode, message string) []byte {
	switch {
	case code == RouteNotFound && status == http.StatusNotFound && message == "no matching route":
		return preRouteNotFound
	case code == UpstreamUnavailable && status == http.StatusServiceUnavailable && message == "provider temporarily unavailable, retry later":
		return preUpstreamUnavailable
	case code == RateLimitExceeded && status == http.StatusTooManyRequests && message == "rate limit exceeded, retry later":
		return preRateLimitExceeded
	}
	return nil
}
