package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", &TransientError{Provider: "p", Status: 503}, true},
		{"wrapped transient", fmt.Errorf("call: %w", &TransientError{Provider: "p"}), true},
		{"client error", &ClientError{Provider: "p", Status: 404}, false},
		{"parse error", &ParseError{Provider: "p", Err: errors.New("bad json")}, false},
		{"circuit open", &UnavailableError{Provider: "p"}, false},
		{"deadline", context.DeadlineExceeded, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsUnavailable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"circuit open", &UnavailableError{Provider: "p"}, true},
		{"transient", &TransientError{Provider: "p", Status: 502}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"client error", &ClientError{Provider: "p", Status: 400}, false},
		{"parse error", &ParseError{Provider: "p", Err: errors.New("x")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUnavailable(tc.err); got != tc.want {
				t.Errorf("IsUnavailable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClientError_StatusCode(t *testing.T) {
	cases := []struct {
		status int
		want   int
	}{
		{http.StatusNotFound, http.StatusNotFound},
		{http.StatusBadRequest, http.StatusBadRequest},
		{http.StatusForbidden, http.StatusBadRequest},
		{http.StatusUnprocessableEntity, http.StatusBadRequest},
	}
	for _, tc := range cases {
		e := &ClientError{Provider: "p", Status: tc.status}
		if got := e.StatusCode(); got != tc.want {
			t.Errorf("StatusCode(%d) = %d, want %d", tc.status, got, tc.want)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	te := &TransientError{Provider: "odds", Status: 503}
	if te.Error() != "odds: transient upstream error: status 503" {
		t.Errorf("TransientError message: %q", te.Error())
	}

	ue := &UnavailableError{Provider: "odds", RetryAfter: 10 * time.Second}
	if ue.Error() != "odds: provider unavailable, circuit open" {
		t.Errorf("UnavailableError message: %q", ue.Error())
	}
}
