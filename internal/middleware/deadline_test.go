package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDeadline_CompletesBeforeTimeout(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})

	handler := Deadline(1 * time.Second)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body %q, got %q", "ok", rec.Body.String())
	}
}

func TestDeadline_TimeoutReturns504(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate a slow provider call that honors the context.
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	})

	handler := Deadline(50 * time.Millisecond)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "FEED_DEADLINE_EXCEEDED") {
		t.Errorf("expected deadline error code in body, got %s", rec.Body.String())
	}
}

func TestDeadline_No504AfterResponseStarted(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial")) //nolint:errcheck
		<-r.Context().Done()
	})

	handler := Deadline(50 * time.Millisecond)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected the handler's 200 to stand, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "FEED_DEADLINE_EXCEEDED") {
		t.Errorf("504 body written after response started: %s", rec.Body.String())
	}
}

func TestDeadline_PropagatesContextDeadline(t *testing.T) {
	var hasDeadline bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	})

	handler := Deadline(1 * time.Second)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if !hasDeadline {
		t.Error("expected request context to carry a deadline")
	}
}

func TestDeadline_ZeroDisabled(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("expected no deadline when disabled")
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := Deadline(0)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 (passthrough), got %d", rec.Code)
	}
}
