package circuitbreaker

import (
	"log/slog"
	"testing"
	"time"
)

func TestSlowCall_SlowSuccessCountsAsFailure(t *testing.T) {
	core := NewConsecutiveBreaker("slow-provider", 2, 30*time.Second, slog.Default())
	b := NewSlowCallBreaker(core, 100*time.Millisecond)

	b.RecordSuccess(200 * time.Millisecond)
	b.RecordSuccess(300 * time.Millisecond)

	if b.State() != StateOpen {
		t.Fatalf("expected StateOpen after 2 slow successes, got %v", b.State())
	}
}

func TestSlowCall_FastSuccessPassesThrough(t *testing.T) {
	core := NewConsecutiveBreaker("slow-provider", 2, 30*time.Second, slog.Default())
	b := NewSlowCallBreaker(core, 100*time.Millisecond)

	// A fast success between failures resets the consecutive count.
	b.RecordFailure(10 * time.Millisecond)
	b.RecordSuccess(50 * time.Millisecond)
	b.RecordFailure(10 * time.Millisecond)

	if b.State() != StateClosed {
		t.Fatalf("expected StateClosed, got %v", b.State())
	}
}

func TestSlowCall_FailurePassesThrough(t *testing.T) {
	core := NewConsecutiveBreaker("slow-provider", 1, 30*time.Second, slog.Default())
	b := NewSlowCallBreaker(core, 100*time.Millisecond)

	b.RecordFailure(10 * time.Millisecond)
	if b.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %v", b.State())
	}
	if b.Allow() {
		t.Fatal("expected Allow() to return false for open breaker")
	}
}
