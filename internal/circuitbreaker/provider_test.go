package circuitbreaker

import (
	"log/slog"
	"testing"
	"time"
)

func TestProviderBreaker_CoreOnly(t *testing.T) {
	pb := NewProviderBreaker("p1", Config{
		FailureThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
	}, slog.Default())

	if !pb.Allow() {
		t.Fatal("expected Allow() on fresh breaker")
	}
	pb.Release() // no-op without bulkhead

	pb.RecordFailure(10 * time.Millisecond)
	pb.RecordFailure(10 * time.Millisecond)
	if pb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %v", pb.State())
	}
	if pb.RetryAfter() <= 0 {
		t.Fatal("expected positive RetryAfter while open")
	}
}

func TestProviderBreaker_SlowCallLayer(t *testing.T) {
	pb := NewProviderBreaker("p2", Config{
		FailureThreshold:  2,
		RecoveryTimeout:   30 * time.Second,
		SlowCallThreshold: 50 * time.Millisecond,
	}, slog.Default())

	pb.RecordSuccess(100 * time.Millisecond)
	pb.RecordSuccess(100 * time.Millisecond)
	if pb.State() != StateOpen {
		t.Fatalf("expected StateOpen from slow successes, got %v", pb.State())
	}
}

func TestProviderBreaker_BulkheadLayer(t *testing.T) {
	pb := NewProviderBreaker("p3", Config{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		MaxConcurrent:    1,
	}, slog.Default())

	if !pb.Allow() {
		t.Fatal("expected first Allow() to succeed")
	}
	if pb.Allow() {
		t.Fatal("expected second Allow() to hit the concurrency limit")
	}
	pb.Release()
	if !pb.Allow() {
		t.Fatal("expected Allow() after Release")
	}
}

func TestProviderBreaker_AbandonFreesProbeThroughLayers(t *testing.T) {
	pb := NewProviderBreaker("p5", Config{
		FailureThreshold:  1,
		RecoveryTimeout:   10 * time.Second,
		SlowCallThreshold: 50 * time.Millisecond,
		MaxConcurrent:     2,
	}, slog.Default())
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	pb.core.now = clk.Now

	pb.RecordFailure(10 * time.Millisecond)
	clk.Advance(10 * time.Second)

	if !pb.Allow() {
		t.Fatal("expected probe to be admitted after recovery timeout")
	}
	pb.Abandon()
	pb.Release()

	if !pb.Allow() {
		t.Fatal("expected a new probe after the first was abandoned")
	}
	pb.RecordSuccess(10 * time.Millisecond)
	pb.Release()

	if pb.State() != StateClosed {
		t.Fatalf("expected StateClosed after probe success, got %v", pb.State())
	}
}

func TestProviderBreaker_UpdateConfig(t *testing.T) {
	pb := NewProviderBreaker("p4", Config{
		FailureThreshold: 10,
		RecoveryTimeout:  30 * time.Second,
	}, slog.Default())

	pb.UpdateConfig(Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	pb.RecordFailure(10 * time.Millisecond)
	if pb.State() != StateOpen {
		t.Fatalf("expected StateOpen with updated threshold, got %v", pb.State())
	}
}
