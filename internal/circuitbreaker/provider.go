package circuitbreaker

import (
	"log/slog"
	"time"
)

// Config holds the circuit breaker settings for one provider. The
// consecutive-failure breaker is always active. Slow-call and bulkhead
// layers are enabled only when their settings are non-zero.
type Config struct {
	// Consecutive-failure breaker (always active)
	FailureThreshold int
	RecoveryTimeout  time.Duration

	// Slow-call layer (active when SlowCallThreshold > 0)
	SlowCallThreshold time.Duration

	// Bulkhead layer (active when MaxConcurrent > 0)
	MaxConcurrent int
}

// ProviderBreaker composes the breaker layers for one provider into a single
// unit. The upstream client interacts only with ProviderBreaker; internal
// layering is transparent.
type ProviderBreaker struct {
	core      *ConsecutiveBreaker
	bulkhead  *BulkheadBreaker // nil if bulkhead disabled
	effective Breaker          // outermost layer, what Allow/Record call through
}

// NewProviderBreaker builds a composed breaker stack for the given provider.
// Composition order (inside → out): Consecutive → SlowCall → Bulkhead.
func NewProviderBreaker(provider string, cfg Config, logger *slog.Logger) *ProviderBreaker {
	core := NewConsecutiveBreaker(provider, cfg.FailureThreshold, cfg.RecoveryTimeout, logger)

	var current Breaker = core
	if cfg.SlowCallThreshold > 0 {
		current = NewSlowCallBreaker(current, cfg.SlowCallThreshold)
	}

	pb := &ProviderBreaker{core: core, effective: current}

	if cfg.MaxConcurrent > 0 {
		bh := NewBulkheadBreaker(current, cfg.MaxConcurrent, provider)
		pb.bulkhead = bh
		pb.effective = bh
	}

	return pb
}

func (p *ProviderBreaker) Allow() bool {
	return p.effective.Allow()
}

func (p *ProviderBreaker) RecordSuccess(latency time.Duration) {
	p.effective.RecordSuccess(latency)
}

func (p *ProviderBreaker) RecordFailure(latency time.Duration) {
	p.effective.RecordFailure(latency)
}

// Abandon releases an admitted call that ended without a recordable outcome,
// freeing the half-open probe slot if this call held it.
func (p *ProviderBreaker) Abandon() {
	p.effective.Abandon()
}

// State returns the core consecutive-failure breaker's state.
func (p *ProviderBreaker) State() State {
	return p.core.State()
}

func (p *ProviderBreaker) Reset() {
	p.effective.Reset()
}

// RetryAfter returns the remaining recovery timeout while the circuit is open.
func (p *ProviderBreaker) RetryAfter() time.Duration {
	return p.core.RetryAfter()
}

// Release frees a bulkhead concurrency slot. Must be called after every
// Allow() that returned true. No-op when the bulkhead is disabled.
func (p *ProviderBreaker) Release() {
	if p.bulkhead != nil {
		p.bulkhead.Release()
	}
}

// UpdateConfig re-tunes the core breaker at runtime (config hot-reload).
func (p *ProviderBreaker) UpdateConfig(cfg Config) {
	p.core.UpdateConfig(cfg.FailureThreshold, cfg.RecoveryTimeout)
}
