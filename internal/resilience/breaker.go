package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker protects the event bus publish path. After maxFailures
// consecutive failures the circuit opens and publishes fail fast with
// ErrCircuitOpen until cooldown elapses; the next call then probes the
// bus, closing the circuit on success and re-opening it on failure.
type Breaker struct {
	mu          sync.Mutex
	maxFailures int
	cooldown    time.Duration
	failures    int
	openUntil   time.Time
	now         func() time.Time // for testing
}

// NewBreaker creates a circuit breaker that opens after maxFailures
// consecutive failures and stays open for cooldown.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.now().Before(b.openUntil) {
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.failures >= b.maxFailures {
			b.openUntil = b.now().Add(b.cooldown)
			// A failed probe after cooldown re-opens immediately,
			// so the counter stays saturated.
			b.failures = b.maxFailures
		}
		return err
	}

	b.failures = 0
	b.openUntil = time.Time{}
	return nil
}
