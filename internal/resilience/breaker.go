// Package resilience provides a circuit breaker for outbound platform calls.
//
// [Breaker] is a three-state breaker (closed → open → half-open) that stops
// hammering the REST API while it is down: after a run of consecutive
// failures it rejects calls immediately with [ErrOpen], then lets a single
// probe through once the cooldown has elapsed. Context cancellations do not
// count as failures — a caller giving up says nothing about server health.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] while the breaker is open.
var ErrOpen = errors.New("resilience: circuit is open")

// Breaker guards a single upstream. It is safe for concurrent use.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
	probing  bool
}

// NewBreaker creates a Breaker that opens after threshold consecutive
// failures and allows a probe call every cooldown. Non-positive values fall
// back to 5 failures and a 30 second cooldown.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown}
}

// Do runs fn if the breaker allows it and feeds the outcome back into the
// breaker state. While open it returns [ErrOpen] without calling fn, except
// for one probe call per cooldown period. Errors caused by ctx are passed
// through without counting as upstream failures.
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()

	// A cancelled or expired context tells us nothing about the upstream.
	if err != nil && ctx.Err() != nil {
		b.settle(nil)
		return err
	}
	b.settle(err)
	return err
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && time.Since(b.openedAt) < b.cooldown
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	if time.Since(b.openedAt) < b.cooldown {
		return ErrOpen
	}
	// Cooldown elapsed; let one probe through at a time.
	if b.probing {
		return ErrOpen
	}
	b.probing = true
	slog.Info("circuit breaker probing upstream", "name", b.name)
	return nil
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasProbe := b.probing
	b.probing = false

	if err == nil {
		if b.open {
			slog.Info("circuit breaker closed", "name", b.name)
		}
		b.open = false
		b.failures = 0
		return
	}

	if wasProbe {
		// Failed probe re-arms the cooldown.
		b.openedAt = time.Now()
		slog.Warn("circuit breaker probe failed, staying open", "name", b.name)
		return
	}

	b.failures++
	if !b.open && b.failures >= b.threshold {
		b.open = true
		b.openedAt = time.Now()
		slog.Warn("circuit breaker opened", "name", b.name, "consecutive_failures", b.failures)
	}
}
