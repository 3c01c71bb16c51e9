// Package breaker implements the per-server circuit breaker bank. A breaker
// opens when a server accumulates enough request-level failures and closes
// again lazily: the elapsed open period is re-evaluated on the next
// consultation, not by a timer.
package breaker

import (
	"sync"
	"time"

	"github.com/ljluestc/balancer/internal/event"
	"github.com/ljluestc/balancer/pkg/logger"
)

// State is a read-only view of one server's breaker
type State struct {
	FailureCount  int       `json:"failure_count"`
	LastFailureAt time.Time `json:"last_failure_at"`
	Open          bool      `json:"open"`
}

type entry struct {
	failures    int
	lastFailure time.Time
	open        bool
}

// Bank holds circuit breaker state keyed by server ID
type Bank struct {
	mu        sync.Mutex
	entries   map[string]*entry
	threshold int
	openFor   time.Duration
	hub       *event.Hub
	log       *logger.Logger
}

// New creates a bank with the given failure threshold and open duration
func New(threshold int, openFor time.Duration, hub *event.Hub, log *logger.Logger) *Bank {
	return &Bank{
		entries:   make(map[string]*entry),
		threshold: threshold,
		openFor:   openFor,
		hub:       hub,
		log:       log.BreakerLogger(),
	}
}

// Configure replaces the threshold and open duration for future decisions
func (b *Bank) Configure(threshold int, openFor time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.threshold = threshold
	b.openFor = openFor
}

// IsOpen reports whether the server's breaker currently gates selection.
// Consulting an open breaker whose open period has elapsed closes it and
// resets its failure count before answering.
func (b *Bank) IsOpen(id string) bool {
	b.mu.Lock()
	e, ok := b.entries[id]
	if !ok || !e.open {
		b.mu.Unlock()
		return false
	}

	if time.Since(e.lastFailure) >= b.openFor {
		e.open = false
		e.failures = 0
		b.mu.Unlock()

		b.log.WithField("server_id", id).Info("Circuit breaker reset after open period")
		b.hub.Emit(event.Event{Kind: event.KindCircuitBreakerReset, ServerID: id})
		return false
	}

	b.mu.Unlock()
	return true
}

// RecordFailure registers one request-level failure. The breaker opens the
// instant the failure count reaches the threshold.
func (b *Bank) RecordFailure(id string) {
	b.mu.Lock()
	e, ok := b.entries[id]
	if !ok {
		e = &entry{}
		b.entries[id] = e
	}
	e.failures++
	e.lastFailure = time.Now()

	opened := false
	if !e.open && e.failures >= b.threshold {
		e.open = true
		opened = true
	}
	failures := e.failures
	b.mu.Unlock()

	if opened {
		b.log.WithField("server_id", id).
			WithField("failures", failures).
			Warn("Circuit breaker opened")
		b.hub.Emit(event.Event{Kind: event.KindCircuitBreakerOpened, ServerID: id})
	}
}

// RecordSuccess resets the server's failure count and closes its breaker
func (b *Bank) RecordSuccess(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[id]; ok {
		e.failures = 0
		e.open = false
	}
}

// StateOf returns a snapshot of one server's breaker state
func (b *Bank) StateOf(id string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[id]; ok {
		return State{
			FailureCount:  e.failures,
			LastFailureAt: e.lastFailure,
			Open:          e.open,
		}
	}
	return State{}
}

// Remove drops the breaker state for a removed server
func (b *Bank) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, id)
}

// Reset drops all breaker state
func (b *Bank) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]*entry)
}
