// Package event provides the observer hub the engine publishes notifications
// through. Events are a side channel for external observers: no internal
// component depends on a callback having run.
package event

import (
	"sync"
	"time"
)

// Kind identifies a notification type
type Kind string

const (
	KindServerAdded          Kind = "serverAdded"
	KindServerRemoved        Kind = "serverRemoved"
	KindServerSelected       Kind = "serverSelected"
	KindServerHealthChanged  Kind = "serverHealthChanged"
	KindRequestCompleted     Kind = "requestCompleted"
	KindRequestFailed        Kind = "requestFailed"
	KindCircuitBreakerOpened Kind = "circuitBreakerOpened"
	KindCircuitBreakerReset  Kind = "circuitBreakerReset"
	KindConfigUpdated        Kind = "configUpdated"
	KindDestroyed            Kind = "destroyed"
)

// Event carries the details of a single notification
type Event struct {
	Kind      Kind                   `json:"kind"`
	ServerID  string                 `json:"server_id,omitempty"`
	ClientKey string                 `json:"client_key,omitempty"`
	Err       error                  `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

// Callback receives published events. Callbacks run synchronously on the
// publishing goroutine and must not block.
type Callback func(Event)

// Hub is a simple per-kind callback registry
type Hub struct {
	mu   sync.RWMutex
	subs map[Kind][]Callback
	any  []Callback
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subs: make(map[Kind][]Callback),
	}
}

// On registers a callback for one event kind
func (h *Hub) On(kind Kind, cb Callback) {
	if cb == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[kind] = append(h.subs[kind], cb)
}

// OnAny registers a callback for every event kind
func (h *Hub) OnAny(cb Callback) {
	if cb == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.any = append(h.any, cb)
}

// Emit publishes an event to all matching callbacks. The subscriber list is
// snapshotted under the lock so callbacks run without holding it.
func (h *Hub) Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	h.mu.RLock()
	targets := make([]Callback, 0, len(h.subs[e.Kind])+len(h.any))
	targets = append(targets, h.subs[e.Kind]...)
	targets = append(targets, h.any...)
	h.mu.RUnlock()

	for _, cb := range targets {
		cb(e)
	}
}
