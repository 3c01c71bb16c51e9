// Package session implements the client-key to server-id affinity tracker
// used when sticky sessions are enabled.
package session

import (
	"sync"
	"time"

	"github.com/ljluestc/balancer/pkg/logger"
)

type pin struct {
	serverID string
	expires  time.Time
}

// Tracker maps client keys to pinned server IDs. Pins carry an advisory TTL;
// a zero TTL means pins never expire on their own.
type Tracker struct {
	mu   sync.Mutex
	pins map[string]pin
	ttl  time.Duration
	log  *logger.Logger
}

// New creates a tracker with the given pin TTL
func New(ttl time.Duration, log *logger.Logger) *Tracker {
	return &Tracker{
		pins: make(map[string]pin),
		ttl:  ttl,
		log:  log.SessionLogger(),
	}
}

// SetTTL replaces the TTL applied to future pins
func (t *Tracker) SetTTL(ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ttl = ttl
}

// Pin binds a client key to a server ID
func (t *Tracker) Pin(clientKey, serverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := pin{serverID: serverID}
	if t.ttl > 0 {
		p.expires = time.Now().Add(t.ttl)
	}
	t.pins[clientKey] = p
}

// Lookup returns the pinned server ID for a client key. Expired pins are
// dropped and reported as absent.
func (t *Tracker) Lookup(clientKey string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pins[clientKey]
	if !ok {
		return "", false
	}
	if !p.expires.IsZero() && time.Now().After(p.expires) {
		delete(t.pins, clientKey)
		return "", false
	}
	return p.serverID, true
}

// Clear removes one client's pin and reports whether one existed
func (t *Tracker) Clear(clientKey string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pins[clientKey]; !ok {
		return false
	}
	delete(t.pins, clientKey)
	return true
}

// ClearAll removes every pin
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pins = make(map[string]pin)
}

// RemoveServer purges all pins referencing a removed server
func (t *Tracker) RemoveServer(serverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, p := range t.pins {
		if p.serverID == serverID {
			delete(t.pins, key)
		}
	}
}

// Len returns the number of live pins, expired ones included
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pins)
}
