// Package limiter implements optional per-client request rate limiting for
// the dispatcher, keyed by client key.
package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ljluestc/balancer/internal/domain"
)

// maxClients bounds the limiter map; the least recently seen client is
// evicted when the bound is hit.
const maxClients = 4096

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter holds one token bucket per client key
type ClientLimiter struct {
	mu      sync.Mutex
	config  domain.RateLimitConfig
	clients map[string]*client
}

// New creates a limiter for the given configuration
func New(config domain.RateLimitConfig) *ClientLimiter {
	return &ClientLimiter{
		config:  config,
		clients: make(map[string]*client),
	}
}

// Allow reports whether the client may issue a request now. A disabled
// limiter always allows.
func (l *ClientLimiter) Allow(clientKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.config.Enabled {
		return true
	}

	c, ok := l.clients[clientKey]
	if !ok {
		if len(l.clients) >= maxClients {
			l.evictOldest()
		}
		c = &client{
			limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstSize),
		}
		l.clients[clientKey] = c
	}
	c.lastSeen = time.Now()

	return c.limiter.Allow()
}

// Configure replaces the rate limit settings and resets existing buckets so
// every client picks up the new rate.
func (l *ClientLimiter) Configure(config domain.RateLimitConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.config = config
	l.clients = make(map[string]*client)
}

// evictOldest removes the least recently seen client. Caller holds the lock.
func (l *ClientLimiter) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, c := range l.clients {
		if oldestKey == "" || c.lastSeen.Before(oldestTime) {
			oldestKey = key
			oldestTime = c.lastSeen
		}
	}
	if oldestKey != "" {
		delete(l.clients, oldestKey)
	}
}
