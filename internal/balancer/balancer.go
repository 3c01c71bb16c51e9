// Package balancer wires the registry, selection strategies, health monitor,
// circuit breaker bank, session tracker, and statistics collector into the
// request dispatcher that callers drive.
package balancer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ljluestc/balancer/internal/breaker"
	"github.com/ljluestc/balancer/internal/domain"
	apperrors "github.com/ljluestc/balancer/internal/errors"
	"github.com/ljluestc/balancer/internal/event"
	"github.com/ljluestc/balancer/internal/health"
	"github.com/ljluestc/balancer/internal/limiter"
	"github.com/ljluestc/balancer/internal/registry"
	"github.com/ljluestc/balancer/internal/session"
	"github.com/ljluestc/balancer/internal/stats"
	"github.com/ljluestc/balancer/internal/strategy"
	"github.com/ljluestc/balancer/pkg/logger"
)

// Handler is the caller-supplied unit of work. The dispatcher selects the
// server; the handler does whatever "sending the request" means to the
// caller and may fail.
type Handler func(ctx context.Context, srv *domain.Server, payload interface{}) (interface{}, error)

// Balancer is the request-routing engine facade
type Balancer struct {
	mu      sync.RWMutex
	config  domain.Config
	picker  strategy.Strategy
	closed  int32
	servers *registry.Registry
	breaker *breaker.Bank
	session *session.Tracker
	stats   *stats.Collector
	monitor *health.Monitor
	limiter *limiter.ClientLimiter
	hub     *event.Hub
	log     *logger.Logger
}

// New creates a balancer with the given configuration. A nil probe disables
// background health checking; servers then keep whatever health flag callers
// set. The monitor starts immediately when a probe is supplied.
func New(cfg domain.Config, probe health.Probe, log *logger.Logger) (*Balancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "balancer", "invalid configuration")
	}

	picker, err := strategy.New(cfg.Algorithm)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "balancer", "invalid configuration")
	}

	hub := event.NewHub()
	reg := registry.New(hub, log)

	b := &Balancer{
		config:  cfg,
		picker:  picker,
		servers: reg,
		breaker: breaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerTimeout, hub, log),
		session: session.New(cfg.SessionTimeout, log),
		stats:   stats.NewCollector(),
		limiter: limiter.New(cfg.RateLimit),
		hub:     hub,
		log:     log.DispatcherLogger(),
	}

	if probe != nil {
		b.monitor = health.NewMonitor(reg, probe, cfg.HealthCheckInterval, cfg.HealthCheckTimeout, hub, log)
		b.monitor.Start()
	}

	return b, nil
}

// On registers an observer callback for one event kind
func (b *Balancer) On(kind event.Kind, cb event.Callback) {
	b.hub.On(kind, cb)
}

// AddServer registers a server. It returns false if the ID is already
// present or the record is invalid; nothing is mutated in that case.
func (b *Balancer) AddServer(srv *domain.Server) bool {
	if b.isClosed() {
		return false
	}
	return b.servers.Add(srv)
}

// RemoveServer removes a server and purges its circuit breaker state,
// statistics, and any session pins referencing it. It returns false for an
// unknown ID.
func (b *Balancer) RemoveServer(id string) bool {
	if !b.servers.Remove(id) {
		return false
	}
	b.breaker.Remove(id)
	b.stats.Remove(id)
	b.session.RemoveServer(id)
	return true
}

// GetServer returns a server by ID
func (b *Balancer) GetServer(id string) (*domain.Server, bool) {
	return b.servers.Get(id)
}

// GetAllServers returns every server in insertion order
func (b *Balancer) GetAllServers() []*domain.Server {
	return b.servers.List()
}

// GetHealthyServers returns the healthy subset in insertion order
func (b *Balancer) GetHealthyServers() []*domain.Server {
	return b.servers.ListHealthy()
}

// BreakerState returns the circuit breaker snapshot for a server
func (b *Balancer) BreakerState(id string) breaker.State {
	return b.breaker.StateOf(id)
}

// snapshot returns the active config and strategy as one consistent pair
func (b *Balancer) snapshot() (domain.Config, strategy.Strategy) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config, b.picker
}

// eligible computes the candidate list fresh: healthy servers minus open
// breakers, minus servers at their advisory connection limit.
func (b *Balancer) eligible(cfg domain.Config) []*domain.Server {
	healthy := b.servers.ListHealthy()

	out := make([]*domain.Server, 0, len(healthy))
	for _, srv := range healthy {
		if cfg.CircuitBreaker && b.breaker.IsOpen(srv.ID) {
			continue
		}
		if !srv.HasCapacity() {
			continue
		}
		out = append(out, srv)
	}
	return out
}

// SelectServer picks a server for the given client key without dispatching a
// request. Sticky sessions are honored when enabled; a stale pin (server
// removed, unhealthy, or gated by its breaker) falls back to a fresh
// selection and the pin is updated.
func (b *Balancer) SelectServer(clientKey string) (*domain.Server, error) {
	if b.isClosed() {
		return nil, apperrors.NewBalancerClosedError()
	}
	cfg, picker := b.snapshot()
	return b.selectWith(cfg, picker, clientKey)
}

func (b *Balancer) selectWith(cfg domain.Config, picker strategy.Strategy, clientKey string) (*domain.Server, error) {
	if cfg.StickySession && clientKey != "" {
		if id, ok := b.session.Lookup(clientKey); ok {
			if srv, found := b.servers.Get(id); found && b.usable(cfg, srv) {
				b.hub.Emit(event.Event{Kind: event.KindServerSelected, ServerID: srv.ID, ClientKey: clientKey})
				return srv, nil
			}
			// Stale pin, fall through to a fresh selection
			b.session.Clear(clientKey)
		}
	}

	srv := picker.Select(b.eligible(cfg), clientKey)
	if srv == nil {
		return nil, apperrors.NewNoHealthyServersError()
	}

	if cfg.StickySession && clientKey != "" {
		b.session.Pin(clientKey, srv.ID)
	}
	b.hub.Emit(event.Event{Kind: event.KindServerSelected, ServerID: srv.ID, ClientKey: clientKey})
	return srv, nil
}

func (b *Balancer) usable(cfg domain.Config, srv *domain.Server) bool {
	if !srv.IsHealthy() {
		return false
	}
	if cfg.CircuitBreaker && b.breaker.IsOpen(srv.ID) {
		return false
	}
	return srv.HasCapacity()
}

// HandleRequest dispatches one logical request: select a server, invoke the
// handler, retry on failure up to the configured budget, and fail over
// transparently. An empty eligible set raises NO_HEALTHY_SERVERS immediately,
// even mid-loop. Statistics and circuit breaker failure bookkeeping happen
// exactly once per logical request, after the budget is exhausted, while the
// requestFailed event fires for every failed attempt.
func (b *Balancer) HandleRequest(ctx context.Context, clientKey string, payload interface{}, handler Handler) (interface{}, error) {
	if b.isClosed() {
		return nil, apperrors.NewBalancerClosedError()
	}
	if !b.limiter.Allow(clientKey) {
		return nil, apperrors.NewRateLimitError(clientKey)
	}

	cfg, picker := b.snapshot()

	var lastErr error
	var lastSrv *domain.Server

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		srv, err := b.selectWith(cfg, picker, clientKey)
		if err != nil {
			// No eligible candidates: short-circuit the remaining attempts
			return nil, err
		}
		lastSrv = srv

		result, elapsed, err := b.dispatch(ctx, srv, payload, handler)
		if err == nil {
			ms := float64(elapsed) / float64(time.Millisecond)
			srv.SetResponseTime(elapsed.Milliseconds())
			b.stats.RecordSuccess(srv.ID, ms)
			b.breaker.RecordSuccess(srv.ID)
			b.hub.Emit(event.Event{Kind: event.KindRequestCompleted, ServerID: srv.ID, ClientKey: clientKey})
			return result, nil
		}

		lastErr = err
		b.log.WithField("server_id", srv.ID).
			WithField("attempt", attempt+1).
			WithError(err).
			Warn("Request attempt failed")
		b.hub.Emit(event.Event{
			Kind:      event.KindRequestFailed,
			ServerID:  srv.ID,
			ClientKey: clientKey,
			Err:       err,
			Detail:    map[string]interface{}{"attempt": attempt + 1},
		})

		if attempt < cfg.MaxRetries && cfg.RetryDelay > 0 {
			select {
			case <-time.After(cfg.RetryDelay):
			case <-ctx.Done():
				b.recordExhausted(lastSrv)
				return nil, apperrors.NewHandlerFailedError(lastSrv.ID, ctx.Err())
			}
		}
	}

	b.recordExhausted(lastSrv)
	return nil, apperrors.NewHandlerFailedError(lastSrv.ID, lastErr)
}

// recordExhausted registers the single request-level failure after the retry
// budget is spent.
func (b *Balancer) recordExhausted(srv *domain.Server) {
	b.stats.RecordFailure(srv.ID)
	b.breaker.RecordFailure(srv.ID)
}

// dispatch runs one attempt with the connection counter held for exactly the
// handler's duration, released on every exit path.
func (b *Balancer) dispatch(ctx context.Context, srv *domain.Server, payload interface{}, handler Handler) (interface{}, time.Duration, error) {
	srv.IncrementConnections()
	defer srv.DecrementConnections()

	start := time.Now()
	result, err := handler(ctx, srv, payload)
	return result, time.Since(start), err
}

// GetConfig returns the active configuration snapshot
func (b *Balancer) GetConfig() domain.Config {
	cfg, _ := b.snapshot()
	return cfg
}

// UpdateConfig merges a partial update into the active snapshot and swaps it
// atomically. A health-check interval or timeout change restarts the probe
// timer.
func (b *Balancer) UpdateConfig(patch domain.ConfigPatch) error {
	if b.isClosed() {
		return apperrors.NewBalancerClosedError()
	}

	b.mu.Lock()
	prev := b.config
	next := prev.Apply(patch)
	if err := next.Validate(); err != nil {
		b.mu.Unlock()
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "balancer", "invalid configuration update")
	}
	if next.Algorithm != prev.Algorithm {
		picker, err := strategy.New(next.Algorithm)
		if err != nil {
			b.mu.Unlock()
			return apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "balancer", "invalid configuration update")
		}
		b.picker = picker
	}
	b.config = next
	b.mu.Unlock()

	b.breaker.Configure(next.CircuitBreakerThreshold, next.CircuitBreakerTimeout)
	b.session.SetTTL(next.SessionTimeout)
	if next.RateLimit != prev.RateLimit {
		b.limiter.Configure(next.RateLimit)
	}
	if b.monitor != nil {
		b.monitor.Reschedule(next.HealthCheckInterval, next.HealthCheckTimeout)
	}

	b.log.WithField("algorithm", string(next.Algorithm)).Info("Configuration updated")
	b.hub.Emit(event.Event{Kind: event.KindConfigUpdated})
	return nil
}

// GetStatistics builds the statistics snapshot
func (b *Balancer) GetStatistics() stats.Snapshot {
	servers := b.servers.List()
	views := make([]stats.ServerView, 0, len(servers))
	for _, srv := range servers {
		views = append(views, stats.ServerView{
			ID:                srv.ID,
			ActiveConnections: srv.ActiveConnections(),
			Healthy:           srv.IsHealthy(),
		})
	}
	return b.stats.Snapshot(views)
}

// ClearSession drops one client's pin
func (b *Balancer) ClearSession(clientKey string) bool {
	return b.session.Clear(clientKey)
}

// ClearAllSessions drops every pin
func (b *Balancer) ClearAllSessions() {
	b.session.ClearAll()
}

// Destroy stops the health monitor, clears all in-memory state, and emits a
// terminal notification. Further operations fail with BALANCER_CLOSED.
func (b *Balancer) Destroy() {
	if !atomic.CompareAndSwapInt32(&b.closed, 0, 1) {
		return
	}

	if b.monitor != nil {
		b.monitor.Stop()
	}
	b.session.ClearAll()
	b.breaker.Reset()
	b.stats.Reset()
	b.servers.Clear()

	b.log.Info("Balancer destroyed")
	b.hub.Emit(event.Event{Kind: event.KindDestroyed})
}

func (b *Balancer) isClosed() bool {
	return atomic.LoadInt32(&b.closed) == 1
}
