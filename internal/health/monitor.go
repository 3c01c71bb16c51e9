// Package health implements the background prober that maintains server
// health flags.
//
// The monitor runs one repeating timer. On each tick it probes every
// registered server concurrently and waits for all probes to settle before
// the loop can observe the next tick, so ticks never overlap; a slow probe
// set delays the following round instead.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/ljluestc/balancer/internal/domain"
	"github.com/ljluestc/balancer/internal/event"
	"github.com/ljluestc/balancer/internal/registry"
	"github.com/ljluestc/balancer/pkg/logger"
)

// Probe checks one server. A nil error marks the server healthy; any error
// or timeout marks it unhealthy. Probe errors never propagate past the
// monitor.
type Probe func(ctx context.Context, srv *domain.Server) error

// Monitor periodically probes every server in the registry
type Monitor struct {
	registry *registry.Registry
	probe    Probe
	hub      *event.Hub
	log      *logger.Logger

	mu       sync.Mutex
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewMonitor creates a monitor. It does not start probing until Start.
func NewMonitor(reg *registry.Registry, probe Probe, interval, timeout time.Duration, hub *event.Hub, log *logger.Logger) *Monitor {
	return &Monitor{
		registry: reg,
		probe:    probe,
		hub:      hub,
		log:      log.HealthMonitorLogger(),
		interval: interval,
		timeout:  timeout,
	}
}

// Start launches the probe loop. Starting a running monitor is a no-op, as
// is starting one without a probe function.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.probe == nil {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	m.log.Infof("Starting health monitor with interval %v", m.interval)
	go m.loop(m.interval, m.timeout, m.stopCh, m.doneCh)
}

// Stop halts the probe loop and waits for the in-flight round to finish
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stop)
	<-done
	m.log.Info("Health monitor stopped")
}

// Reschedule applies a new interval and timeout, restarting the timer if the
// monitor is running.
func (m *Monitor) Reschedule(interval, timeout time.Duration) {
	m.mu.Lock()
	changed := m.interval != interval || m.timeout != timeout
	wasRunning := m.running
	m.interval = interval
	m.timeout = timeout
	m.mu.Unlock()

	if changed && wasRunning {
		m.Stop()
		m.Start()
	}
}

func (m *Monitor) loop(interval, timeout time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.checkAll(timeout)
		}
	}
}

// checkAll probes every server concurrently and waits for the round to settle
func (m *Monitor) checkAll(timeout time.Duration) {
	servers := m.registry.List()

	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func(srv *domain.Server) {
			defer wg.Done()
			m.checkOne(srv, timeout)
		}(srv)
	}
	wg.Wait()
}

func (m *Monitor) checkOne(srv *domain.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := m.probe(ctx, srv)
	elapsed := time.Since(start)

	srv.TouchHealthCheck()

	healthy := err == nil
	if healthy {
		srv.SetResponseTime(elapsed.Milliseconds())
	} else {
		m.log.WithField("server_id", srv.ID).
			WithError(err).
			Debug("Health probe failed")
	}

	// Only a transition is worth announcing
	if srv.SetHealthy(healthy) {
		log := m.log.WithField("server_id", srv.ID)
		if healthy {
			log.Info("Server recovered")
		} else {
			log.Warn("Server marked unhealthy")
		}
		m.hub.Emit(event.Event{
			Kind:     event.KindServerHealthChanged,
			ServerID: srv.ID,
			Err:      err,
			Detail:   map[string]interface{}{"healthy": healthy},
		})
	}
}
