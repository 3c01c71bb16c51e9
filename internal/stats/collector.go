// Package stats collects request counters and response-time series, globally
// and per server.
package stats

import (
	"sync"
	"time"
)

// windowCap bounds the per-server response-time series; the oldest sample is
// evicted once the cap is exceeded.
const windowCap = 100

type serverStats struct {
	requests  int64
	successes int64
	window    []float64
}

// Collector accumulates monotonically increasing counters and a bounded
// rolling window of response times per server. The combined average covers
// every sample ever recorded, not just the windows.
type Collector struct {
	mu                 sync.Mutex
	startedAt          time.Time
	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	sampleSum          float64
	sampleCount        int64
	perServer          map[string]*serverStats
}

// ServerSnapshot is one server's statistics at snapshot time
type ServerSnapshot struct {
	ID                    string  `json:"id"`
	Requests              int64   `json:"requests"`
	Successes             int64   `json:"successes"`
	SuccessRate           float64 `json:"success_rate"`
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
	ActiveConnections     int64   `json:"active_connections"`
	Healthy               bool    `json:"healthy"`
}

// Snapshot is the full statistics view returned to callers
type Snapshot struct {
	TotalRequests         int64            `json:"total_requests"`
	SuccessfulRequests    int64            `json:"successful_requests"`
	FailedRequests        int64            `json:"failed_requests"`
	AverageResponseTimeMs float64          `json:"average_response_time_ms"`
	ActiveConnections     int64            `json:"active_connections"`
	Uptime                string           `json:"uptime"`
	PerServer             []ServerSnapshot `json:"per_server"`
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		startedAt: time.Now(),
		perServer: make(map[string]*serverStats),
	}
}

func (c *Collector) server(id string) *serverStats {
	s, ok := c.perServer[id]
	if !ok {
		s = &serverStats{}
		c.perServer[id] = s
	}
	return s
}

// RecordSuccess registers one successful logical request against a server
func (c *Collector) RecordSuccess(serverID string, responseTimeMs float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	c.successfulRequests++
	c.sampleSum += responseTimeMs
	c.sampleCount++

	s := c.server(serverID)
	s.requests++
	s.successes++
	s.window = append(s.window, responseTimeMs)
	if len(s.window) > windowCap {
		s.window = s.window[1:]
	}
}

// RecordFailure registers one failed logical request against a server. It is
// called once per exhausted retry sequence, never once per attempt.
func (c *Collector) RecordFailure(serverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	c.failedRequests++
	c.server(serverID).requests++
}

// ServerView supplies the live fields the snapshot needs per server
type ServerView struct {
	ID                string
	ActiveConnections int64
	Healthy           bool
}

// Snapshot builds the statistics view. The caller supplies the live server
// list so active connection counts and order come from the registry.
func (c *Collector) Snapshot(servers []ServerView) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		TotalRequests:      c.totalRequests,
		SuccessfulRequests: c.successfulRequests,
		FailedRequests:     c.failedRequests,
		Uptime:             time.Since(c.startedAt).String(),
	}
	if c.sampleCount > 0 {
		snap.AverageResponseTimeMs = c.sampleSum / float64(c.sampleCount)
	}

	for _, view := range servers {
		snap.ActiveConnections += view.ActiveConnections

		ss := ServerSnapshot{
			ID:                view.ID,
			ActiveConnections: view.ActiveConnections,
			Healthy:           view.Healthy,
		}
		if s, ok := c.perServer[view.ID]; ok {
			ss.Requests = s.requests
			ss.Successes = s.successes
			if s.requests > 0 {
				ss.SuccessRate = float64(s.successes) / float64(s.requests)
			}
			if len(s.window) > 0 {
				var sum float64
				for _, v := range s.window {
					sum += v
				}
				ss.AverageResponseTimeMs = sum / float64(len(s.window))
			}
		}
		snap.PerServer = append(snap.PerServer, ss)
	}
	return snap
}

// WindowLen returns the number of retained samples for a server. Used by tests.
func (c *Collector) WindowLen(serverID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.perServer[serverID]; ok {
		return len(s.window)
	}
	return 0
}

// Remove drops per-server statistics for a removed server. Global counters
// are monotonic and keep their values.
func (c *Collector) Remove(serverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.perServer, serverID)
}

// Reset drops all statistics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests = 0
	c.successfulRequests = 0
	c.failedRequests = 0
	c.sampleSum = 0
	c.sampleCount = 0
	c.perServer = make(map[string]*serverStats)
}
