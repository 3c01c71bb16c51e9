package domain

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Server represents one backend endpoint with its configuration and runtime
// state. Runtime fields are updated concurrently by the dispatcher and the
// health monitor and are therefore accessed atomically.
type Server struct {
	ID             string `json:"id" yaml:"id"`
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	Weight         int    `json:"weight" yaml:"weight"`
	MaxConnections int    `json:"max_connections" yaml:"max_connections"`

	// Runtime state
	healthy           int32
	activeConnections int64
	responseTimeMs    int64
	lastHealthCheck   int64 // unix nanoseconds
}

// NewServer creates a new Server instance. Servers start healthy so they are
// eligible for selection before the first probe completes.
func NewServer(id, host string, port, weight int) *Server {
	return &Server{
		ID:      id,
		Host:    host,
		Port:    port,
		Weight:  weight,
		healthy: 1,
	}
}

// Address returns the host:port form of the endpoint.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsHealthy returns true if the server passed its most recent health check.
func (s *Server) IsHealthy() bool {
	return atomic.LoadInt32(&s.healthy) == 1
}

// SetHealthy updates the health flag and reports whether the value changed.
func (s *Server) SetHealthy(healthy bool) bool {
	var next int32
	if healthy {
		next = 1
	}
	prev := atomic.SwapInt32(&s.healthy, next)
	return prev != next
}

// IncrementConnections atomically increments the in-flight request count
func (s *Server) IncrementConnections() {
	atomic.AddInt64(&s.activeConnections, 1)
}

// DecrementConnections atomically decrements the in-flight request count
func (s *Server) DecrementConnections() {
	atomic.AddInt64(&s.activeConnections, -1)
}

// ActiveConnections returns the current number of in-flight requests
func (s *Server) ActiveConnections() int64 {
	return atomic.LoadInt64(&s.activeConnections)
}

// HasCapacity reports whether the server is under its advisory connection
// limit. A zero MaxConnections means unlimited.
func (s *Server) HasCapacity() bool {
	if s.MaxConnections <= 0 {
		return true
	}
	return s.ActiveConnections() < int64(s.MaxConnections)
}

// SetResponseTime records the last observed response time
func (s *Server) SetResponseTime(ms int64) {
	atomic.StoreInt64(&s.responseTimeMs, ms)
}

// ResponseTime returns the last observed response time in milliseconds
func (s *Server) ResponseTime() int64 {
	return atomic.LoadInt64(&s.responseTimeMs)
}

// TouchHealthCheck records the time of the last completed health probe
func (s *Server) TouchHealthCheck() {
	atomic.StoreInt64(&s.lastHealthCheck, time.Now().UnixNano())
}

// LastHealthCheck returns the time of the last completed health probe, or the
// zero time if the server has never been probed.
func (s *Server) LastHealthCheck() time.Time {
	ns := atomic.LoadInt64(&s.lastHealthCheck)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
