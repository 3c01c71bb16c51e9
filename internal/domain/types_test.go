package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServerStartsHealthy(t *testing.T) {
	t.Parallel()
	srv := NewServer("s1", "10.0.0.1", 8080, 2)

	assert.Equal(t, "s1", srv.ID)
	assert.Equal(t, "10.0.0.1:8080", srv.Address())
	assert.Equal(t, 2, srv.Weight)
	assert.True(t, srv.IsHealthy())
	assert.Zero(t, srv.ActiveConnections())
	assert.True(t, srv.LastHealthCheck().IsZero())
}

func TestSetHealthyReportsTransitions(t *testing.T) {
	t.Parallel()
	srv := NewServer("s1", "10.0.0.1", 8080, 1)

	assert.False(t, srv.SetHealthy(true))
	assert.True(t, srv.SetHealthy(false))
	assert.False(t, srv.SetHealthy(false))
	assert.True(t, srv.SetHealthy(true))
	assert.True(t, srv.IsHealthy())
}

func TestConnectionCounting(t *testing.T) {
	t.Parallel()
	srv := NewServer("s1", "10.0.0.1", 8080, 1)

	srv.IncrementConnections()
	srv.IncrementConnections()
	assert.Equal(t, int64(2), srv.ActiveConnections())

	srv.DecrementConnections()
	assert.Equal(t, int64(1), srv.ActiveConnections())
}

func TestHasCapacity(t *testing.T) {
	t.Parallel()
	srv := NewServer("s1", "10.0.0.1", 8080, 1)

	// Zero means unlimited.
	srv.IncrementConnections()
	assert.True(t, srv.HasCapacity())

	srv.MaxConnections = 2
	assert.True(t, srv.HasCapacity())
	srv.IncrementConnections()
	assert.False(t, srv.HasCapacity())
	srv.DecrementConnections()
	assert.True(t, srv.HasCapacity())
}

func TestResponseTime(t *testing.T) {
	t.Parallel()
	srv := NewServer("s1", "10.0.0.1", 8080, 1)

	srv.SetResponseTime(42)
	assert.Equal(t, int64(42), srv.ResponseTime())
}

func TestTouchHealthCheck(t *testing.T) {
	t.Parallel()
	srv := NewServer("s1", "10.0.0.1", 8080, 1)

	srv.TouchHealthCheck()
	assert.False(t, srv.LastHealthCheck().IsZero())
}
