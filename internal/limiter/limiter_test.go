package limiter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ljluestc/balancer/internal/domain"
)

func TestDisabledAlwaysAllows(t *testing.T) {
	l := New(domain.RateLimitConfig{Enabled: false})

	for i := 0; i < 1000; i++ {
		assert.True(t, l.Allow("client-1"))
	}
}

func TestBurstThenDeny(t *testing.T) {
	l := New(domain.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         3,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client-1"), "burst request %d", i+1)
	}
	assert.False(t, l.Allow("client-1"))
}

func TestClientsAreIndependent(t *testing.T) {
	l := New(domain.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         1,
	})

	assert.True(t, l.Allow("client-1"))
	assert.False(t, l.Allow("client-1"))
	assert.True(t, l.Allow("client-2"))
}

func TestConfigureResetsBuckets(t *testing.T) {
	l := New(domain.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         1,
	})

	assert.True(t, l.Allow("client-1"))
	assert.False(t, l.Allow("client-1"))

	l.Configure(domain.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         2,
	})

	assert.True(t, l.Allow("client-1"))
	assert.True(t, l.Allow("client-1"))
	assert.False(t, l.Allow("client-1"))
}

func TestConfigureCanDisable(t *testing.T) {
	l := New(domain.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         1,
	})

	assert.True(t, l.Allow("client-1"))
	assert.False(t, l.Allow("client-1"))

	l.Configure(domain.RateLimitConfig{Enabled: false})
	assert.True(t, l.Allow("client-1"))
}

func TestEvictionBoundsClientMap(t *testing.T) {
	l := New(domain.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 100,
		BurstSize:         100,
	})

	for i := 0; i < maxClients+50; i++ {
		l.Allow(fmt.Sprintf("client-%d", i))
	}
	assert.LessOrEqual(t, len(l.clients), maxClients)
}
