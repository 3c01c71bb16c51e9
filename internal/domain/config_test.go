package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AlgorithmRoundRobin, cfg.Algorithm)
	assert.False(t, cfg.StickySession)
	assert.True(t, cfg.CircuitBreaker)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"every algorithm", func(c *Config) { c.Algorithm = AlgorithmKeyHash }, true},
		{"unknown algorithm", func(c *Config) { c.Algorithm = "ip-hash" }, false},
		{"empty algorithm", func(c *Config) { c.Algorithm = "" }, false},
		{"zero health interval", func(c *Config) { c.HealthCheckInterval = 0 }, false},
		{"zero health timeout", func(c *Config) { c.HealthCheckTimeout = 0 }, false},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, false},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"negative retry delay", func(c *Config) { c.RetryDelay = -time.Second }, false},
		{"zero breaker threshold", func(c *Config) { c.CircuitBreakerThreshold = 0 }, false},
		{"zero breaker timeout", func(c *Config) { c.CircuitBreakerTimeout = 0 }, false},
		{"rate limit enabled without rate", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, RequestsPerSecond: 0, BurstSize: 1}
		}, false},
		{"rate limit disabled ignores rate", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: false}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestApplyPatch(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	algorithm := AlgorithmLeastConnections
	retries := 7
	sticky := true
	next := cfg.Apply(ConfigPatch{
		Algorithm:     &algorithm,
		MaxRetries:    &retries,
		StickySession: &sticky,
	})

	assert.Equal(t, AlgorithmLeastConnections, next.Algorithm)
	assert.Equal(t, 7, next.MaxRetries)
	assert.True(t, next.StickySession)

	// Untouched fields carry over; the receiver is unchanged.
	assert.Equal(t, cfg.HealthCheckInterval, next.HealthCheckInterval)
	assert.Equal(t, AlgorithmRoundRobin, cfg.Algorithm)
}

func TestApplyEmptyPatch(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	assert.Equal(t, cfg, cfg.Apply(ConfigPatch{}))
}
