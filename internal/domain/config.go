package domain

import (
	"fmt"
	"time"
)

// Algorithm identifies a selection strategy
type Algorithm string

const (
	// AlgorithmRoundRobin cycles through servers with a shared cursor
	AlgorithmRoundRobin Algorithm = "round-robin"
	// AlgorithmLeastConnections picks the server with the fewest in-flight requests
	AlgorithmLeastConnections Algorithm = "least-connections"
	// AlgorithmWeightedRoundRobin distributes proportionally to server weights
	AlgorithmWeightedRoundRobin Algorithm = "weighted-round-robin"
	// AlgorithmKeyHash maps a client key deterministically onto the candidate list
	AlgorithmKeyHash Algorithm = "key-hash"
	// AlgorithmRandom picks uniformly at random
	AlgorithmRandom Algorithm = "random"
)

// Algorithms lists every supported selection algorithm
func Algorithms() []Algorithm {
	return []Algorithm{
		AlgorithmRoundRobin,
		AlgorithmLeastConnections,
		AlgorithmWeightedRoundRobin,
		AlgorithmKeyHash,
		AlgorithmRandom,
	}
}

// RateLimitConfig defines optional per-client request rate limiting
type RateLimitConfig struct {
	Enabled           bool    `json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `json:"burst_size" yaml:"burst_size"`
}

// Config is the active configuration snapshot of the balancer. It is treated
// as an immutable value: mutation happens only by swapping the whole snapshot.
type Config struct {
	Algorithm               Algorithm       `json:"algorithm" yaml:"algorithm"`
	HealthCheckInterval     time.Duration   `json:"health_check_interval" yaml:"health_check_interval"`
	HealthCheckTimeout      time.Duration   `json:"health_check_timeout" yaml:"health_check_timeout"`
	MaxRetries              int             `json:"max_retries" yaml:"max_retries"`
	RetryDelay              time.Duration   `json:"retry_delay" yaml:"retry_delay"`
	StickySession           bool            `json:"sticky_session" yaml:"sticky_session"`
	SessionTimeout          time.Duration   `json:"session_timeout" yaml:"session_timeout"`
	CircuitBreaker          bool            `json:"circuit_breaker" yaml:"circuit_breaker"`
	CircuitBreakerThreshold int             `json:"circuit_breaker_threshold" yaml:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration   `json:"circuit_breaker_timeout" yaml:"circuit_breaker_timeout"`
	RateLimit               RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Algorithm:               AlgorithmRoundRobin,
		HealthCheckInterval:     30 * time.Second,
		HealthCheckTimeout:      5 * time.Second,
		MaxRetries:              3,
		RetryDelay:              100 * time.Millisecond,
		StickySession:           false,
		SessionTimeout:          30 * time.Minute,
		CircuitBreaker:          true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
	}
}

// Validate checks the configuration for values the engine cannot operate with
func (c Config) Validate() error {
	valid := false
	for _, a := range Algorithms() {
		if c.Algorithm == a {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unsupported algorithm: %q", c.Algorithm)
	}
	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive, got %v", c.HealthCheckInterval)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("health check timeout must be positive, got %v", c.HealthCheckTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be >= 0, got %v", c.RetryDelay)
	}
	if c.CircuitBreakerThreshold < 1 {
		return fmt.Errorf("circuit breaker threshold must be >= 1, got %d", c.CircuitBreakerThreshold)
	}
	if c.CircuitBreakerTimeout <= 0 {
		return fmt.Errorf("circuit breaker timeout must be positive, got %v", c.CircuitBreakerTimeout)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limit requests per second must be positive, got %v", c.RateLimit.RequestsPerSecond)
		}
		if c.RateLimit.BurstSize < 1 {
			return fmt.Errorf("rate limit burst size must be >= 1, got %d", c.RateLimit.BurstSize)
		}
	}
	return nil
}

// ConfigPatch is a partial configuration update. Nil fields leave the current
// value untouched.
type ConfigPatch struct {
	Algorithm               *Algorithm       `json:"algorithm,omitempty"`
	HealthCheckInterval     *time.Duration   `json:"health_check_interval,omitempty"`
	HealthCheckTimeout      *time.Duration   `json:"health_check_timeout,omitempty"`
	MaxRetries              *int             `json:"max_retries,omitempty"`
	RetryDelay              *time.Duration   `json:"retry_delay,omitempty"`
	StickySession           *bool            `json:"sticky_session,omitempty"`
	SessionTimeout          *time.Duration   `json:"session_timeout,omitempty"`
	CircuitBreaker          *bool            `json:"circuit_breaker,omitempty"`
	CircuitBreakerThreshold *int             `json:"circuit_breaker_threshold,omitempty"`
	CircuitBreakerTimeout   *time.Duration   `json:"circuit_breaker_timeout,omitempty"`
	RateLimit               *RateLimitConfig `json:"rate_limit,omitempty"`
}

// Apply returns a new snapshot with the patch merged over the receiver
func (c Config) Apply(p ConfigPatch) Config {
	next := c
	if p.Algorithm != nil {
		next.Algorithm = *p.Algorithm
	}
	if p.HealthCheckInterval != nil {
		next.HealthCheckInterval = *p.HealthCheckInterval
	}
	if p.HealthCheckTimeout != nil {
		next.HealthCheckTimeout = *p.HealthCheckTimeout
	}
	if p.MaxRetries != nil {
		next.MaxRetries = *p.MaxRetries
	}
	if p.RetryDelay != nil {
		next.RetryDelay = *p.RetryDelay
	}
	if p.StickySession != nil {
		next.StickySession = *p.StickySession
	}
	if p.SessionTimeout != nil {
		next.SessionTimeout = *p.SessionTimeout
	}
	if p.CircuitBreaker != nil {
		next.CircuitBreaker = *p.CircuitBreaker
	}
	if p.CircuitBreakerThreshold != nil {
		next.CircuitBreakerThreshold = *p.CircuitBreakerThreshold
	}
	if p.CircuitBreakerTimeout != nil {
		next.CircuitBreakerTimeout = *p.CircuitBreakerTimeout
	}
	if p.RateLimit != nil {
		next.RateLimit = *p.RateLimit
	}
	return next
}
