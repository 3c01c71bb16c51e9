// Package config loads the process configuration from a YAML file with
// environment-variable overrides for the main knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ljluestc/balancer/internal/domain"
)

// Duration is a yaml-friendly wrapper accepting either a duration string
// ("30s") or an integer nanosecond count.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		if v, err := time.ParseDuration(s); err == nil {
			*d = Duration(v)
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			*d = Duration(n)
			return nil
		}
		return fmt.Errorf("invalid duration %q", s)
	}

	var n int64
	if err := unmarshal(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// balancerSection is the yaml shape of the engine configuration
type balancerSection struct {
	Algorithm               domain.Algorithm       `yaml:"algorithm"`
	HealthCheckInterval     Duration               `yaml:"health_check_interval"`
	HealthCheckTimeout      Duration               `yaml:"health_check_timeout"`
	MaxRetries              int                    `yaml:"max_retries"`
	RetryDelay              Duration               `yaml:"retry_delay"`
	StickySession           bool                   `yaml:"sticky_session"`
	SessionTimeout          Duration               `yaml:"session_timeout"`
	CircuitBreaker          bool                   `yaml:"circuit_breaker"`
	CircuitBreakerThreshold int                    `yaml:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   Duration               `yaml:"circuit_breaker_timeout"`
	RateLimit               domain.RateLimitConfig `yaml:"rate_limit"`
}

func sectionFrom(c domain.Config) balancerSection {
	return balancerSection{
		Algorithm:               c.Algorithm,
		HealthCheckInterval:     Duration(c.HealthCheckInterval),
		HealthCheckTimeout:      Duration(c.HealthCheckTimeout),
		MaxRetries:              c.MaxRetries,
		RetryDelay:              Duration(c.RetryDelay),
		StickySession:           c.StickySession,
		SessionTimeout:          Duration(c.SessionTimeout),
		CircuitBreaker:          c.CircuitBreaker,
		CircuitBreakerThreshold: c.CircuitBreakerThreshold,
		CircuitBreakerTimeout:   Duration(c.CircuitBreakerTimeout),
		RateLimit:               c.RateLimit,
	}
}

func (s balancerSection) toDomain() domain.Config {
	return domain.Config{
		Algorithm:               s.Algorithm,
		HealthCheckInterval:     time.Duration(s.HealthCheckInterval),
		HealthCheckTimeout:      time.Duration(s.HealthCheckTimeout),
		MaxRetries:              s.MaxRetries,
		RetryDelay:              time.Duration(s.RetryDelay),
		StickySession:           s.StickySession,
		SessionTimeout:          time.Duration(s.SessionTimeout),
		CircuitBreaker:          s.CircuitBreaker,
		CircuitBreakerThreshold: s.CircuitBreakerThreshold,
		CircuitBreakerTimeout:   time.Duration(s.CircuitBreakerTimeout),
		RateLimit:               s.RateLimit,
	}
}

// ServerConfig describes one backend server entry
type ServerConfig struct {
	ID             string `yaml:"id"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Weight         int    `yaml:"weight"`
	MaxConnections int    `yaml:"max_connections"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// AdminConfig contains admin API configuration
type AdminConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

// HealthProbeConfig describes the HTTP probe the binary installs
type HealthProbeConfig struct {
	Path string `yaml:"path"`
}

// Config is the full process configuration after loading
type Config struct {
	Balancer    domain.Config
	Servers     []ServerConfig
	Logging     LoggingConfig
	Admin       AdminConfig
	HealthProbe HealthProbeConfig
}

// fileConfig is the yaml shape of the configuration file
type fileConfig struct {
	Balancer    balancerSection   `yaml:"balancer"`
	Servers     []ServerConfig    `yaml:"servers"`
	Logging     LoggingConfig     `yaml:"logging"`
	Admin       AdminConfig       `yaml:"admin"`
	HealthProbe HealthProbeConfig `yaml:"health_probe"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Balancer: domain.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Admin: AdminConfig{
			Enabled: true,
			Port:    9090,
		},
		HealthProbe: HealthProbeConfig{
			Path: "/health",
		},
	}
}

// Load reads the configuration file at path, falling back to defaults when
// path is empty, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// The file overlays the defaults; absent keys keep their values.
		file := fileConfig{
			Balancer:    sectionFrom(cfg.Balancer),
			Logging:     cfg.Logging,
			Admin:       cfg.Admin,
			HealthProbe: cfg.HealthProbe,
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.Balancer = file.Balancer.toDomain()
		cfg.Servers = file.Servers
		cfg.Logging = file.Logging
		cfg.Admin = file.Admin
		cfg.HealthProbe = file.HealthProbe
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides the main knobs from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("LB_ALGORITHM"); v != "" {
		c.Balancer.Algorithm = domain.Algorithm(v)
	}
	if v := os.Getenv("LB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LB_ADMIN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Admin.Port = port
		}
	}
	if v := os.Getenv("LB_ADMIN_JWT_SECRET"); v != "" {
		c.Admin.JWTSecret = v
	}
	if v := os.Getenv("LB_HEALTH_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Balancer.HealthCheckInterval = d
		}
	}
	if v := os.Getenv("LB_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Balancer.MaxRetries = n
		}
	}
}

// Validate checks the whole file configuration
func (c *Config) Validate() error {
	if err := c.Balancer.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i, s := range c.Servers {
		if s.ID == "" {
			return fmt.Errorf("server at index %d has empty id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate server id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Host == "" {
			return fmt.Errorf("server %q has empty host", s.ID)
		}
		if s.Port <= 0 || s.Port > 65535 {
			return fmt.Errorf("server %q has invalid port %d", s.ID, s.Port)
		}
		if s.Weight <= 0 {
			return fmt.Errorf("server %q has non-positive weight %d", s.ID, s.Weight)
		}
	}

	if c.Admin.Enabled && (c.Admin.Port <= 0 || c.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port %d", c.Admin.Port)
	}
	return nil
}

// ToServers converts the server entries into domain records
func (c *Config) ToServers() []*domain.Server {
	out := make([]*domain.Server, 0, len(c.Servers))
	for _, s := range c.Servers {
		srv := domain.NewServer(s.ID, s.Host, s.Port, s.Weight)
		srv.MaxConnections = s.MaxConnections
		out = append(out, srv)
	}
	return out
}
