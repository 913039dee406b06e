package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by FromEnv.
const (
	EnvRequestsPerWindow = "CONSENTS_RATE_LIMIT_TPS"
	EnvWindow            = "CONSENTS_RATE_LIMIT_WINDOW"
	EnvSweepInterval     = "CONSENTS_RATE_LIMIT_SWEEP_INTERVAL"
	EnvBackend           = "CONSENTS_RATE_LIMIT_BACKEND"
)

const (
	DefaultWindow        = time.Second
	DefaultSweepInterval = 30 * time.Second
)

// Backend selects where per-client counters live.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// ErrLimitMissing is returned when no request limit is configured.
// There is no fallback value.
var ErrLimitMissing = errors.New(EnvRequestsPerWindow + " is required")

// Config holds admission control configuration.
type Config struct {
	// Allowed requests per client per Window. Zero denies every request.
	RequestsPerWindow int
	Window            time.Duration
	// How often expired counters are physically reclaimed (memory backend).
	SweepInterval time.Duration
	Backend       Backend
}

// FromEnv reads the admission config. A missing or malformed limit is an error
// so that the service refuses to start rather than run unguarded.
func FromEnv() (*Config, error) {
	raw, ok := os.LookupEnv(EnvRequestsPerWindow)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, ErrLimitMissing
	}
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid integer %q", EnvRequestsPerWindow, raw)
	}

	cfg := &Config{
		RequestsPerWindow: limit,
		Window:            DefaultWindow,
		SweepInterval:     DefaultSweepInterval,
		Backend:           BackendMemory,
	}

	if v := os.Getenv(EnvWindow); v != "" {
		if cfg.Window, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvWindow, err)
		}
	}
	if v := os.Getenv(EnvSweepInterval); v != "" {
		if cfg.SweepInterval, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSweepInterval, err)
		}
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = Backend(strings.ToLower(v))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants on a Config built by hand or by FromEnv.
func (c *Config) Validate() error {
	if c.RequestsPerWindow < 0 {
		return fmt.Errorf("%s must not be negative, got %d", EnvRequestsPerWindow, c.RequestsPerWindow)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%s must be positive, got %s", EnvWindow, c.Window)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%s must be positive, got %s", EnvSweepInterval, c.SweepInterval)
	}
	switch c.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("%s: unknown backend %q", EnvBackend, c.Backend)
	}
	return nil
}
