// Package admission decides, per client, whether a request may proceed.
//
// Each request increments the client's counter exactly once, whether it is
// admitted or not, and is rejected when the new count exceeds the configured
// limit. Counters live in a CounterStore that expires them a fixed window
// after their last write, so a client that stops sending is forgiven once the
// window elapses.
//
// Usage:
//
//	ctrl, _ := admission.New(counter.NewInMemoryStore(), cfg.RequestsPerWindow)
//	if d := ctrl.Admit(ctx, clientIP); !d.Allowed {
//	    // Return 429 Too Many Requests
//	}
//
// A failing store never blocks traffic: the failure is logged and counted and
// the request is admitted.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"consents/internal/platform/privacy"
	"consents/internal/ratelimit/metrics"
	"consents/internal/sentinel"
)

// CounterStore increments a per-key counter atomically and returns the new
// value for the current window.
type CounterStore interface {
	Increment(ctx context.Context, key string) (int, error)
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	// Count is the client's counter after this request; zero when the store failed.
	Count int
	Limit int
	// FailOpen reports that the store failed and the request was admitted anyway.
	FailOpen bool
}

// Controller is safe for concurrent use. It keeps no per-client state of its own.
type Controller struct {
	store   CounterStore
	limit   int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder for observability.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates a controller admitting at most limit requests per client per
// store window. A limit of zero rejects every request.
func New(store CounterStore, limit int, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("counter store is required")
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit must not be negative, got %d", limit)
	}

	c := &Controller{
		store:  store,
		limit:  limit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Limit returns the configured requests per window.
func (c *Controller) Limit() int {
	return c.limit
}

// Admit records one request from key and reports whether it may proceed.
func (c *Controller) Admit(ctx context.Context, key string) Decision {
	start := time.Now()
	current, err := c.increment(ctx, key)
	if c.metrics != nil {
		c.metrics.ObserveCheckDuration(time.Since(start).Seconds())
	}

	if err != nil {
		c.logger.WarnContext(ctx, "rate limit store failure, admitting request",
			"error", err,
			"client_prefix", privacy.AnonymizeIP(key),
		)
		if c.metrics != nil {
			c.metrics.IncrementStoreErrors()
			c.metrics.IncrementDecision(metrics.OutcomeFailOpen)
		}
		return Decision{Allowed: true, Limit: c.limit, FailOpen: true}
	}

	if current > c.limit {
		c.logger.InfoContext(ctx, "rate limit exceeded",
			"client_prefix", privacy.AnonymizeIP(key),
			"count", current,
			"limit", c.limit,
		)
		if c.metrics != nil {
			c.metrics.IncrementDecision(metrics.OutcomeRejected)
		}
		return Decision{Allowed: false, Count: current, Limit: c.limit}
	}

	if c.metrics != nil {
		c.metrics.IncrementDecision(metrics.OutcomeAdmitted)
	}
	return Decision{Allowed: true, Count: current, Limit: c.limit}
}

// increment converts a panicking store into an error so one broken backend
// cannot take the request goroutine down with it.
func (c *Controller) increment(ctx context.Context, key string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: counter store panic: %v", sentinel.ErrUnavailable, r)
		}
	}()
	n, err = c.store.Increment(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return n, nil
}
