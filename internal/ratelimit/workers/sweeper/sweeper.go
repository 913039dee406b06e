package sweeper

import (
	"context"
	"log/slog"
	"time"

	"consents/internal/ratelimit/config"
	"consents/internal/ratelimit/metrics"
)

// SweepResult contains the results of a sweep run.
type SweepResult struct {
	Evicted   int           // Number of expired counters removed
	Remaining int           // Counters still held after the run; -1 when unknown
	Duration  time.Duration // Time taken for the run
}

// CounterStore physically removes expired counters.
type CounterStore interface {
	Sweep(ctx context.Context) (int, error)
}

// sizedStore is implemented by stores that can report how many counters they hold.
type sizedStore interface {
	Len() int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service reclaims memory held by counters of clients that went quiet. Expired
// counters are already ignored on read; sweeping only bounds memory.
type Service struct {
	store    CounterStore
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

func New(store CounterStore, opts ...Option) *Service {
	service := &Service{
		store:    store,
		logger:   slog.Default(),
		interval: config.DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Start sweeps on every tick until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := s.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				s.logger.Error("ratelimit_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if s.metrics != nil {
					s.metrics.IncrementSweepRuns("error")
					s.metrics.ObserveSweepDuration(duration.Seconds())
				}
				continue
			}

			res.Duration = duration

			s.logger.Debug("ratelimit_sweep_completed",
				"evicted", res.Evicted,
				"remaining", res.Remaining,
				"duration_ms", duration.Milliseconds(),
			)

			if s.metrics != nil {
				s.metrics.CounterSweepEvictedTotal.Add(float64(res.Evicted))
				s.metrics.IncrementSweepRuns("success")
				s.metrics.ObserveSweepDuration(duration.Seconds())
				if res.Remaining >= 0 {
					s.metrics.SetTrackedKeys(res.Remaining)
				}
			}

		case <-ctx.Done():
			s.logger.Info("ratelimit sweeper stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep. Logging is handled by the caller (Start).
func (s *Service) RunOnce(ctx context.Context) (*SweepResult, error) {
	evicted, err := s.store.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	res := &SweepResult{Evicted: evicted, Remaining: -1}
	if sized, ok := s.store.(sizedStore); ok {
		res.Remaining = sized.Len()
	}
	return res, nil
}
