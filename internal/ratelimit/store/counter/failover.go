package counter

import (
	"context"
	"log/slog"
	"sync"
)

// Incrementer is the counter operation shared by every backend.
type Incrementer interface {
	Increment(ctx context.Context, key string) (int, error)
}

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 3
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
)

// FailoverStore counts against a shared primary (Redis) and degrades to a
// process-local fallback after consecutive primary failures:
//   - Closed: primary only. Errors below the threshold are returned so the
//     admission controller fails open.
//   - Open: the primary is still tried on every call, but the fallback count
//     is what gets returned. After enough consecutive primary successes the
//     circuit closes again.
type FailoverStore struct {
	primary  Incrementer
	fallback Incrementer
	logger   *slog.Logger

	mu               sync.Mutex
	state            circuitState
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
}

type FailoverOption func(*FailoverStore)

// WithFailureThreshold sets the number of consecutive failures to open the circuit.
func WithFailureThreshold(n int) FailoverOption {
	return func(s *FailoverStore) {
		if n > 0 {
			s.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the number of consecutive successes to close the circuit.
func WithSuccessThreshold(n int) FailoverOption {
	return func(s *FailoverStore) {
		if n > 0 {
			s.successThreshold = n
		}
	}
}

func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(s *FailoverStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewFailoverStore(primary, fallback Incrementer, opts ...FailoverOption) *FailoverStore {
	s := &FailoverStore{
		primary:          primary,
		fallback:         fallback,
		logger:           slog.New(slog.DiscardHandler),
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FailoverStore) Increment(ctx context.Context, key string) (int, error) {
	n, err := s.primary.Increment(ctx, key)
	if err != nil {
		if s.recordFailure() {
			return s.fallback.Increment(ctx, key)
		}
		return 0, err
	}
	if s.recordSuccess() {
		return n, nil
	}
	return s.fallback.Increment(ctx, key)
}

// Degraded reports whether counts currently come from the fallback.
func (s *FailoverStore) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == circuitOpen
}

// recordFailure returns true when the fallback should serve the call.
func (s *FailoverStore) recordFailure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	s.successes = 0
	if s.state == circuitOpen {
		return true
	}
	if s.failures >= s.failureThreshold {
		s.state = circuitOpen
		s.logger.Warn("rate limit counter store degraded, using local counters",
			"consecutive_failures", s.failures,
		)
		return true
	}
	return false
}

// recordSuccess returns true when the primary result should be used.
func (s *FailoverStore) recordSuccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == circuitOpen {
		s.successes++
		if s.successes < s.successThreshold {
			return false
		}
		s.state = circuitClosed
		s.failures = 0
		s.successes = 0
		s.logger.Info("rate limit counter store recovered")
		return true
	}
	s.failures = 0
	return true
}
