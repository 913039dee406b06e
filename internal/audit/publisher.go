package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher emits audit events to a Sink, either inline or through a bounded
// background queue.
type Publisher struct {
	sink   Sink
	events chan Event
	wg     sync.WaitGroup
	// mu guards closed against sends racing Close.
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
	async  bool
	now    func() time.Time
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and delivered by a background goroutine; when the queue is
// full new events are dropped rather than blocking the request.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.sink.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to deliver audit event",
				"error", err,
				"action", event.Action,
				"consent_id", event.ConsentID,
			)
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
// Events emitted after Close are dropped. Close is safe to call more than once.
func (p *Publisher) Close() {
	if !p.async {
		return
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}
	if p.async {
		p.enqueue(event)
		return nil
	}
	return p.sink.Append(ctx, event)
}

func (p *Publisher) enqueue(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop("audit publisher closed, event dropped", event)
		return
	}
	select {
	case p.events <- event:
	default:
		p.drop("audit buffer full, event dropped", event)
	}
}

func (p *Publisher) drop(msg string, event Event) {
	if p.logger != nil {
		p.logger.Warn(msg,
			"action", event.Action,
			"consent_id", event.ConsentID,
		)
	}
}
