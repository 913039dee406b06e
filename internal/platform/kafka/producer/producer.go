// Package producer publishes consent events to Kafka through franz-go.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"
)

var ErrClosed = errors.New("producer is closed")

const closeFlushTimeout = 10 * time.Second

type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type Config struct {
	// Brokers is a comma separated seed list.
	Brokers  string
	ClientID string
	// Acks is "0", "1" or "all".
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// DefaultConfig favours durability: all in-sync replicas must acknowledge.
func DefaultConfig(brokers string) Config {
	return Config{
		Brokers:         brokers,
		ClientID:        "consents",
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}
}

type Producer struct {
	client  *kgo.Client
	logger  *slog.Logger
	records *prometheus.CounterVec
	latency prometheus.Histogram

	mu     sync.RWMutex
	closed bool
}

type Option func(*Producer)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Producer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRegisterer exports delivery counters and latency on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Producer) {
		factory := promauto.With(reg)
		p.records = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_kafka_records_total",
			Help: "Records handed to Kafka by topic and result",
		}, []string{"topic", "result"})
		p.latency = factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "consents_kafka_produce_duration_seconds",
			Help:    "Time from produce to broker acknowledgement",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		})
	}
}

// New builds a producer. The client connects lazily on the first Produce or Ping.
func New(cfg Config, opts ...Option) (*Producer, error) {
	brokers := splitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	acks, idempotent, err := parseAcks(cfg.Acks)
	if err != nil {
		return nil, err
	}

	kopts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(acks),
		kgo.RecordRetries(cfg.Retries),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.AllowAutoTopicCreation(),
	}
	if !idempotent {
		kopts = append(kopts, kgo.DisableIdempotentWrite())
	}
	if cfg.ClientID != "" {
		kopts = append(kopts, kgo.ClientID(cfg.ClientID))
	}
	if cfg.DeliveryTimeout > 0 {
		kopts = append(kopts, kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout))
	}

	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	p := &Producer{client: client, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// parseAcks maps the acks setting. Idempotent writes are only possible with
// all-ISR acks.
func parseAcks(raw string) (acks kgo.Acks, idempotent bool, err error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0":
		return kgo.NoAck(), false, nil
	case "1":
		return kgo.LeaderAck(), false, nil
	case "", "all", "-1":
		return kgo.AllISRAcks(), true, nil
	default:
		return kgo.Acks{}, false, fmt.Errorf("invalid kafka acks %q", raw)
	}
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Produce sends msg and blocks until the broker acknowledges it or ctx ends.
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	record := &kgo.Record{Topic: msg.Topic, Key: msg.Key, Value: msg.Value}
	for k, v := range msg.Headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	start := time.Now()
	err := p.client.ProduceSync(ctx, record).FirstErr()
	p.observe(msg.Topic, start, err)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Producer) observe(topic string, start time.Time, err error) {
	if p.records == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.records.WithLabelValues(topic, result).Inc()
	p.latency.Observe(time.Since(start).Seconds())
}

// Ping reports whether a seed broker answers. It has the health check signature.
func (p *Producer) Ping(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	return p.client.Ping(ctx)
}

// Close flushes pending records and closes the client. Safe to call twice.
func (p *Producer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka producer closed with unflushed records", "error", err)
	}
	p.client.Close()
}
