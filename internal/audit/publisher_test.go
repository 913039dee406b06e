package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consents/internal/platform/kafka/producer"
)

func TestPublisherSync(t *testing.T) {
	sink := NewMemorySink()
	fixed := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	p := NewPublisher(sink, WithPublisherClock(func() time.Time { return fixed }))

	require.NoError(t, p.Emit(context.Background(), Event{Action: "consent_created", ConsentID: "consent-1"}))

	events := sink.ListByConsent("consent-1")
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
}

type failingSink struct{ err error }

func (f failingSink) Append(context.Context, Event) error { return f.err }

func TestPublisherSyncPropagatesSinkError(t *testing.T) {
	p := NewPublisher(failingSink{err: errors.New("broker down")})
	assert.Error(t, p.Emit(context.Background(), Event{ConsentID: "consent-1"}))
}

func TestPublisherAsyncDrainsOnClose(t *testing.T) {
	sink := NewMemorySink()
	p := NewPublisher(sink, WithAsyncBuffer(100))

	for range 50 {
		require.NoError(t, p.Emit(context.Background(), Event{Action: "consent_updated", ConsentID: "consent-2"}))
	}
	p.Close()

	assert.Equal(t, 50, sink.Len())
}

func TestPublisherAsyncDropsEventsAfterClose(t *testing.T) {
	sink := NewMemorySink()
	p := NewPublisher(sink, WithAsyncBuffer(10))

	require.NoError(t, p.Emit(context.Background(), Event{Action: "consent_created", ConsentID: "consent-4"}))
	p.Close()

	assert.NotPanics(t, func() {
		assert.NoError(t, p.Emit(context.Background(), Event{Action: "consent_revoked", ConsentID: "consent-4"}))
		p.Close()
	})
	assert.Equal(t, 1, sink.Len())
}

func TestPublisherAsyncEmitRacingClose(t *testing.T) {
	p := NewPublisher(NewMemorySink(), WithAsyncBuffer(4))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = p.Emit(context.Background(), Event{ConsentID: "consent-5"})
			}
		}()
	}
	p.Close()
	wg.Wait()
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     int
}

func (b *blockingSink) Append(context.Context, Event) error {
	<-b.release
	b.mu.Lock()
	b.got++
	b.mu.Unlock()
	return nil
}

func TestPublisherAsyncDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	p := NewPublisher(sink, WithAsyncBuffer(1))

	for range 10 {
		assert.NoError(t, p.Emit(context.Background(), Event{ConsentID: "consent-3"}))
	}
	close(sink.release)
	p.Close()

	// At most one event in flight plus one queued.
	assert.LessOrEqual(t, sink.got, 2)
	assert.GreaterOrEqual(t, sink.got, 1)
}

type recordingProducer struct {
	msgs []*producer.Message
	err  error
}

func (r *recordingProducer) Produce(_ context.Context, msg *producer.Message) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestKafkaSink(t *testing.T) {
	rec := &recordingProducer{}
	sink := NewKafkaSink(rec, "")

	event := Event{
		Action:      "consent_revoked",
		ConsentID:   "consent-9",
		UserID:      "user-4",
		RequestID:   "req-1",
		Permissions: []string{"READ_DATA"},
	}
	require.NoError(t, sink.Append(context.Background(), event))
	require.Len(t, rec.msgs, 1)

	msg := rec.msgs[0]
	assert.Equal(t, DefaultTopic, msg.Topic)
	assert.Equal(t, []byte("consent-9"), msg.Key)
	assert.Equal(t, "consent_revoked", msg.Headers["action"])
	assert.Equal(t, "req-1", msg.Headers["request_id"])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.UserID, decoded.UserID)
	assert.Equal(t, event.Permissions, decoded.Permissions)
}

func TestKafkaSinkPropagatesProducerError(t *testing.T) {
	sink := NewKafkaSink(&recordingProducer{err: errors.New("not leader")}, "custom")
	assert.Error(t, sink.Append(context.Background(), Event{ConsentID: "consent-1"}))
}
