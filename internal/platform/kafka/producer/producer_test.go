package producer

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBrokers(t *testing.T) {
	_, err := New(Config{Brokers: " , "})
	assert.Error(t, err)
}

func TestNewRejectsUnknownAcks(t *testing.T) {
	cfg := DefaultConfig("localhost:9092")
	cfg.Acks = "most"
	_, err := New(cfg)
	assert.ErrorContains(t, err, "acks")
}

func TestParseAcks(t *testing.T) {
	tests := []struct {
		raw        string
		idempotent bool
	}{
		{"0", false},
		{"1", false},
		{"all", true},
		{"ALL", true},
		{"-1", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, idempotent, err := parseAcks(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.idempotent, idempotent)
		})
	}
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, splitBrokers(""))
}

func TestClosedProducerRejectsWork(t *testing.T) {
	p, err := New(DefaultConfig("localhost:1"), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Produce(context.Background(), &Message{Topic: "t"}), ErrClosed)
	assert.ErrorIs(t, p.Ping(context.Background()), ErrClosed)
}
