//go:build integration

package producer_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"consents/internal/audit"
	"consents/internal/platform/kafka/producer"
	"consents/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	prod, err := producer.New(producer.DefaultConfig(s.kafka.Brokers))
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *ProducerIntegrationSuite) TestProduceDeliversWithHeaders() {
	ctx := context.Background()
	topic := "test-produce-sync"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("test-key"),
		Value:   []byte("test-value"),
		Headers: map[string]string{"action": "consent_created"},
	})
	s.Require().NoError(err)

	record, err := s.kafka.ReadRecord(ctx, topic, 5*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "test-key"
	})
	s.Require().NoError(err)
	s.Require().NotNil(record, "message should be consumable")
	s.Equal("test-value", string(record.Value))
	s.Require().Len(record.Headers, 1)
	s.Equal("action", record.Headers[0].Key)
	s.Equal("consent_created", string(record.Headers[0].Value))
}

func (s *ProducerIntegrationSuite) TestKafkaSinkPublishesConsentEvents() {
	ctx := context.Background()
	topic := "consent-events-" + time.Now().Format("20060102150405")
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic))

	sink := audit.NewKafkaSink(s.producer, topic)
	s.Require().NoError(sink.Append(ctx, audit.Event{
		Action:    "consent_created",
		ConsentID: "consent-42",
		UserID:    "user-1",
		Status:    "AWAITING_AUTHORISATION",
	}))

	record, err := s.kafka.ReadRecord(ctx, topic, 5*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "consent-42"
	})
	s.Require().NoError(err)
	s.Require().NotNil(record)

	var event audit.Event
	s.Require().NoError(json.Unmarshal(record.Value, &event))
	s.Equal("user-1", event.UserID)
	s.Equal("AWAITING_AUTHORISATION", event.Status)
}

func (s *ProducerIntegrationSuite) TestPing() {
	s.NoError(s.producer.Ping(context.Background()))
}
