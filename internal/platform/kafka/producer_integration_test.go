//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"vaultline/internal/platform/kafka"
	"vaultline/pkg/platform/audit"
	"vaultline/pkg/testutil/containers"
)

type ProducerSuite struct {
	suite.Suite
	brokers []string
}

func TestProducerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerSuite))
}

func (s *ProducerSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *ProducerSuite) TestAppendProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	const topic = "vaultline.audit.test"

	producer, err := kafka.NewProducer(ctx, s.brokers, topic, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	defer producer.Close(ctx)

	event := audit.Event{
		ID:       "evt-1",
		Category: audit.EventEntityUnlocked.Category(),
		Owner:    "owner-1",
		Subject:  "card_1",
		Action:   string(audit.EventEntityUnlocked),
	}
	s.Require().NoError(producer.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollRecords(ctx, 1)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)

	record := records[0]
	s.Equal("owner-1", string(record.Key))
	var got audit.Event
	s.Require().NoError(json.Unmarshal(record.Value, &got))
	s.Equal(event.Subject, got.Subject)
	s.Equal(event.Action, got.Action)
	s.Contains(record.Headers, kgo.RecordHeader{Key: "action", Value: []byte(event.Action)})
}

func (s *ProducerSuite) TestNewProducerIsIdempotentOnTopic() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for range 2 {
		producer, err := kafka.NewProducer(ctx, s.brokers, "vaultline.audit.twice", nil)
		s.Require().NoError(err)
		producer.Close(ctx)
	}
}
