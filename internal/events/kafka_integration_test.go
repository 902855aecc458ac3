//go:build integration

package events_test

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/pkordes/mileage-tracker/internal/events"
)

// startKafka runs a single-node KRaft broker and returns its addresses.
func startKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	container, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")
	return brokers
}

// createTopic pre-creates topic so the first write does not race metadata.
func createTopic(t *testing.T, brokers []string, topic string) {
	t.Helper()
	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
	time.Sleep(time.Second)
}

func TestPublisher_Kafka_RoundTrip(t *testing.T) {
	brokers := startKafka(t)
	topic := fmt.Sprintf("mileage.trips.%s", uuid.NewString()[:8])
	createTopic(t, brokers, topic)

	pub := events.NewPublisher(events.NewKafkaWriter(brokers, topic))
	t.Cleanup(func() { _ = pub.Close() })

	trip := savedTrip()
	require.NoError(t, pub.TripCompleted(context.Background(), trip))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "test-" + uuid.NewString()[:8],
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	defer func() { _ = reader.Close() }()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	ce, err := events.ParseCloudEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, events.TypeTripCompleted, ce.Type)
	assert.Equal(t, "u1", string(msg.Key))

	var data events.TripCompleted
	require.NoError(t, ce.ParseData(&data))
	assert.Equal(t, trip.ID, data.TripID)
}
