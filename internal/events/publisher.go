// Package events publishes trip lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

const (
	// Source identifies this service in every event envelope.
	Source = "mileage-tracker"

	// TypeTripCompleted is published once per saved trip.
	TypeTripCompleted = "trip.completed"

	// DefaultTopic is used when no topic is configured.
	DefaultTopic = "mileage.trips"
)

// CloudEvent is the envelope every event is wrapped in.
type CloudEvent struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Source string          `json:"source"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// NewCloudEvent wraps data in an envelope with a fresh id.
func NewCloudEvent(eventType string, data any) (CloudEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return CloudEvent{}, fmt.Errorf("events.NewCloudEvent: %w", err)
	}
	return CloudEvent{
		ID:     uuid.NewString(),
		Type:   eventType,
		Source: Source,
		Time:   time.Now().UTC(),
		Data:   raw,
	}, nil
}

// ParseCloudEvent decodes an envelope from a message value.
func ParseCloudEvent(b []byte) (CloudEvent, error) {
	var ce CloudEvent
	if err := json.Unmarshal(b, &ce); err != nil {
		return CloudEvent{}, fmt.Errorf("events.ParseCloudEvent: %w", err)
	}
	return ce, nil
}

// ParseData decodes the event payload into v.
func (e CloudEvent) ParseData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// TripCompleted is the payload of a trip.completed event.
type TripCompleted struct {
	TripID              uuid.UUID `json:"trip_id"`
	UserID              string    `json:"user_id"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	StartAddress        *string   `json:"start_address"`
	EndAddress          *string   `json:"end_address"`
	DistanceMiles       float64   `json:"distance_miles"`
	ReimbursementAmount float64   `json:"reimbursement_amount"`
}

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer for topic that partitions by message key,
// so all events of one user stay in order.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// Publisher encodes domain events and writes them to Kafka.
type Publisher struct {
	w Writer
}

// NewPublisher constructs a Publisher on top of w.
func NewPublisher(w Writer) *Publisher {
	return &Publisher{w: w}
}

// TripCompleted publishes a trip.completed event keyed by the trip's user.
func (p *Publisher) TripCompleted(ctx context.Context, trip domain.Trip) error {
	ce, err := NewCloudEvent(TypeTripCompleted, TripCompleted{
		TripID:              trip.ID,
		UserID:              trip.UserID,
		StartTime:           trip.StartTime,
		EndTime:             trip.EndTime,
		StartAddress:        trip.StartAddress,
		EndAddress:          trip.EndAddress,
		DistanceMiles:       trip.DistanceMiles,
		ReimbursementAmount: trip.ReimbursementAmount,
	})
	if err != nil {
		return fmt.Errorf("events.Publisher.TripCompleted: %w", err)
	}

	value, err := json.Marshal(ce)
	if err != nil {
		return fmt.Errorf("events.Publisher.TripCompleted: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(trip.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "ce_type", Value: []byte(ce.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events.Publisher.TripCompleted: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
