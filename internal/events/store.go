package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

const publishTimeout = 5 * time.Second

// Store is the trip persistence being decorated. It matches service.TripStore.
type Store interface {
	Save(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Trip, error)
}

// PublishingStore decorates a trip store: every successful Save is followed
// by a trip.completed event. A failed publish is logged and never fails the
// save, since the trip is already durable.
type PublishingStore struct {
	next Store
	pub  *Publisher
	log  *slog.Logger
}

// NewPublishingStore wraps next.
func NewPublishingStore(next Store, pub *Publisher, log *slog.Logger) *PublishingStore {
	if log == nil {
		log = slog.Default()
	}
	return &PublishingStore{next: next, pub: pub, log: log}
}

func (s *PublishingStore) Save(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	saved, err := s.next.Save(ctx, trip)
	if err != nil {
		return domain.Trip{}, err
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.pub.TripCompleted(pctx, saved); err != nil {
		s.log.ErrorContext(ctx, "failed to publish event",
			"event_type", TypeTripCompleted,
			"trip_id", saved.ID,
			"error", err,
		)
	}
	return saved, nil
}

func (s *PublishingStore) ListByUser(ctx context.Context, userID string) ([]domain.Trip, error) {
	return s.next.ListByUser(ctx, userID)
}
