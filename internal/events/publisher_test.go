package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/events"
)

// fakeWriter records written messages and can be told to fail.
type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// mockStore is a hand-written test double for events.Store.
type mockStore struct {
	save       func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	listByUser func(ctx context.Context, userID string) ([]domain.Trip, error)
}

func (m *mockStore) Save(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.save(ctx, trip)
}
func (m *mockStore) ListByUser(ctx context.Context, userID string) ([]domain.Trip, error) {
	return m.listByUser(ctx, userID)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func savedTrip() domain.Trip {
	addr := "Whitehall, London"
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	return domain.Trip{
		ID:                  uuid.New(),
		UserID:              "u1",
		StartTime:           start,
		EndTime:             start.Add(20 * time.Minute),
		EndAddress:          &addr,
		DistanceMiles:       0.28,
		ReimbursementAmount: 0.13,
	}
}

func TestPublisher_TripCompleted(t *testing.T) {
	w := &fakeWriter{}
	trip := savedTrip()

	err := events.NewPublisher(w).TripCompleted(context.Background(), trip)

	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("u1"), w.msgs[0].Key, "keyed by user for per-user ordering")

	ce, err := events.ParseCloudEvent(w.msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, events.TypeTripCompleted, ce.Type)
	assert.Equal(t, events.Source, ce.Source)
	assert.NotEmpty(t, ce.ID)

	var data events.TripCompleted
	require.NoError(t, ce.ParseData(&data))
	assert.Equal(t, trip.ID, data.TripID)
	assert.Equal(t, 0.28, data.DistanceMiles)
	assert.Equal(t, 0.13, data.ReimbursementAmount)
	assert.Nil(t, data.StartAddress)
	assert.Equal(t, "Whitehall, London", *data.EndAddress)
}

func TestPublishingStore_PublishesAfterSave(t *testing.T) {
	w := &fakeWriter{}
	trip := savedTrip()
	store := events.NewPublishingStore(&mockStore{
		save: func(context.Context, domain.Trip) (domain.Trip, error) { return trip, nil },
	}, events.NewPublisher(w), discard)

	got, err := store.Save(context.Background(), domain.Trip{})

	require.NoError(t, err)
	assert.Equal(t, trip.ID, got.ID)
	assert.Len(t, w.msgs, 1)
}

func TestPublishingStore_PublishFailureDoesNotFailSave(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unreachable")}
	trip := savedTrip()
	store := events.NewPublishingStore(&mockStore{
		save: func(context.Context, domain.Trip) (domain.Trip, error) { return trip, nil },
	}, events.NewPublisher(w), discard)

	got, err := store.Save(context.Background(), domain.Trip{})

	require.NoError(t, err)
	assert.Equal(t, trip.ID, got.ID)
}

func TestPublishingStore_SaveFailureDoesNotPublish(t *testing.T) {
	w := &fakeWriter{}
	dbErr := errors.New("insert failed")
	store := events.NewPublishingStore(&mockStore{
		save: func(context.Context, domain.Trip) (domain.Trip, error) { return domain.Trip{}, dbErr },
	}, events.NewPublisher(w), discard)

	_, err := store.Save(context.Background(), domain.Trip{})

	assert.ErrorIs(t, err, dbErr)
	assert.Empty(t, w.msgs)
}

func TestPublishingStore_ListByUserPassesThrough(t *testing.T) {
	store := events.NewPublishingStore(&mockStore{
		listByUser: func(_ context.Context, userID string) ([]domain.Trip, error) {
			return []domain.Trip{{UserID: userID}}, nil
		},
	}, events.NewPublisher(&fakeWriter{}), discard)

	got, err := store.ListByUser(context.Background(), "u9")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u9", got[0].UserID)
}
