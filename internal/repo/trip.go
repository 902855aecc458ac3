// Package repo contains all database access logic for the mileage tracker.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for trip records.
// Records are append-only: there is no update or delete.
type TripRepo interface {
	// Save inserts a completed trip and returns the persisted record with its
	// DB-generated id and created_at populated.
	Save(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// ListByUser returns every trip owned by userID, newest start first.
	// The result is never nil.
	ListByUser(ctx context.Context, userID string) ([]domain.Trip, error)

	// GetByID returns one trip owned by userID.
	// Returns domain.ErrNotFound if no such trip exists or another user owns it.
	GetByID(ctx context.Context, userID string, id uuid.UUID) (domain.Trip, error)
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, user_id, start_time, end_time,
		start_lat, start_lng, end_lat, end_lng,
		start_address, end_address, distance_miles, reimbursement_amount, created_at`

// Save inserts a trip row and returns the full persisted record.
func (r *pgTripRepo) Save(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (user_id, start_time, end_time,
		                   start_lat, start_lng, end_lat, end_lng,
		                   start_address, end_address, distance_miles, reimbursement_amount)
		VALUES (@user_id, @start_time, @end_time,
		        @start_lat, @start_lng, @end_lat, @end_lng,
		        @start_address, @end_address, @distance_miles, @reimbursement_amount)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"user_id":              trip.UserID,
		"start_time":           trip.StartTime,
		"end_time":             trip.EndTime,
		"start_lat":            trip.StartCoordinates.Lat,
		"start_lng":            trip.StartCoordinates.Lng,
		"end_lat":              trip.EndCoordinates.Lat,
		"end_lng":              trip.EndCoordinates.Lng,
		"start_address":        trip.StartAddress, // nil becomes NULL
		"end_address":          trip.EndAddress,
		"distance_miles":       trip.DistanceMiles,
		"reimbursement_amount": trip.ReimbursementAmount,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Save: %w", err)
	}
	return result, nil
}

// ListByUser returns a user's trips ordered by start_time descending.
func (r *pgTripRepo) ListByUser(ctx context.Context, userID string) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE user_id = @user_id
		ORDER BY start_time DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.ListByUser: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByUser: rows: %w", err)
	}
	return trips, nil
}

// GetByID retrieves one of the user's trips by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, userID string, id uuid.UUID) (domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = @id AND user_id = @user_id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t            domain.Trip
		id           pgtype.UUID
		startAddress pgtype.Text
		endAddress   pgtype.Text
	)

	err := s.Scan(
		&id, &t.UserID, &t.StartTime, &t.EndTime,
		&t.StartCoordinates.Lat, &t.StartCoordinates.Lng,
		&t.EndCoordinates.Lat, &t.EndCoordinates.Lng,
		&startAddress, &endAddress,
		&t.DistanceMiles, &t.ReimbursementAmount, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.StartTime = t.StartTime.UTC()
	t.EndTime = t.EndTime.UTC()
	t.StartAddress = textPtr(startAddress)
	t.EndAddress = textPtr(endAddress)
	return t, nil
}

func textPtr(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
