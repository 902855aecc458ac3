package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/geo"
	"github.com/pkordes/mileage-tracker/internal/repo"
)

// HistoryService serves read-only views of saved trips: single lookups and
// date-filtered exports with totals.
type HistoryService struct {
	trips repo.TripRepo
	rate  domain.Rate
	now   func() time.Time
}

// NewHistoryService constructs a HistoryService backed by the provided repo.
func NewHistoryService(trips repo.TripRepo, rate domain.Rate) *HistoryService {
	return &HistoryService{trips: trips, rate: rate, now: time.Now}
}

// Get returns one of the user's trips. Returns domain.ErrNotFound when the
// trip does not exist or belongs to someone else.
func (s *HistoryService) Get(ctx context.Context, userID string, id uuid.UUID) (domain.Trip, error) {
	t, err := s.trips.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.HistoryService.Get: %w", readError(err))
	}
	return t, nil
}

// Export returns the user's trips matching filter, newest first, with the
// summed distance and reimbursement.
func (s *HistoryService) Export(ctx context.Context, userID string, filter domain.ExportFilter) (domain.Export, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return domain.Export{}, fmt.Errorf("service.HistoryService.Export: %w: 'to' is before 'from'", domain.ErrValidation)
	}

	all, err := s.trips.ListByUser(ctx, userID)
	if err != nil {
		return domain.Export{}, fmt.Errorf("service.HistoryService.Export: %w", readError(err))
	}

	out := domain.Export{
		UserID:      userID,
		Trips:       []domain.Trip{},
		Rate:        s.rate,
		GeneratedAt: s.now().UTC(),
	}
	for _, t := range all {
		if !filter.Includes(t) {
			continue
		}
		out.Trips = append(out.Trips, t)
		out.TotalMiles += t.DistanceMiles
		out.TotalReimbursement += t.ReimbursementAmount
	}
	out.TotalMiles = geo.Round2(out.TotalMiles)
	out.TotalReimbursement = geo.Round2(out.TotalReimbursement)
	return out, nil
}

// readError tags repo failures other than not-found as storage read errors.
func readError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return storageError(domain.ErrStorageRead, err)
}
