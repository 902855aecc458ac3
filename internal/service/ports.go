// Package service contains the business logic for the mileage tracker.
// Services enforce the trip lifecycle rules and orchestrate their
// collaborators. No SQL lives here: services depend on the small interfaces
// below, not on implementations.
package service

import (
	"context"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

// LocationSource produces the current position. It fails with
// domain.ErrLocationUnavailable when no fix can be obtained.
type LocationSource interface {
	CurrentPosition(ctx context.Context) (domain.Coordinates, error)
}

// AddressResolver turns coordinates into a display address. Ready is false
// while the provider is still initializing or failed to initialize.
type AddressResolver interface {
	Ready() bool
	Resolve(ctx context.Context, lat, lng float64) (string, error)
}

// TripStore persists and retrieves trip records. There are no update or
// delete operations.
type TripStore interface {
	Save(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Trip, error)
}

// IdentityProvider supplies the signed-in user and reports sign-in/sign-out.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (userID string, ok bool)
	OnChange(fn func(userID string, signedIn bool)) (cancel func())
}
