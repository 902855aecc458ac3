package service

import (
	"context"
	"fmt"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

type positionKey struct{}

type reportedPosition struct {
	pos    domain.Coordinates
	reason string
}

// WithReportedPosition attaches the position a client acquired to ctx.
func WithReportedPosition(ctx context.Context, pos domain.Coordinates) context.Context {
	return context.WithValue(ctx, positionKey{}, reportedPosition{pos: pos})
}

// WithLocationFailure records that the client could not acquire a position,
// e.g. because location permission was denied.
func WithLocationFailure(ctx context.Context, reason string) context.Context {
	return context.WithValue(ctx, positionKey{}, reportedPosition{reason: reason})
}

// ReportedLocation is the LocationSource for requests: the client performs
// the geolocation and sends the result along with the request.
type ReportedLocation struct{}

// CurrentPosition returns the position carried by ctx.
func (ReportedLocation) CurrentPosition(ctx context.Context) (domain.Coordinates, error) {
	rp, ok := ctx.Value(positionKey{}).(reportedPosition)
	switch {
	case !ok:
		return domain.Coordinates{}, fmt.Errorf("%w: no position reported", domain.ErrLocationUnavailable)
	case rp.reason != "":
		return domain.Coordinates{}, fmt.Errorf("%w: %s", domain.ErrLocationUnavailable, rp.reason)
	case !rp.pos.Valid():
		return domain.Coordinates{}, fmt.Errorf("%w: coordinates out of range", domain.ErrLocationUnavailable)
	}
	return rp.pos, nil
}
