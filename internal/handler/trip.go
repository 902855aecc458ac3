package handler

import (
	"context"
	"errors"

	"github.com/pkordes/mileage-tracker/internal/auth"
	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/handler/gen"
	"github.com/pkordes/mileage-tracker/internal/service"
)

// StartTrip handles POST /trips/start.
func (s *Server) StartTrip(ctx context.Context, req gen.StartTripRequestObject) (gen.StartTripResponseObject, error) {
	tracker, err := s.trackerFor(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := tracker.StartTrip(withReportedLocation(ctx, req.Body)); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidStateTransition):
			return gen.StartTrip409JSONResponse(stateBody(err)), nil
		case errors.Is(err, domain.ErrLocationUnavailable):
			return gen.StartTrip422JSONResponse(locationBody(err)), nil
		}
		return nil, err
	}
	return gen.StartTrip201JSONResponse(statusToResponse(tracker.Status())), nil
}

// EndTrip handles POST /trips/end. On success the saved record is returned;
// when the save fails the trip stays in progress.
func (s *Server) EndTrip(ctx context.Context, req gen.EndTripRequestObject) (gen.EndTripResponseObject, error) {
	tracker, err := s.trackerFor(ctx)
	if err != nil {
		return nil, err
	}

	trip, err := tracker.EndTrip(withReportedLocation(ctx, req.Body))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotAuthenticated):
			return gen.EndTrip401JSONResponse(notAuthenticatedBody()), nil
		case errors.Is(err, domain.ErrInvalidStateTransition):
			return gen.EndTrip409JSONResponse(stateBody(err)), nil
		case errors.Is(err, domain.ErrLocationUnavailable):
			return gen.EndTrip422JSONResponse(locationBody(err)), nil
		}
		return nil, err
	}
	return gen.EndTrip201JSONResponse(s.tripToResponse(trip)), nil
}

// GetActiveTrip handles GET /trips/active.
func (s *Server) GetActiveTrip(ctx context.Context, _ gen.GetActiveTripRequestObject) (gen.GetActiveTripResponseObject, error) {
	tracker, err := s.trackerFor(ctx)
	if err != nil {
		return nil, err
	}
	return gen.GetActiveTrip200JSONResponse(statusToResponse(tracker.Status())), nil
}

// ListTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
// The history is reloaded from storage before the page is cut.
func (s *Server) ListTrips(ctx context.Context, req gen.ListTripsRequestObject) (gen.ListTripsResponseObject, error) {
	tracker, err := s.trackerFor(ctx)
	if err != nil {
		return nil, err
	}
	if err := tracker.RefreshHistory(ctx); err != nil {
		return nil, err
	}

	history := tracker.History()
	params := domain.NewPaginationParams(req.Params.Page, req.Params.Limit)
	window := domain.Paginate(history, params)

	data := make([]gen.Trip, len(window))
	for i, t := range window {
		data[i] = s.tripToResponse(t)
	}
	return gen.ListTrips200JSONResponse{
		Data: data,
		Pagination: gen.Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: len(history),
		},
	}, nil
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(ctx context.Context, req gen.GetTripRequestObject) (gen.GetTripResponseObject, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}

	trip, err := s.history.Get(ctx, userID, req.Id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return gen.GetTrip404JSONResponse(notFoundBody("trip not found")), nil
		}
		return nil, err
	}
	return gen.GetTrip200JSONResponse(s.tripToResponse(trip)), nil
}

// --- request helpers ---------------------------------------------------------

func userFrom(ctx context.Context) (string, error) {
	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		return "", errNoUser
	}
	return userID, nil
}

func (s *Server) trackerFor(ctx context.Context) (Tracker, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.trackers(ctx, userID), nil
}

// withReportedLocation carries the client's position report into ctx.
// A missing body leaves the position unreported.
func withReportedLocation(ctx context.Context, body *gen.PositionRequest) context.Context {
	switch {
	case body == nil:
		return ctx
	case body.LocationError != nil:
		return service.WithLocationFailure(ctx, *body.LocationError)
	case body.Position != nil:
		return service.WithReportedPosition(ctx, domain.Coordinates{Lat: body.Position.Lat, Lng: body.Position.Lng})
	}
	return ctx
}

// --- mapping helpers --------------------------------------------------------

func statusToResponse(st domain.TrackerStatus) gen.TrackerStatus {
	resp := gen.TrackerStatus{
		State:   gen.TrackerStatusState(st.State),
		Loading: st.Loading,
		Message: st.Message,
	}
	if st.Session != nil {
		resp.Session = &gen.Session{
			Id:        st.Session.ID,
			StartTime: st.Session.StartTime,
			Start: gen.Location{
				Lat:     st.Session.StartCoordinates.Lat,
				Lng:     st.Session.StartCoordinates.Lng,
				Address: st.Session.StartAddress,
			},
			AddressPending: st.Session.AddressPending,
		}
	}
	return resp
}

// tripToResponse converts a domain.Trip into the generated gen.Trip type.
func (s *Server) tripToResponse(t domain.Trip) gen.Trip {
	return gen.Trip{
		Id:        t.ID,
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Start: gen.Location{
			Lat:     t.StartCoordinates.Lat,
			Lng:     t.StartCoordinates.Lng,
			Address: t.StartAddress,
		},
		End: gen.Location{
			Lat:     t.EndCoordinates.Lat,
			Lng:     t.EndCoordinates.Lng,
			Address: t.EndAddress,
		},
		DistanceMiles:       t.DistanceMiles,
		ReimbursementAmount: t.ReimbursementAmount,
		Currency:            s.rate.CurrencySymbol,
		CreatedAt:           t.CreatedAt,
	}
}
