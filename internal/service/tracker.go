package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/geo"
)

// Address placeholders stored when resolution does not produce an address.
const (
	AddressLookupFailed = "Error fetching address"
	AddressUnavailable  = "Address lookup unavailable"
)

// Status messages shown to the user.
const (
	MsgReady          = "Ready to track your trips"
	MsgInProgress     = "Trip in progress..."
	MsgSaved          = "Trip saved!"
	MsgLocationFailed = "Unable to access location. Please allow location services."
	MsgSignInRequired = "Please sign in to save your trip."
	MsgSaveFailed     = "Could not save your trip. Please try again."
)

const (
	defaultLookupTimeout = 10 * time.Second
	defaultSaveTimeout   = 10 * time.Second
)

// TrackerDeps are the collaborators of a TripTracker.
type TrackerDeps struct {
	Location LocationSource
	Resolver AddressResolver // nil behaves as a resolver that is never ready
	Store    TripStore
	Identity IdentityProvider
	Rate     domain.Rate
	Logger   *slog.Logger

	// LookupTimeout bounds each address lookup. Defaults to 10s.
	LookupTimeout time.Duration
	// SaveTimeout bounds the write of a finished trip, which is detached
	// from the caller's cancellation. Defaults to 10s.
	SaveTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// TripTracker runs the trip lifecycle for one user: Idle → InProgress on
// StartTrip, InProgress → Idle on a successful EndTrip.
//
// It is safe for concurrent use. The mutex is never held across I/O; the
// busy flag keeps a start or end that is waiting on I/O from interleaving
// with another start or end.
type TripTracker struct {
	location      LocationSource
	resolver      AddressResolver
	store         TripStore
	identity      IdentityProvider
	rate          domain.Rate
	log           *slog.Logger
	lookupTimeout time.Duration
	saveTimeout   time.Duration
	now           func() time.Time

	mu         sync.Mutex
	state      domain.State
	busy       bool
	session    *domain.TripSession
	message    string
	history    []domain.Trip
	historySeq uint64
	retired    bool

	unsubscribe func()
	lookups     sync.WaitGroup
}

// NewTripTracker constructs a tracker in the Idle state, subscribes it to
// identity changes and loads the initial history. A failed initial load is
// logged; the tracker is usable regardless.
func NewTripTracker(ctx context.Context, deps TrackerDeps) *TripTracker {
	t := &TripTracker{
		location:      deps.Location,
		resolver:      deps.Resolver,
		store:         deps.Store,
		identity:      deps.Identity,
		rate:          deps.Rate,
		log:           deps.Logger,
		lookupTimeout: deps.LookupTimeout,
		saveTimeout:   deps.SaveTimeout,
		now:           deps.Now,
		state:         domain.StateIdle,
		message:       MsgReady,
		history:       []domain.Trip{},
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	if t.lookupTimeout <= 0 {
		t.lookupTimeout = defaultLookupTimeout
	}
	if t.saveTimeout <= 0 {
		t.saveTimeout = defaultSaveTimeout
	}
	if t.now == nil {
		t.now = time.Now
	}

	t.unsubscribe = t.identity.OnChange(t.onIdentityChange)

	if err := t.RefreshHistory(ctx); err != nil {
		t.log.WarnContext(ctx, "initial trip history load failed", "error", err)
	}
	return t
}

// Close stops listening for identity changes and waits for outstanding
// start-address lookups.
func (t *TripTracker) Close() {
	t.unsubscribe()
	t.lookups.Wait()
}

// retireIfIdle marks the tracker as dropped by its registry. It refuses while
// a trip is in progress or a start or end is in flight.
func (t *TripTracker) retireIfIdle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.StateIdle || t.busy {
		return false
	}
	t.retired = true
	return true
}

// StartTrip acquires the current position and opens a session. The start
// address is resolved in the background; the returned session has
// AddressPending set.
//
// Returns domain.ErrInvalidStateTransition unless the tracker is Idle with
// no other start or end in flight, and domain.ErrLocationUnavailable when no
// position fix can be obtained. Neither changes the state.
func (t *TripTracker) StartTrip(ctx context.Context) (domain.TripSession, error) {
	t.mu.Lock()
	if t.retired {
		t.mu.Unlock()
		return domain.TripSession{}, fmt.Errorf("service.TripTracker.StartTrip: %w: signed out", domain.ErrNotAuthenticated)
	}
	if t.state != domain.StateIdle || t.busy {
		t.mu.Unlock()
		return domain.TripSession{}, fmt.Errorf("service.TripTracker.StartTrip: %w: a trip is already in progress", domain.ErrInvalidStateTransition)
	}
	t.busy = true
	t.mu.Unlock()

	pos, err := t.location.CurrentPosition(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy = false

	if err != nil {
		t.message = MsgLocationFailed
		return domain.TripSession{}, fmt.Errorf("service.TripTracker.StartTrip: %w", locationError(err))
	}

	session := &domain.TripSession{
		ID:               uuid.New(),
		StartTime:        t.now().UTC(),
		StartCoordinates: pos,
		AddressPending:   true,
	}
	t.session = session
	t.state = domain.StateInProgress
	t.message = MsgInProgress

	t.lookups.Add(1)
	go t.resolveStartAddress(session.ID, pos)

	return *session, nil
}

// EndTrip closes the active session: it acquires the end position, re-checks
// the signed-in user, prices the trip, resolves the end address and saves the
// record. On success the tracker returns to Idle and the history is refreshed.
//
// Every failure leaves the session in place so the call can be retried:
// domain.ErrInvalidStateTransition (no active trip), domain.ErrLocationUnavailable,
// domain.ErrNotAuthenticated and domain.ErrStorageWrite.
func (t *TripTracker) EndTrip(ctx context.Context) (domain.Trip, error) {
	t.mu.Lock()
	if t.state != domain.StateInProgress || t.session == nil {
		t.mu.Unlock()
		return domain.Trip{}, fmt.Errorf("service.TripTracker.EndTrip: %w: no active trip", domain.ErrInvalidStateTransition)
	}
	if t.busy {
		t.mu.Unlock()
		return domain.Trip{}, fmt.Errorf("service.TripTracker.EndTrip: %w: trip is already being ended", domain.ErrInvalidStateTransition)
	}
	t.busy = true
	sessionID := t.session.ID
	t.mu.Unlock()

	end, err := t.location.CurrentPosition(ctx)
	if err != nil {
		t.release(MsgLocationFailed)
		return domain.Trip{}, fmt.Errorf("service.TripTracker.EndTrip: %w", locationError(err))
	}
	endTime := t.now().UTC()

	userID, ok := t.identity.CurrentUser(ctx)
	if !ok {
		t.release(MsgSignInRequired)
		return domain.Trip{}, fmt.Errorf("service.TripTracker.EndTrip: %w", domain.ErrNotAuthenticated)
	}

	endAddress := t.resolveAddress(ctx, end)

	// The busy flag guarantees the session is still ours; the start address
	// is read now, not earlier, so a lookup that finished meanwhile is kept.
	t.mu.Lock()
	snap := *t.session
	t.mu.Unlock()

	miles := geo.Round2(geo.DistanceMiles(snap.StartCoordinates, end))
	record := domain.Trip{
		UserID:              userID,
		StartTime:           snap.StartTime,
		EndTime:             endTime,
		StartCoordinates:    snap.StartCoordinates,
		EndCoordinates:      end,
		StartAddress:        cloneString(snap.StartAddress),
		EndAddress:          &endAddress,
		DistanceMiles:       miles,
		ReimbursementAmount: geo.Round2(geo.Reimbursement(miles, t.rate.PerMile)),
	}

	// A client that disconnects mid-save must not turn a committed insert
	// into a failure it will retry, so the write ignores its cancellation.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.saveTimeout)
	saved, err := t.store.Save(saveCtx, record)
	cancel()
	if err != nil {
		t.release(MsgSaveFailed)
		return domain.Trip{}, fmt.Errorf("service.TripTracker.EndTrip: %w", storageError(domain.ErrStorageWrite, err))
	}

	t.mu.Lock()
	if t.session != nil && t.session.ID == sessionID {
		t.session = nil
		t.state = domain.StateIdle
	}
	t.busy = false
	t.message = MsgSaved
	t.mu.Unlock()

	t.log.InfoContext(ctx, "trip saved",
		"trip_id", saved.ID,
		"user_id", userID,
		"distance_miles", saved.DistanceMiles,
		"reimbursement", saved.ReimbursementAmount,
	)

	if err := t.RefreshHistory(ctx); err != nil {
		t.log.WarnContext(ctx, "trip history refresh after save failed", "error", err)
	}
	return saved, nil
}

// RefreshHistory replaces the in-memory history with the signed-in user's
// trips, newest first. Without a signed-in user the history is empty.
// On a storage failure the previous history is kept and
// domain.ErrStorageRead is returned.
func (t *TripTracker) RefreshHistory(ctx context.Context) error {
	userID, ok := t.identity.CurrentUser(ctx)
	if !ok {
		t.replaceHistory(t.nextHistorySeq(), nil)
		return nil
	}
	return t.loadHistory(ctx, userID)
}

// History returns a copy of the most recently loaded trip history.
func (t *TripTracker) History() []domain.Trip {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.history)
}

// Status reports the state, a copy of the active session and the loading
// indicator, which is on while the start address is still being resolved.
func (t *TripTracker) Status() domain.TrackerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := domain.TrackerStatus{State: t.state, Message: t.message}
	if t.session != nil {
		s := *t.session
		s.StartAddress = cloneString(s.StartAddress)
		st.Session = &s
		st.Loading = s.AddressPending
	}
	return st
}

func (t *TripTracker) loadHistory(ctx context.Context, userID string) error {
	seq := t.nextHistorySeq()

	trips, err := t.store.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("service.TripTracker.RefreshHistory: %w", storageError(domain.ErrStorageRead, err))
	}

	slices.SortStableFunc(trips, func(a, b domain.Trip) int {
		return b.StartTime.Compare(a.StartTime)
	})
	t.replaceHistory(seq, trips)
	return nil
}

func (t *TripTracker) nextHistorySeq() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.historySeq++
	return t.historySeq
}

// replaceHistory applies a load only if no newer load has started since.
func (t *TripTracker) replaceHistory(seq uint64, trips []domain.Trip) {
	if trips == nil {
		trips = []domain.Trip{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq != t.historySeq {
		return
	}
	t.history = trips
}

func (t *TripTracker) onIdentityChange(userID string, signedIn bool) {
	if !signedIn {
		t.replaceHistory(t.nextHistorySeq(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.lookupTimeout)
	defer cancel()
	if err := t.loadHistory(ctx, userID); err != nil {
		t.log.Warn("trip history refresh after sign-in failed", "user_id", userID, "error", err)
	}
}

func (t *TripTracker) resolveStartAddress(sessionID uuid.UUID, pos domain.Coordinates) {
	defer t.lookups.Done()

	ctx, cancel := context.WithTimeout(context.Background(), t.lookupTimeout)
	defer cancel()
	addr := t.resolveAddress(ctx, pos)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil || t.session.ID != sessionID {
		t.log.Debug("discarding start address for finished session", "session_id", sessionID)
		return
	}
	t.session.StartAddress = &addr
	t.session.AddressPending = false
}

// resolveAddress never fails: resolver errors degrade to a placeholder.
func (t *TripTracker) resolveAddress(ctx context.Context, pos domain.Coordinates) string {
	if t.resolver == nil || !t.resolver.Ready() {
		return AddressUnavailable
	}

	addr, err := t.resolver.Resolve(ctx, pos.Lat, pos.Lng)
	if err != nil {
		t.log.WarnContext(ctx, "address lookup failed", "lat", pos.Lat, "lng", pos.Lng, "error", err)
		if errors.Is(err, domain.ErrResolverUnavailable) {
			return AddressUnavailable
		}
		return AddressLookupFailed
	}
	return addr
}

// release ends a failed EndTrip attempt, keeping the session for a retry.
func (t *TripTracker) release(msg string) {
	t.mu.Lock()
	t.busy = false
	t.message = msg
	t.mu.Unlock()
}

func locationError(err error) error {
	if errors.Is(err, domain.ErrLocationUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrLocationUnavailable, err)
}

func storageError(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
