package service

import (
	"context"
	"log/slog"
	"sync"
)

// TrackerRegistry hands out exactly one TripTracker per user, which is what
// keeps a user to a single active trip across concurrent requests.
type TrackerRegistry struct {
	base        TrackerDeps
	identityFor func(userID string) IdentityProvider

	mu       sync.Mutex
	trackers map[string]*TripTracker
}

// NewTrackerRegistry constructs a registry. base supplies the shared
// collaborators; its Identity field is ignored and replaced by identityFor.
func NewTrackerRegistry(base TrackerDeps, identityFor func(userID string) IdentityProvider) *TrackerRegistry {
	return &TrackerRegistry{
		base:        base,
		identityFor: identityFor,
		trackers:    make(map[string]*TripTracker),
	}
}

// For returns the tracker of userID, creating it on first use.
func (r *TrackerRegistry) For(ctx context.Context, userID string) *TripTracker {
	r.mu.Lock()
	if t, ok := r.trackers[userID]; ok {
		r.mu.Unlock()
		return t
	}
	r.mu.Unlock()

	// Built outside the lock: construction loads the history.
	deps := r.base
	deps.Identity = r.identityFor(userID)
	if deps.Logger != nil {
		deps.Logger = deps.Logger.With(slog.String("user_id", userID))
	}
	created := NewTripTracker(ctx, deps)

	r.mu.Lock()
	existing, ok := r.trackers[userID]
	if !ok {
		r.trackers[userID] = created
	}
	r.mu.Unlock()

	if ok {
		created.Close()
		return existing
	}
	return created
}

// Evict drops the tracker of userID if it is Idle, ending its identity
// subscription. A tracker with a trip in progress is kept so the trip can
// still be ended after the user signs back in. Reports whether a tracker was
// dropped.
func (r *TrackerRegistry) Evict(userID string) bool {
	r.mu.Lock()
	t, ok := r.trackers[userID]
	if !ok || !t.retireIfIdle() {
		r.mu.Unlock()
		return false
	}
	delete(r.trackers, userID)
	r.mu.Unlock()

	t.Close()
	return true
}

// UserChanged evicts the user's tracker on sign-out. It has the shape of
// auth.ChangeFunc so the registry can subscribe to sign-in state.
func (r *TrackerRegistry) UserChanged(userID string, signedIn bool) {
	if !signedIn {
		r.Evict(userID)
	}
}

// Close closes every tracker created so far.
func (r *TrackerRegistry) Close() {
	r.mu.Lock()
	trackers := make([]*TripTracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		trackers = append(trackers, t)
	}
	r.trackers = make(map[string]*TripTracker)
	r.mu.Unlock()

	for _, t := range trackers {
		t.Close()
	}
}
