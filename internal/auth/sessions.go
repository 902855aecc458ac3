package auth

import (
	"context"
	"sync"
)

// ChangeFunc is called with the new identity whenever a user signs in or out.
type ChangeFunc func(userID string, signedIn bool)

// Sessions records which users are signed in and notifies subscribers when
// that changes. It is safe for concurrent use.
type Sessions struct {
	mu          sync.Mutex
	signedIn    map[string]bool
	generations map[string]int
	subscribers map[int]ChangeFunc
	nextSubID   int
}

// NewSessions constructs an empty Sessions.
func NewSessions() *Sessions {
	return &Sessions{
		signedIn:    make(map[string]bool),
		generations: make(map[string]int),
		subscribers: make(map[int]ChangeFunc),
	}
}

// SignIn marks userID as signed in and returns the token generation to embed
// in tokens issued for this sign-in.
func (s *Sessions) SignIn(userID string) int {
	s.mu.Lock()
	changed := !s.signedIn[userID]
	s.signedIn[userID] = true
	gen := s.generations[userID]
	subs := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, userID, true)
	}
	return gen
}

// SignOut marks userID as signed out and invalidates all of its tokens.
func (s *Sessions) SignOut(userID string) {
	s.mu.Lock()
	changed := s.signedIn[userID]
	s.signedIn[userID] = false
	s.generations[userID]++
	subs := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, userID, false)
	}
}

// Resume is called for every request carrying a verified token. A token of
// the current generation signs the user back in, which covers a process
// restart that lost the in-memory state. Stale generations are rejected.
func (s *Sessions) Resume(userID string, generation int) bool {
	s.mu.Lock()
	if generation != s.generations[userID] {
		s.mu.Unlock()
		return false
	}
	changed := !s.signedIn[userID]
	s.signedIn[userID] = true
	subs := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, userID, true)
	}
	return true
}

// SignedIn reports whether userID is currently signed in.
func (s *Sessions) SignedIn(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedIn[userID]
}

// Subscribe registers fn for every sign-in/sign-out. The returned function
// removes the subscription.
func (s *Sessions) Subscribe(fn ChangeFunc) (cancel func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Identity returns the identity view of a single user: the user is the
// current identity while signed in, and change notifications are filtered to
// that user.
func (s *Sessions) Identity(userID string) *UserIdentity {
	return &UserIdentity{userID: userID, sessions: s}
}

func (s *Sessions) snapshotLocked() []ChangeFunc {
	subs := make([]ChangeFunc, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

// notify runs outside the lock so subscribers may call back into Sessions.
func notify(subs []ChangeFunc, userID string, signedIn bool) {
	for _, fn := range subs {
		fn(userID, signedIn)
	}
}

// UserIdentity is the identity provider handed to one user's trip tracker.
type UserIdentity struct {
	userID   string
	sessions *Sessions
}

// CurrentUser returns the user while they are signed in.
func (u *UserIdentity) CurrentUser(context.Context) (string, bool) {
	if !u.sessions.SignedIn(u.userID) {
		return "", false
	}
	return u.userID, true
}

// OnChange subscribes fn to sign-in/sign-out events of this user only.
func (u *UserIdentity) OnChange(fn func(userID string, signedIn bool)) (cancel func()) {
	return u.sessions.Subscribe(func(userID string, signedIn bool) {
		if userID == u.userID {
			fn(userID, signedIn)
		}
	})
}
