package domain

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a trip tracker.
type State string

const (
	StateIdle       State = "idle"
	StateInProgress State = "in_progress"
)

// TripSession is an in-progress trip. It lives in memory only, between a
// successful start and a successful end.
type TripSession struct {
	// ID identifies the session so late asynchronous results can be matched
	// against the session that requested them.
	ID               uuid.UUID
	StartTime        time.Time
	StartCoordinates Coordinates
	StartAddress     *string
	AddressPending   bool
}

// TrackerStatus is the user-visible view of a tracker.
// Loading is derived from the state and the pending address flag.
type TrackerStatus struct {
	State   State
	Session *TripSession
	Loading bool
	Message string
}
