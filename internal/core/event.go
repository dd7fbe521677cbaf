package core

import "github.com/regatta-live/regata-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventIdentity delivers the client's current (name, color) pair.
	// Re-sent to every transmitter whenever the live set changes.
	EventIdentity EventKind = iota
	// EventLocation carries an identity-stamped position update.
	EventLocation
	// EventBuoys delivers the current course-marker set.
	EventBuoys
	// EventBoatFinished announces that a vessel finished its track.
	EventBoatFinished
	// EventError notifies a client about a domain error.
	EventError
)

// IdentityAssignment is the (name, color) pair displayed for a transmitter.
// Name is empty for transmitters ranked past the name catalog.
type IdentityAssignment struct {
	Name  string
	Color string
}

// LocationUpdate is a position event stamped with the sender's identity.
type LocationUpdate struct {
	ID        string
	Name      string
	Color     string
	Latitude  float64
	Longitude float64
	Azimuth   float64
	Speed     float64
	Pitch     float64
	Roll      float64
	Timestamp int64
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind       EventKind
	Identity   *IdentityAssignment
	Location   *LocationUpdate
	Buoys      []store.Buoy
	VesselName string // for EventBoatFinished
	Error      *CoreError
}
