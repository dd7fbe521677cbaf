package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRaceFinished is returned for lifecycle operations on a race that
	// already has an end time.
	ErrRaceFinished = errors.New("race already finished")
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// TrackPoint is a single recorded position of a vessel.
// JSON keys mirror the boat_positions.json track format.
type TrackPoint struct {
	Latitude  float64 `json:"a"`
	Longitude float64 `json:"n"`
	Azimuth   float64 `json:"c"`
	Speed     float64 `json:"s"`
	Pitch     float64 `json:"p,omitempty"`
	Roll      float64 `json:"r,omitempty"`
	Timestamp int64   `json:"t"`
}

// Buoy is a course marker.
type Buoy struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Race is a bounded tracking session with its accumulated position history.
type Race struct {
	ID        string
	Name      string
	Buoys     []Buoy
	Positions map[string][]TrackPoint // vessel name -> ordered points
	StartTmst int64
	EndTmst   *int64 // nil while in progress
	Active    bool
	CreatedAt time.Time
}

// Finished reports whether the race has an end time set.
func (r *Race) Finished() bool {
	return r.EndTmst != nil
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// RaceStore handles race persistence. It is the sole source of truth for
// historical position data; the live relay holds no authoritative copy.
type RaceStore interface {
	// CreateRace creates a new race record.
	CreateRace(ctx context.Context, race *Race) error

	// GetRace retrieves a race with its buoys and full position history.
	GetRace(ctx context.Context, id string) (*Race, error)

	// GetRaceByName retrieves a race by name, without position history.
	GetRaceByName(ctx context.Context, name string) (*Race, error)

	// ListRaces lists all races, newest first, without position history.
	ListRaces(ctx context.Context) ([]*Race, error)

	// AppendPosition appends a point to the race's history for a vessel.
	AppendPosition(ctx context.Context, raceID, vesselName string, pt TrackPoint) error

	// SetRaceEnd marks the race as finished at the given time. Calling it
	// on an already finished race is a no-op.
	SetRaceEnd(ctx context.Context, raceID string, end time.Time) error

	// SetActiveRace marks the race as the single active one, clearing the
	// flag on every other race in the same transaction. Returns
	// ErrNotFound if the race does not exist and ErrRaceFinished if it
	// already ended.
	SetActiveRace(ctx context.Context, raceID string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RaceStore

	// Close closes the underlying database connection.
	Close() error
}
