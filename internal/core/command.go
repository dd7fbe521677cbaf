package core

import "github.com/regatta-live/regata-server/internal/store"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendLocation reports the transmitter's current position.
	CommandSendLocation CommandKind = iota
	// CommandSendBuoys replaces the published course-marker set.
	CommandSendBuoys
	// CommandBoatFinished announces that a vessel finished its track.
	CommandBoatFinished
)

// LocationReport is the raw telemetry payload from a transmitter.
type LocationReport struct {
	Latitude  float64
	Longitude float64
	Azimuth   float64
	Speed     float64
	Pitch     float64
	Roll      float64
	Timestamp int64

	// RaceID, when set, binds the transmitter to that race so the point
	// is appended to its history. Last bind wins.
	RaceID string
	// VesselName keys the point within the race's position history.
	VesselName string
}

// Command represents an action requested by a client.
type Command struct {
	Kind       CommandKind
	Location   *LocationReport
	Buoys      []store.Buoy
	VesselName string // for CommandBoatFinished
}
