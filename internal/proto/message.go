package proto

import (
	"encoding/json"

	"github.com/regatta-live/regata-server/internal/store"
)

// Inbound is the envelope for messages coming from a transmitter.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSendLocation = "sendLocation"
	InboundTypeSendBuoys    = "sendBuoys"
	InboundTypeBoatFinished = "boatFinished"

	OutboundEventAssignIdentity = "assignIdentity"
	OutboundEventUpdateLocation = "updateLocation"
	OutboundEventBuoys          = "buoys"
	OutboundEventBoatFinished   = "boatFinished"
)

// LocationData is a raw telemetry report from a transmitter.
type LocationData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Azimuth   float64 `json:"azimuth"`
	Speed     float64 `json:"speed"`
	Pitch     float64 `json:"pitch,omitempty"`
	Roll      float64 `json:"roll,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`

	RaceID     string `json:"raceId,omitempty"`
	VesselName string `json:"vesselName,omitempty"`
}

// BuoysData replaces the published course-marker set.
type BuoysData struct {
	Buoys []store.Buoy `json:"buoys"`
}

// BoatFinishedData announces that a vessel finished its track.
type BoatFinishedData struct {
	VesselName string `json:"vesselName"`
}

// Outbound is the envelope for messages sent to a connection.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventAssignIdentity delivers the transmitter's current display identity.
type EventAssignIdentity struct {
	Name  string `json:"name,omitempty"`
	Color string `json:"color"`
}

// EventUpdateLocation is an identity-stamped position broadcast.
type EventUpdateLocation struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Color     string  `json:"color"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Azimuth   float64 `json:"azimuth"`
	Speed     float64 `json:"speed"`
	Pitch     float64 `json:"pitch,omitempty"`
	Roll      float64 `json:"roll,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// EventBuoys carries the current course-marker set.
type EventBuoys struct {
	Buoys []store.Buoy `json:"buoys"`
}

// EventBoatFinished notifies that a vessel finished its track.
type EventBoatFinished struct {
	VesselName string `json:"vesselName"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
