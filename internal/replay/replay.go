package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/regatta-live/regata-server/internal/proto"
	"github.com/regatta-live/regata-server/internal/store"
)

// TrackFile is the on-disk format of a recorded race
// (boat_positions.json): a buoy set plus per-boat point sequences.
type TrackFile struct {
	Buoys     []store.Buoy                  `json:"buoys"`
	Positions map[string][]store.TrackPoint `json:"positions"`
	StartTmst int64                         `json:"startTmst"`
	EndTmst   int64                         `json:"endTmst"`
}

// LoadTrackFile reads and parses a track file.
func LoadTrackFile(path string) (*TrackFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read track file: %w", err)
	}
	var tf TrackFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("parse track file: %w", err)
	}
	return &tf, nil
}

// Replayer feeds a recorded track back into a live server, acting as a
// transmitter connection.
type Replayer struct {
	URL      string        // websocket endpoint, e.g. ws://localhost:8080/ws
	RaceID   string        // optional: bind replayed points to this race
	Interval time.Duration // delay between consecutive points
	Log      *zerolog.Logger
}

type step struct {
	vessel string
	point  store.TrackPoint
	last   bool
}

// Run replays the track file until done or ctx is cancelled. Points from
// all boats are interleaved in timestamp order over a single connection.
func (r *Replayer) Run(ctx context.Context, tf *TrackFile) error {
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}

	conn, _, err := websocket.Dial(ctx, r.URL+"?role=boat", nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "replay done")

	// Drain server events so broadcasts don't fill the read buffer.
	readCtx, stopRead := context.WithCancel(ctx)
	defer stopRead()
	go func() {
		for {
			var discard json.RawMessage
			if err := wsjson.Read(readCtx, conn, &discard); err != nil {
				return
			}
		}
	}()

	if len(tf.Buoys) > 0 {
		if err := r.send(ctx, conn, proto.InboundTypeSendBuoys, proto.BuoysData{Buoys: tf.Buoys}); err != nil {
			return err
		}
	}

	steps := flatten(tf.Positions)
	for _, st := range steps {
		if err := r.send(ctx, conn, proto.InboundTypeSendLocation, proto.LocationData{
			Latitude:   st.point.Latitude,
			Longitude:  st.point.Longitude,
			Azimuth:    st.point.Azimuth,
			Speed:      st.point.Speed,
			Timestamp:  st.point.Timestamp,
			RaceID:     r.RaceID,
			VesselName: st.vessel,
		}); err != nil {
			return err
		}
		if st.last {
			if err := r.send(ctx, conn, proto.InboundTypeBoatFinished, proto.BoatFinishedData{VesselName: st.vessel}); err != nil {
				return err
			}
			if r.Log != nil {
				r.Log.Info().Str("vessel", st.vessel).Msg("boat finished")
			}
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (r *Replayer) send(ctx context.Context, conn *websocket.Conn, msgType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

// flatten interleaves all boats' points in timestamp order, tagging each
// boat's final point so boatFinished fires right after it.
func flatten(positions map[string][]store.TrackPoint) []step {
	var steps []step
	for vessel, points := range positions {
		for i, pt := range points {
			steps = append(steps, step{
				vessel: vessel,
				point:  pt,
				last:   i == len(points)-1,
			})
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].point.Timestamp < steps[j].point.Timestamp
	})
	return steps
}
