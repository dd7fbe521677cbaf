package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/regatta-live/regata-server/internal/store"
)

// DefaultFinishGracePeriod is the delay between a transmitter disconnect
// and the race finalization eligibility check.
const DefaultFinishGracePeriod = 30 * time.Second

// ErrHubClosed is returned when registering against a stopped hub.
var ErrHubClosed = errors.New("hub closed")

type registerReq struct {
	client *Client
	reply  chan error
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// finalizeKey identifies one scheduled finalization check.
type finalizeKey struct {
	connID string
	raceID string
}

// Hub coordinates transmitter identity, location fan-out, the buoy cache
// and race lifecycle. All shared state lives inside the Run goroutine;
// channels are the only way in.
type Hub struct {
	races store.RaceStore // may be nil: live relay without persistence
	log   zerolog.Logger
	grace time.Duration

	register   chan registerReq
	unregister chan *Client
	commands   chan clientCommand
	finalize   chan finalizeKey
	done       chan struct{}

	// loop-owned state, never touched outside Run.
	pool     *identityPool
	reg      *registry
	buoys    []store.Buoy
	bindings map[string]string // connection id -> race id
	timers   map[finalizeKey]*time.Timer
	runCtx   context.Context
}

// NewHub creates a hub with the default name and color catalogs.
// races may be nil; positions are then relayed live but not recorded.
func NewHub(races store.RaceStore, logger *zerolog.Logger, grace time.Duration) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if grace <= 0 {
		grace = DefaultFinishGracePeriod
	}
	return &Hub{
		races:      races,
		log:        *logger,
		grace:      grace,
		register:   make(chan registerReq),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand, 64),
		finalize:   make(chan finalizeKey),
		done:       make(chan struct{}),
		pool:       newIdentityPool(DefaultColors),
		reg:        newRegistry(DefaultNames),
		bindings:   make(map[string]string),
		timers:     make(map[finalizeKey]*time.Timer),
	}
}

// RegisterClient adds the client to the broadcast domain. For a
// transmitter it allocates a color; ErrNoCapacity rejects the connection
// and the caller must close it.
func (h *Hub) RegisterClient(c *Client) error {
	req := registerReq{client: c, reply: make(chan error, 1)}
	select {
	case h.register <- req:
	case <-h.done:
		return ErrHubClosed
	}

	select {
	case err := <-req.reply:
		if err != nil {
			return err
		}
	case <-h.done:
		return ErrHubClosed
	}

	go h.pump(c)
	return nil
}

// UnregisterClient releases the client's identity, removes it from the
// broadcast domain and schedules a race finalization check if it was
// bound to a race.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SetActiveRace marks the race as the one shown live, clearing the flag
// on every other in-progress race.
func (h *Hub) SetActiveRace(ctx context.Context, raceID string) error {
	if h.races == nil {
		return store.ErrNotFound
	}
	return h.races.SetActiveRace(ctx, raceID)
}

// pump forwards the client's commands into the hub loop until the client
// is released or the hub stops.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-h.done:
				return
			}
		case <-c.done:
			return
		case <-h.done:
			return
		}
	}
}

// Run processes hub traffic until ctx is cancelled. It owns all mutable
// coordinator state.
func (h *Hub) Run(ctx context.Context) {
	h.runCtx = ctx
	defer func() {
		for _, t := range h.timers {
			t.Stop()
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-h.register:
			req.reply <- h.handleRegister(req.client)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case cc := <-h.commands:
			h.handleCommand(cc.client, cc.cmd)
		case key := <-h.finalize:
			h.finalizationCheck(key)
		}
	}
}

func (h *Hub) handleRegister(c *Client) error {
	if c.Role == RoleTransmitter {
		if _, err := h.pool.assign(c.ID); err != nil {
			h.log.Warn().Str("conn_id", c.ID).Msg("transmitter rejected: identity pool exhausted")
			return err
		}
		h.reg.registerTransmitter(c)
		h.broadcastIdentities()
		h.log.Debug().Str("conn_id", c.ID).Msg("transmitter registered")
		return nil
	}

	h.reg.registerObserver(c)
	if len(h.buoys) > 0 {
		// Initial sync: the new observer gets the current buoy set
		// before any later broadcast.
		h.trySend(c, &Event{Kind: EventBuoys, Buoys: h.buoys})
	}
	h.log.Debug().Str("conn_id", c.ID).Msg("observer registered")
	return nil
}

func (h *Hub) handleUnregister(c *Client) {
	defer h.release(c)

	if c.Role != RoleTransmitter {
		h.reg.unregisterObserver(c)
		return
	}

	if !h.reg.unregisterTransmitter(c) {
		return
	}
	h.pool.release(c.ID)

	raceID := h.bindings[c.ID]
	delete(h.bindings, c.ID)

	h.broadcastIdentities()

	if raceID != "" {
		h.scheduleFinalization(c.ID, raceID)
	}
	h.log.Debug().Str("conn_id", c.ID).Str("race_id", raceID).Msg("transmitter unregistered")
}

// release closes the client's done channel exactly once.
func (h *Hub) release(c *Client) {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandSendLocation:
		h.handleLocation(c, cmd.Location)
	case CommandSendBuoys:
		h.handleBuoys(c, cmd.Buoys)
	case CommandBoatFinished:
		h.handleBoatFinished(c, cmd.VesselName)
	default:
		h.log.Warn().Str("conn_id", c.ID).Int("kind", int(cmd.Kind)).Msg("unknown command")
	}
}

func (h *Hub) handleLocation(c *Client, report *LocationReport) {
	if report == nil {
		return
	}
	color, ok := h.pool.colorOf(c.ID)
	if !ok || !h.reg.isTransmitter(c) {
		// Position from a stale or never-registered connection.
		h.log.Warn().Str("conn_id", c.ID).Msg("dropping location from unknown connection")
		return
	}

	if report.RaceID != "" {
		h.bindRace(c.ID, report.RaceID)
	}
	h.recordPosition(c.ID, report)

	update := &Event{
		Kind: EventLocation,
		Location: &LocationUpdate{
			ID:        c.ID,
			Name:      h.reg.nameFor(c),
			Color:     color,
			Latitude:  report.Latitude,
			Longitude: report.Longitude,
			Azimuth:   report.Azimuth,
			Speed:     report.Speed,
			Pitch:     report.Pitch,
			Roll:      report.Roll,
			Timestamp: report.Timestamp,
		},
	}
	h.reg.each(func(peer *Client) {
		h.trySend(peer, update)
	})
}

// bindRace records the transmitter's race association (last bind wins) and
// invalidates pending finalization checks for that race.
func (h *Hub) bindRace(connID, raceID string) {
	h.bindings[connID] = raceID
	for key, timer := range h.timers {
		if key.raceID == raceID {
			timer.Stop()
			delete(h.timers, key)
		}
	}
}

// recordPosition hands the point to the persistence collaborator. Storage
// failures are logged and swallowed: a dropped historical point must not
// interrupt the live broadcast path.
func (h *Hub) recordPosition(connID string, report *LocationReport) {
	raceID := h.bindings[connID]
	if raceID == "" || report.VesselName == "" || h.races == nil {
		return
	}
	pt := store.TrackPoint{
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
		Azimuth:   report.Azimuth,
		Speed:     report.Speed,
		Pitch:     report.Pitch,
		Roll:      report.Roll,
		Timestamp: report.Timestamp,
	}
	if err := h.races.AppendPosition(h.runCtx, raceID, report.VesselName, pt); err != nil {
		h.log.Error().Err(err).Str("race_id", raceID).Str("vessel", report.VesselName).Msg("failed to record position")
	}
}

func (h *Hub) handleBuoys(c *Client, buoys []store.Buoy) {
	if !h.reg.isTransmitter(c) {
		h.log.Warn().Str("conn_id", c.ID).Msg("dropping buoys from unknown connection")
		return
	}
	h.buoys = buoys

	ev := &Event{Kind: EventBuoys, Buoys: buoys}
	for o := range h.reg.observers {
		h.trySend(o, ev)
	}
}

func (h *Hub) handleBoatFinished(c *Client, vesselName string) {
	if !h.reg.isTransmitter(c) {
		h.log.Warn().Str("conn_id", c.ID).Msg("dropping finished signal from unknown connection")
		return
	}
	ev := &Event{Kind: EventBoatFinished, VesselName: vesselName}
	h.reg.each(func(peer *Client) {
		h.trySend(peer, ev)
	})
}

// broadcastIdentities re-delivers (name, color) to every live transmitter.
// Called after each register/unregister so rank shifts reach everyone.
func (h *Hub) broadcastIdentities() {
	for _, t := range h.reg.transmitters {
		color, _ := h.pool.colorOf(t.ID)
		h.trySend(t, &Event{
			Kind: EventIdentity,
			Identity: &IdentityAssignment{
				Name:  h.reg.nameFor(t),
				Color: color,
			},
		})
	}
}

// scheduleFinalization arms a one-shot check for the race after the grace
// period. The check re-reads live bindings at fire time, never at
// schedule time.
func (h *Hub) scheduleFinalization(connID, raceID string) {
	key := finalizeKey{connID: connID, raceID: raceID}
	if old, ok := h.timers[key]; ok {
		old.Stop()
	}
	h.timers[key] = time.AfterFunc(h.grace, func() {
		select {
		case h.finalize <- key:
		case <-h.done:
		}
	})
}

// finalizationCheck ends the race if no live transmitter remains bound to
// it. Idempotent: the store ignores an end update on a finished race.
func (h *Hub) finalizationCheck(key finalizeKey) {
	delete(h.timers, key)

	for _, t := range h.reg.transmitters {
		if h.bindings[t.ID] == key.raceID {
			h.log.Debug().Str("race_id", key.raceID).Msg("finalization skipped: transmitter still bound")
			return
		}
	}

	if h.races == nil {
		return
	}
	if err := h.races.SetRaceEnd(h.runCtx, key.raceID, time.Now()); err != nil {
		h.log.Error().Err(err).Str("race_id", key.raceID).Msg("failed to finalize race")
		return
	}
	h.log.Info().Str("race_id", key.raceID).Msg("race finalized")
}

// trySend delivers best-effort: slow consumers drop events rather than
// block the loop.
func (h *Hub) trySend(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("conn_id", c.ID).Msg("dropping event for slow consumer")
	}
}
