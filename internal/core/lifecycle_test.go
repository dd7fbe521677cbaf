package core

import (
	"testing"
	"time"
)

func bindToRace(t *testing.T, hub *Hub, c *Client, raceID string) {
	t.Helper()

	c.Commands <- &Command{
		Kind:     CommandSendLocation,
		Location: &LocationReport{RaceID: raceID, VesselName: "Albatross"},
	}
	// The location broadcast confirms the bind was processed.
	mustEvent(t, c.Events, EventLocation)
}

func TestRaceFinalizedAfterGracePeriod(t *testing.T) {
	races := newFakeRaceStore()
	hub := startTestHub(t, races, 50*time.Millisecond)

	boat := NewClient("boat", RoleTransmitter)
	if err := hub.RegisterClient(boat); err != nil {
		t.Fatalf("register: %v", err)
	}
	bindToRace(t, hub, boat, "race-1")

	disconnectedAt := time.Now()
	hub.UnregisterClient(boat)

	// Not finalized before the grace period elapses.
	if _, done := races.endOf("race-1"); done {
		t.Fatal("race finalized before grace period")
	}

	waitFor(t, func() bool {
		_, done := races.endOf("race-1")
		return done
	})

	end, _ := races.endOf("race-1")
	if end.Before(disconnectedAt.Add(50 * time.Millisecond)) {
		t.Fatalf("race finalized early: disconnect %v, end %v", disconnectedAt, end)
	}
}

func TestReconnectWithinGraceCancelsFinalization(t *testing.T) {
	races := newFakeRaceStore()
	hub := startTestHub(t, races, 100*time.Millisecond)

	boat := NewClient("boat-1", RoleTransmitter)
	if err := hub.RegisterClient(boat); err != nil {
		t.Fatalf("register: %v", err)
	}
	bindToRace(t, hub, boat, "race-1")
	hub.UnregisterClient(boat)

	// Reconnect under a fresh connection id and rebind before the check
	// fires: the check must observe the live binding and skip.
	again := NewClient("boat-2", RoleTransmitter)
	if err := hub.RegisterClient(again); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	bindToRace(t, hub, again, "race-1")

	time.Sleep(250 * time.Millisecond)
	if _, done := races.endOf("race-1"); done {
		t.Fatal("race finalized despite live rebinding")
	}
}

func TestFinalizationSkipsWhilePeerStillBound(t *testing.T) {
	races := newFakeRaceStore()
	hub := startTestHub(t, races, 50*time.Millisecond)

	b1 := NewClient("b1", RoleTransmitter)
	b2 := NewClient("b2", RoleTransmitter)
	if err := hub.RegisterClient(b1); err != nil {
		t.Fatalf("register b1: %v", err)
	}
	if err := hub.RegisterClient(b2); err != nil {
		t.Fatalf("register b2: %v", err)
	}
	bindToRace(t, hub, b1, "race-1")
	bindToRace(t, hub, b2, "race-1")

	hub.UnregisterClient(b1)

	time.Sleep(150 * time.Millisecond)
	if _, done := races.endOf("race-1"); done {
		t.Fatal("race finalized while a transmitter was still bound")
	}

	hub.UnregisterClient(b2)
	waitFor(t, func() bool {
		_, done := races.endOf("race-1")
		return done
	})
}

func TestLastBindWins(t *testing.T) {
	races := newFakeRaceStore()
	hub := startTestHub(t, races, 50*time.Millisecond)

	boat := NewClient("boat", RoleTransmitter)
	if err := hub.RegisterClient(boat); err != nil {
		t.Fatalf("register: %v", err)
	}
	bindToRace(t, hub, boat, "race-1")
	bindToRace(t, hub, boat, "race-2")

	hub.UnregisterClient(boat)

	// Only the race the boat was last bound to is finalized.
	waitFor(t, func() bool {
		_, done := races.endOf("race-2")
		return done
	})
	if _, done := races.endOf("race-1"); done {
		t.Fatal("stale binding finalized race-1")
	}
}
