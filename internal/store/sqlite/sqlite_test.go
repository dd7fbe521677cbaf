package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/regatta-live/regata-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCreateAndGetRace(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	race := &store.Race{
		ID:   "r1",
		Name: "Regata Auto",
		Buoys: []store.Buoy{
			{Name: "start", Latitude: -34.90, Longitude: -56.20},
			{Name: "mark1", Latitude: -34.91, Longitude: -56.21},
		},
		Positions: map[string][]store.TrackPoint{
			"Albatross": {
				{Latitude: -34.90, Longitude: -56.20, Speed: 5, Azimuth: 90, Timestamp: 100},
				{Latitude: -34.91, Longitude: -56.21, Speed: 6, Azimuth: 92, Timestamp: 200},
			},
		},
		StartTmst: 100,
	}
	if err := st.CreateRace(ctx, race); err != nil {
		t.Fatalf("create race: %v", err)
	}

	got, err := st.GetRace(ctx, "r1")
	if err != nil {
		t.Fatalf("get race: %v", err)
	}
	if got.Name != "Regata Auto" || got.Finished() || got.Active {
		t.Fatalf("unexpected race: %+v", got)
	}
	if len(got.Buoys) != 2 || got.Buoys[0].Name != "start" {
		t.Fatalf("buoys not preserved in order: %+v", got.Buoys)
	}
	if pts := got.Positions["Albatross"]; len(pts) != 2 || pts[0].Timestamp != 100 || pts[1].Timestamp != 200 {
		t.Fatalf("positions not preserved in order: %+v", got.Positions)
	}
}

func TestGetRaceNotFound(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.GetRace(context.Background(), "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendPositionPreservesOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.CreateRace(ctx, &store.Race{ID: "r1", Name: "test"}); err != nil {
		t.Fatalf("create race: %v", err)
	}

	for i := 0; i < 5; i++ {
		pt := store.TrackPoint{Latitude: float64(i), Timestamp: int64(i * 100)}
		if err := st.AppendPosition(ctx, "r1", "Albatross", pt); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := st.GetRace(ctx, "r1")
	if err != nil {
		t.Fatalf("get race: %v", err)
	}
	pts := got.Positions["Albatross"]
	if len(pts) != 5 {
		t.Fatalf("expected 5 points, got %d", len(pts))
	}
	for i, pt := range pts {
		if pt.Latitude != float64(i) {
			t.Fatalf("append order broken at %d: %+v", i, pt)
		}
	}
}

func TestSetRaceEndIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.CreateRace(ctx, &store.Race{ID: "r1", Name: "test"}); err != nil {
		t.Fatalf("create race: %v", err)
	}

	first := time.UnixMilli(1700000000000)
	if err := st.SetRaceEnd(ctx, "r1", first); err != nil {
		t.Fatalf("set end: %v", err)
	}

	// A later concurrent or repeated check must not move the end time.
	if err := st.SetRaceEnd(ctx, "r1", first.Add(time.Hour)); err != nil {
		t.Fatalf("repeat set end: %v", err)
	}

	got, err := st.GetRace(ctx, "r1")
	if err != nil {
		t.Fatalf("get race: %v", err)
	}
	if got.EndTmst == nil || *got.EndTmst != first.UnixMilli() {
		t.Fatalf("end time moved: %+v", got.EndTmst)
	}
}

func TestSetActiveRaceSingleActive(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"r1", "r2"} {
		if err := st.CreateRace(ctx, &store.Race{ID: id, Name: "race-" + id}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	if err := st.SetActiveRace(ctx, "r1"); err != nil {
		t.Fatalf("activate r1: %v", err)
	}
	if err := st.SetActiveRace(ctx, "r2"); err != nil {
		t.Fatalf("activate r2: %v", err)
	}

	races, err := st.ListRaces(ctx)
	if err != nil {
		t.Fatalf("list races: %v", err)
	}
	for _, race := range races {
		if race.ID == "r2" && !race.Active {
			t.Fatalf("r2 should be active: %+v", race)
		}
		if race.ID == "r1" && race.Active {
			t.Fatalf("r1 still active: %+v", race)
		}
	}
}

func TestSetActiveRaceRejectsUnknownAndFinished(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SetActiveRace(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := st.CreateRace(ctx, &store.Race{ID: "r1", Name: "done"}); err != nil {
		t.Fatalf("create race: %v", err)
	}
	if err := st.SetRaceEnd(ctx, "r1", time.Now()); err != nil {
		t.Fatalf("set end: %v", err)
	}
	if err := st.SetActiveRace(ctx, "r1"); !errors.Is(err, store.ErrRaceFinished) {
		t.Fatalf("expected ErrRaceFinished, got %v", err)
	}
}

func TestFinalizationClearsActiveFlag(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.CreateRace(ctx, &store.Race{ID: "r1", Name: "live"}); err != nil {
		t.Fatalf("create race: %v", err)
	}
	if err := st.SetActiveRace(ctx, "r1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := st.SetRaceEnd(ctx, "r1", time.Now()); err != nil {
		t.Fatalf("set end: %v", err)
	}

	got, err := st.GetRace(ctx, "r1")
	if err != nil {
		t.Fatalf("get race: %v", err)
	}
	if got.Active || !got.Finished() {
		t.Fatalf("finished race still active: %+v", got)
	}
}

func TestUserRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := st.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ID != user.ID || got.Username != "alice" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := st.GetUserByEmail(ctx, "ghost@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
