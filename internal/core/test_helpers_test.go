package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/regatta-live/regata-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

type appendCall struct {
	RaceID string
	Vessel string
	Point  store.TrackPoint
}

// fakeRaceStore records lifecycle calls for assertions. The hub calls it
// from its own goroutine, tests read from theirs.
type fakeRaceStore struct {
	mu      sync.Mutex
	appends []appendCall
	ends    map[string]time.Time
}

func newFakeRaceStore() *fakeRaceStore {
	return &fakeRaceStore{ends: make(map[string]time.Time)}
}

func (f *fakeRaceStore) CreateRace(context.Context, *store.Race) error { return nil }

func (f *fakeRaceStore) GetRace(context.Context, string) (*store.Race, error) {
	return nil, store.ErrNotFound
}

func (f *fakeRaceStore) GetRaceByName(context.Context, string) (*store.Race, error) {
	return nil, store.ErrNotFound
}

func (f *fakeRaceStore) ListRaces(context.Context) ([]*store.Race, error) { return nil, nil }

func (f *fakeRaceStore) AppendPosition(_ context.Context, raceID, vessel string, pt store.TrackPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, appendCall{RaceID: raceID, Vessel: vessel, Point: pt})
	return nil
}

func (f *fakeRaceStore) SetRaceEnd(_ context.Context, raceID string, end time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, done := f.ends[raceID]; done {
		return nil
	}
	f.ends[raceID] = end
	return nil
}

func (f *fakeRaceStore) SetActiveRace(context.Context, string) error { return nil }

func (f *fakeRaceStore) appendsFor(raceID string) []appendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var calls []appendCall
	for _, c := range f.appends {
		if c.RaceID == raceID {
			calls = append(calls, c)
		}
	}
	return calls
}

func (f *fakeRaceStore) endOf(raceID string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	end, ok := f.ends[raceID]
	return end, ok
}

func startTestHub(t *testing.T, races store.RaceStore, grace time.Duration) *Hub {
	t.Helper()

	hub := NewHub(races, nil, grace)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}
