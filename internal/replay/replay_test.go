package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/regatta-live/regata-server/internal/store"
)

func TestLoadTrackFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boat_positions.json")
	content := `{
		"buoys": [{"name": "B1", "lat": 1.5, "lng": 2.5}],
		"positions": {
			"Albatross": [
				{"a": -34.9, "n": -56.2, "s": 5.5, "c": 120, "t": 100},
				{"a": -34.91, "n": -56.21, "s": 6, "c": 121, "t": 200}
			]
		},
		"startTmst": 100,
		"endTmst": 200
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write track file: %v", err)
	}

	tf, err := LoadTrackFile(path)
	if err != nil {
		t.Fatalf("load track file: %v", err)
	}
	if len(tf.Buoys) != 1 || tf.Buoys[0].Name != "B1" {
		t.Fatalf("unexpected buoys: %+v", tf.Buoys)
	}
	pts := tf.Positions["Albatross"]
	if len(pts) != 2 || pts[0].Latitude != -34.9 || pts[1].Timestamp != 200 {
		t.Fatalf("unexpected points: %+v", pts)
	}
	if tf.StartTmst != 100 || tf.EndTmst != 200 {
		t.Fatalf("unexpected race window: %+v", tf)
	}
}

func TestFlattenInterleavesByTimestamp(t *testing.T) {
	steps := flatten(map[string][]store.TrackPoint{
		"A": {{Timestamp: 100}, {Timestamp: 300}},
		"B": {{Timestamp: 200}},
	})

	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	for i := 1; i < len(steps); i++ {
		if steps[i].point.Timestamp < steps[i-1].point.Timestamp {
			t.Fatalf("steps out of order at %d: %+v", i, steps)
		}
	}

	// Each vessel's last point is tagged so boatFinished follows it.
	for _, st := range steps {
		switch {
		case st.vessel == "A" && st.point.Timestamp == 300 && !st.last:
			t.Fatal("final point of A not tagged last")
		case st.vessel == "A" && st.point.Timestamp == 100 && st.last:
			t.Fatal("non-final point of A tagged last")
		case st.vessel == "B" && !st.last:
			t.Fatal("only point of B not tagged last")
		}
	}
}
