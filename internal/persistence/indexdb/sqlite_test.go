package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"areastate.ai/internal/areastate"
	"areastate.ai/internal/geom"
)

func TestSQLiteIndex_RecordAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	idx.Notify(areastate.Event{
		Kind: areastate.EventLocationAdded, Instance: 7, AreaID: "1_1_2", At: at,
		Location: &areastate.Location{ID: 3, Name: "The Tidal Island", Position: geom.Pt(10, 20)},
	})
	idx.Notify(areastate.Event{
		Kind: areastate.EventLocationAdded, Instance: 7, AreaID: "1_1_2", At: at.Add(time.Second),
		Location: &areastate.Location{ID: 4, Name: "Waypoint", Position: geom.Pt(30, 40)},
	})
	idx.Notify(areastate.Event{
		Kind: areastate.EventContainerAdded, Instance: 7, AreaID: "1_1_2", At: at,
		Container: &areastate.ContainerRecord{ID: 42, Name: "Chest", State: areastate.StateRefined, IsIdentified: true,
			Stats: []areastate.Stat{{Type: "chest_item_quantity", Value: 50}}},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	locs, err := idx.Locations(ctx, 7)
	if err != nil {
		t.Fatalf("locations: %v", err)
	}
	if len(locs) != 2 || locs[0].Name != "The Tidal Island" || locs[1].Position != geom.Pt(30, 40) {
		t.Fatalf("locations: %+v", locs)
	}

	chests, err := idx.Containers(ctx, 7)
	if err != nil {
		t.Fatalf("containers: %v", err)
	}
	if len(chests) != 1 || chests[0].State != areastate.StateRefined || len(chests[0].Stats) != 1 {
		t.Fatalf("containers: %+v", chests)
	}

	inst, err := idx.Instances(ctx)
	if err != nil {
		t.Fatalf("instances: %v", err)
	}
	if len(inst) != 1 || inst[0].AreaID != "1_1_2" || inst[0].Locations != 2 || inst[0].Chests != 1 {
		t.Fatalf("instances: %+v", inst)
	}
	if !inst[0].FirstSeen.Equal(at) {
		t.Fatalf("first seen: %v", inst[0].FirstSeen)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan areastate.Event, 1)}
	s.ch <- areastate.Event{Kind: areastate.EventLocationAdded}

	s.Record(areastate.Event{Kind: areastate.EventLocationAdded})
	s.Record(areastate.Event{Kind: areastate.EventContainerAdded})

	st := s.Stats()
	if st.DropTotal != 2 {
		t.Fatalf("DropTotal=%d want=2", st.DropTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}
