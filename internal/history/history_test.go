package history

import (
	"context"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestRecordAndRecent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i, kind := range []string{KindStart, KindStop, KindRestart} {
		ev := Event{
			Name:       "alpine",
			PID:        100 + i,
			Kind:       kind,
			SaveFile:   "/srv/park.sav",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := d.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	evs, err := d.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("got %d events, want 3", len(evs))
	}
	// newest first
	if evs[0].Kind != KindRestart || evs[2].Kind != KindStart {
		t.Fatalf("wrong order: %s ... %s", evs[0].Kind, evs[2].Kind)
	}
}

func TestByNameFilters(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	for _, name := range []string{"alpine", "valley", "alpine"} {
		if err := d.Record(ctx, Event{Name: name, PID: 1, Kind: KindStart, SaveFile: "s"}); err != nil {
			t.Fatal(err)
		}
	}
	evs, err := d.ByName(ctx, "alpine", 10)
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	for _, ev := range evs {
		if ev.Name != "alpine" {
			t.Fatalf("leaked event for %q", ev.Name)
		}
	}
}

func TestRecentLimit(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := d.Record(ctx, Event{Name: "a", PID: i, Kind: KindStart, SaveFile: "s"}); err != nil {
			t.Fatal(err)
		}
	}
	evs, err := d.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
}

func TestPurgeOlderThan(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	old := Event{Name: "a", PID: 1, Kind: KindStop, SaveFile: "s",
		OccurredAt: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := Event{Name: "a", PID: 2, Kind: KindStart, SaveFile: "s"}
	if err := d.Record(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := d.Record(ctx, fresh); err != nil {
		t.Fatal(err)
	}
	n, err := d.PurgeOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d rows, want 1", n)
	}
	evs, err := d.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].PID != 2 {
		t.Fatalf("wrong survivor: %+v", evs)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("   "); err == nil {
		t.Fatal("expected error for blank path")
	}
}
