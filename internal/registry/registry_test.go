package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"parkwarden/internal/errdefs"
)

func TestPutGetRoundTrip(t *testing.T) {
	r := New(t.TempDir())
	want := Instance{
		ID:         "ab12cd34",
		ConfigName: "alpine",
		PID:        4242,
		SaveFile:   "/srv/saves/alpine.sav",
		LogFile:    "/var/log/alpine.log",
		StartedAt:  time.Now().Truncate(time.Second),
	}
	if err := r.Put(want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := r.Get("alpine")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PID != want.PID || got.ConfigName != want.ConfigName ||
		got.SaveFile != want.SaveFile || got.LogFile != want.LogFile || got.ID != want.ID {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
	}
}

func TestPutReplacesMarker(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Put(Instance{ConfigName: "alpine", PID: 100}); err != nil {
		t.Fatal(err)
	}
	if err := r.Put(Instance{ConfigName: "alpine", PID: 200}); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get("alpine")
	if err != nil {
		t.Fatal(err)
	}
	if got.PID != 200 {
		t.Fatalf("PID = %d, want 200", got.PID)
	}
	insts, err := r.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 1 {
		t.Fatalf("one configuration must own at most one marker, got %d", len(insts))
	}
}

func TestMarkerFirstLineIsPID(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	if err := r.Put(Instance{ConfigName: "alpine", PID: 777}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "alpine.pid"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b[:4]); got != "777\n" {
		t.Fatalf("marker must start with the pid line, got %q", got)
	}
}

func TestBarePIDMarkerParses(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "legacy.pid"), []byte("314\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := New(dir)
	got, err := r.Get("legacy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PID != 314 || got.ConfigName != "legacy" {
		t.Fatalf("got %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	r := New(t.TempDir())
	if _, err := r.Get("ghost"); !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFindByPID(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Put(Instance{ConfigName: "a", PID: 10}); err != nil {
		t.Fatal(err)
	}
	if err := r.Put(Instance{ConfigName: "b", PID: 20}); err != nil {
		t.Fatal(err)
	}
	got, err := r.FindByPID(20)
	if err != nil {
		t.Fatalf("FindByPID: %v", err)
	}
	if got.ConfigName != "b" {
		t.Fatalf("ConfigName = %q, want b", got.ConfigName)
	}
	if _, err := r.FindByPID(99); !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Put(Instance{ConfigName: "a", PID: 10}); err != nil {
		t.Fatal(err)
	}
	if err := r.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Remove("a"); err != nil {
		t.Fatalf("Remove absent: %v", err)
	}
}

func TestListSortedAndSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	for _, n := range []string{"charlie", "alpha", "bravo"} {
		if err := r.Put(Instance{ConfigName: n, PID: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.pid"), []byte("not a pid\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	insts, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(insts) != 3 {
		t.Fatalf("got %d markers, want 3 (broken one skipped)", len(insts))
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if insts[i].ConfigName != want {
			t.Fatalf("insts[%d] = %q, want %q", i, insts[i].ConfigName, want)
		}
	}
}
