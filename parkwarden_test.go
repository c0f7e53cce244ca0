package parkwarden

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"

	"parkwarden/internal/config"
	"parkwarden/internal/errdefs"
	"parkwarden/internal/logger"
	"parkwarden/internal/settings"
	"parkwarden/internal/supervisor"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func testWarden(t *testing.T) (*Warden, config.Config) {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "host")
	if err := os.Symlink("/bin/sh", bin); err != nil {
		t.Fatal(err)
	}
	save := filepath.Join(dir, "park.sav")
	if err := os.WriteFile(save, []byte("sleep 60\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	scenario := filepath.Join(dir, "alpine.sc6")
	if err := os.WriteFile(scenario, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	st := settings.Settings{
		Binary:       bin,
		DataDir:      dir,
		StorePath:    filepath.Join(dir, "servers.json"),
		RegistryDir:  filepath.Join(dir, "run"),
		LogDir:       filepath.Join(dir, "log"),
		BackupDir:    filepath.Join(dir, "backup"),
		HistoryDB:    filepath.Join(dir, "history.db"),
		PollInterval: time.Second,
		StopGrace:    2 * time.Second,
		Log:          logger.Config{Level: "error"},
	}
	w, err := New(st)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, config.Config{
		Name:       "alpine",
		MaxPlayers: 16,
		SaveFile:   save,
		Scenario:   scenario,
	}
}

func TestWardenStartStopLifecycle(t *testing.T) {
	requireUnix(t)
	w, cfg := testWarden(t)
	if err := w.Store.Put(cfg); err != nil {
		t.Fatal(err)
	}
	got, err := w.Store.Get("alpine")
	if err != nil {
		t.Fatal(err)
	}
	inst, err := w.Supervisor.Start(got)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		_ = syscall.Kill(-inst.PID, syscall.SIGKILL)
	})
	if !supervisor.Alive(inst.PID) {
		t.Fatalf("pid %d not alive", inst.PID)
	}
	if err := w.Supervisor.StopName("alpine"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && supervisor.Alive(inst.PID) {
		time.Sleep(25 * time.Millisecond)
	}
	if supervisor.Alive(inst.PID) {
		t.Fatalf("pid %d still alive after stop", inst.PID)
	}

	if w.History == nil {
		t.Fatal("history not wired")
	}
	evs, err := w.History.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) < 2 {
		t.Fatalf("expected start and stop events, got %d", len(evs))
	}
}

func TestWardenRunsWithoutHistory(t *testing.T) {
	requireUnix(t)
	w, cfg := testWarden(t)
	st := w.Settings
	st.HistoryDB = ""
	w2, err := New(st)
	if err != nil {
		t.Fatalf("New without history: %v", err)
	}
	t.Cleanup(func() { _ = w2.Close() })
	if w2.History != nil {
		t.Fatal("history expected to be disabled")
	}
	if err := w2.Store.Put(cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := w2.Store.Get("ghost"); !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
