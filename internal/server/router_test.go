package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"parkwarden/internal/config"
	"parkwarden/internal/registry"
	"parkwarden/internal/supervisor"
)

func newTestHandler(t *testing.T) (http.Handler, *config.Store) {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "host")
	if err := os.Symlink("/bin/sh", bin); err != nil {
		t.Fatal(err)
	}
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := config.NewStore(filepath.Join(dir, "servers.json"))
	sup := supervisor.New(supervisor.Options{
		Binary:    bin,
		LogDir:    filepath.Join(dir, "log"),
		BackupDir: filepath.Join(dir, "backup"),
		StopGrace: time.Second,
		Registry:  registry.New(filepath.Join(dir, "run")),
		Logger:    lg,
	})
	r := NewRouter(sup, store, nil, nil, lg)
	return r.Handler(), store
}

func TestConfigsEndpoint(t *testing.T) {
	h, store := newTestHandler(t)
	cfg := config.Config{Name: "alpine", MaxPlayers: 16, SaveFile: "/s.sav", Scenario: "/s.sc6"}
	if err := store.Put(cfg); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/configs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]config.Config
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("body: %v", err)
	}
	if got["alpine"].MaxPlayers != 16 {
		t.Fatalf("got %+v", got)
	}
}

func TestStartUnknownConfig(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/servers/ghost/start", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStartInvalidSaveFile(t *testing.T) {
	h, store := newTestHandler(t)
	cfg := config.Config{Name: "alpine", MaxPlayers: 16, SaveFile: "/does/not/exist.sav", Scenario: "/nope.sc6"}
	if err := store.Put(cfg); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/servers/alpine/start", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStopRequiresPIDOrName(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/servers/stop", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStopDeadPIDIsOK(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/servers/stop?pid=4000000", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (idempotent stop)", rec.Code)
	}
}

func TestDisabledSubsystems(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, path := range []string{"/api/history", "/api/scheduled"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotImplemented {
			t.Fatalf("%s status = %d, want 501", path, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
