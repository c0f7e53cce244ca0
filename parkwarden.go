// Package parkwarden supervises long-running game-server processes:
// it launches them from named configurations, tracks their liveness,
// restarts them on crash, and defers start/stop actions to future times
// through the host's crontab.
package parkwarden

import (
	"fmt"
	"log/slog"
	"os"

	"parkwarden/internal/config"
	"parkwarden/internal/history"
	"parkwarden/internal/monitor"
	"parkwarden/internal/registry"
	"parkwarden/internal/schedule"
	"parkwarden/internal/settings"
	"parkwarden/internal/supervisor"
)

// Warden bundles the wired subsystems for one settings profile.
type Warden struct {
	Settings   settings.Settings
	Store      *config.Store
	Registry   *registry.Registry
	Supervisor *supervisor.Supervisor
	History    *history.DB // nil when disabled or unavailable
	Log        *slog.Logger
}

// New wires a Warden from settings. A broken history database degrades to
// running without history rather than failing startup.
func New(st settings.Settings) (*Warden, error) {
	lg := st.Log.New()
	slog.SetDefault(lg)

	store := config.NewStore(st.StorePath).WithBackups(st.BackupDir)
	reg := registry.New(st.RegistryDir)

	var hist *history.DB
	var rec history.Recorder
	if st.HistoryDB != "" {
		h, err := history.Open(st.HistoryDB)
		if err != nil {
			lg.Warn("history database unavailable, continuing without it",
				"path", st.HistoryDB, "err", err)
		} else {
			hist = h
			rec = h
		}
	}

	sup := supervisor.New(supervisor.Options{
		Binary:    st.Binary,
		LogDir:    st.LogDir,
		BackupDir: st.BackupDir,
		StopGrace: st.StopGrace,
		Registry:  reg,
		History:   rec,
		Logger:    lg,
	})

	return &Warden{
		Settings:   st,
		Store:      store,
		Registry:   reg,
		Supervisor: sup,
		History:    hist,
		Log:        lg,
	}, nil
}

// Monitor builds the crash-recovery monitor for this Warden.
func (w *Warden) Monitor() *monitor.Monitor {
	return monitor.New(w.Supervisor, w.Store, w.Registry, w.Settings.PollInterval, w.Log)
}

// Bridge builds the scheduler bridge against the system crontab, using the
// current executable for re-invocation.
func (w *Warden) Bridge() (*schedule.Bridge, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating own executable: %w", err)
	}
	return schedule.NewBridge(schedule.SystemCrontab{}, self), nil
}

// Close releases resources held by the Warden.
func (w *Warden) Close() error {
	if w.History != nil {
		return w.History.Close()
	}
	return nil
}
