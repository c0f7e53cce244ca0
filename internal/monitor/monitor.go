// Package monitor reconciles instance markers against the OS process
// table and restarts dead instances from their originating configuration.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"parkwarden/internal/config"
	"parkwarden/internal/errdefs"
	"parkwarden/internal/metrics"
	"parkwarden/internal/registry"
	"parkwarden/internal/supervisor"
)

// DefaultPollInterval is the period between reconciliation cycles.
const DefaultPollInterval = 10 * time.Second

type Monitor struct {
	sup      *supervisor.Supervisor
	store    *config.Store
	reg      *registry.Registry
	interval time.Duration
	log      *slog.Logger
}

func New(sup *supervisor.Supervisor, store *config.Store, reg *registry.Registry, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{sup: sup, store: store, reg: reg, interval: interval, log: log}
}

// Run polls until ctx is cancelled. A failed cycle or a failed restart
// never stops the loop; one bad configuration must not halt monitoring of
// the others.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info("crash-recovery monitor running", "interval", m.interval)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("crash-recovery monitor stopped")
			return
		case <-t.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reconciliation cycle over a stable snapshot of
// the markers, so no configuration is acted on twice within one cycle.
func (m *Monitor) RunOnce(ctx context.Context) {
	defer metrics.IncMonitorCycle()
	insts, err := m.reg.List()
	if err != nil {
		m.log.Error("marker enumeration failed", "err", err)
		return
	}
	for _, inst := range insts {
		if ctx.Err() != nil {
			return
		}
		if supervisor.Alive(inst.PID) {
			continue
		}
		m.recover(inst)
	}
}

func (m *Monitor) recover(inst registry.Instance) {
	m.log.Warn("instance dead", "config", inst.ConfigName, "pid", inst.PID)
	cfg, err := m.store.Get(inst.ConfigName)
	if err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			// Orphaned marker: configuration was deleted while the
			// instance ran. Not fatal; leave the marker for the operator.
			m.log.Warn("orphaned marker, configuration gone", "config", inst.ConfigName)
			return
		}
		m.log.Error("configuration lookup failed", "config", inst.ConfigName, "err", err)
		return
	}
	// Restart with the save file actually in use, which may diverge from
	// the configuration's current save path after an edit.
	if inst.SaveFile != "" {
		cfg.SaveFile = inst.SaveFile
	}
	newInst, err := m.sup.Restart(cfg)
	if err != nil {
		m.log.Error("restart failed", "config", inst.ConfigName, "err", err)
		return
	}
	m.log.Info("instance restarted", "config", inst.ConfigName,
		"old_pid", inst.PID, "new_pid", newInst.PID)
}
