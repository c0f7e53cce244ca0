// Package supervisor owns the mapping between named configurations, live
// OS processes, and persisted instance markers. It launches game servers
// detached, tracks them through the registry, and answers liveness queries
// from the process table rather than from markers, because markers can be
// stale or lost across a supervisor restart.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"parkwarden/internal/backup"
	"parkwarden/internal/config"
	"parkwarden/internal/errdefs"
	"parkwarden/internal/history"
	"parkwarden/internal/metrics"
	"parkwarden/internal/registry"
)

const (
	defaultStopGrace = 5 * time.Second
	logStampLayout   = "20060102-150405"
)

// Options wires a Supervisor.
type Options struct {
	Binary    string // game-server executable ("host")
	LogDir    string // per-launch server logs
	BackupDir string // save-file backups, taken before every launch
	StopGrace time.Duration
	Registry  *registry.Registry
	History   history.Recorder // optional
	Logger    *slog.Logger     // optional
}

type Supervisor struct {
	binary    string
	logDir    string
	backupDir string
	stopGrace time.Duration
	reg       *registry.Registry
	hist      history.Recorder
	log       *slog.Logger
}

func New(opts Options) *Supervisor {
	grace := opts.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Supervisor{
		binary:    opts.Binary,
		logDir:    opts.LogDir,
		backupDir: opts.BackupDir,
		stopGrace: grace,
		reg:       opts.Registry,
		hist:      opts.History,
		log:       lg,
	}
}

// BuildArgs constructs the launch argument vector for a configuration:
//
//	<save-file> --server-name <n> --max-players <n> [--password <p>]
//	--public <true|false> --scenario <path>
//
// An empty password omits the flag entirely; the game treats a present
// flag with an empty value as a real (empty) password.
func BuildArgs(cfg config.Config) []string {
	args := []string{
		cfg.SaveFile,
		"--server-name", cfg.Name,
		"--max-players", strconv.Itoa(cfg.MaxPlayers),
	}
	if cfg.Password != "" {
		args = append(args, "--password", cfg.Password)
	}
	args = append(args,
		"--public", strconv.FormatBool(cfg.Public),
		"--scenario", cfg.Scenario,
	)
	return args
}

// Start validates, backs up the save file, and launches cfg as a detached
// process. The instance marker is written before Start returns.
func (s *Supervisor) Start(cfg config.Config) (registry.Instance, error) {
	return s.start(cfg, history.KindStart)
}

// Restart behaves like Start but records the launch as a crash-recovery
// restart. Used by the monitor.
func (s *Supervisor) Restart(cfg config.Config) (registry.Instance, error) {
	inst, err := s.start(cfg, history.KindRestart)
	if err == nil {
		metrics.IncRestart(cfg.Name)
	}
	return inst, err
}

func (s *Supervisor) start(cfg config.Config, kind string) (registry.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return registry.Instance{}, fmt.Errorf("%v: %w", err, errdefs.ErrInvalidConfig)
	}
	if _, err := os.Stat(cfg.SaveFile); err != nil {
		return registry.Instance{}, fmt.Errorf("save file %s: %w", cfg.SaveFile, errdefs.ErrInvalidConfig)
	}
	if _, err := os.Stat(cfg.Scenario); err != nil {
		return registry.Instance{}, fmt.Errorf("scenario file %s: %w", cfg.Scenario, errdefs.ErrInvalidConfig)
	}
	if _, err := exec.LookPath(s.binary); err != nil {
		return registry.Instance{}, fmt.Errorf("game binary %s: %w", s.binary, errdefs.ErrLaunch)
	}

	// The running server mutates the save; never launch without a copy.
	backupPath, err := backup.Create(cfg.SaveFile, s.backupDir)
	if err != nil {
		return registry.Instance{}, fmt.Errorf("save backup before launch: %w", err)
	}
	s.log.Debug("save file backed up", "config", cfg.Name, "backup", backupPath)

	id := uuid.NewString()[:8]
	if err := os.MkdirAll(s.logDir, 0o750); err != nil {
		return registry.Instance{}, fmt.Errorf("creating log dir %s: %v: %w", s.logDir, err, errdefs.ErrLaunch)
	}
	logFile := filepath.Join(s.logDir,
		fmt.Sprintf("%s-%s-%s.log", cfg.Name, time.Now().Format(logStampLayout), id))
	lf, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return registry.Instance{}, fmt.Errorf("opening log %s: %v: %w", logFile, err, errdefs.ErrLaunch)
	}

	// #nosec G204 -- binary is operator-configured, args come from the store
	cmd := exec.Command(s.binary, BuildArgs(cfg)...)
	cmd.Stdout = lf
	cmd.Stderr = lf
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		_ = lf.Close()
		_ = os.Remove(logFile)
		return registry.Instance{}, fmt.Errorf("starting %s: %v: %w", s.binary, err, errdefs.ErrLaunch)
	}
	// exec dups the fd into the child; the parent copy can go.
	_ = lf.Close()
	// Reap in the background so a dead child never lingers as a zombie
	// while this process stays up.
	go func() { _ = cmd.Wait() }()

	inst := registry.Instance{
		ID:         id,
		ConfigName: cfg.Name,
		PID:        cmd.Process.Pid,
		SaveFile:   cfg.SaveFile,
		LogFile:    logFile,
		StartedAt:  time.Now(),
	}
	if err := s.reg.Put(inst); err != nil {
		// The process is already running; losing the marker only degrades
		// crash recovery, so log instead of failing the start.
		s.log.Warn("marker write failed", "config", cfg.Name, "pid", inst.PID, "err", err)
	}
	s.record(history.Event{Name: cfg.Name, PID: inst.PID, Kind: kind, SaveFile: cfg.SaveFile})
	metrics.IncStart(cfg.Name)
	s.log.Info("server started", "config", cfg.Name, "pid", inst.PID, "log", logFile)
	return inst, nil
}

// Stop terminates the instance with the given PID: SIGTERM to the process
// group, a grace period, then SIGKILL. A PID with no marker and no live
// supervised process is treated as already stopped, so Stop is idempotent.
func (s *Supervisor) Stop(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("pid %d: %w", pid, errdefs.ErrNotFound)
	}
	inst, err := s.reg.FindByPID(pid)
	if err != nil {
		if !errors.Is(err, errdefs.ErrNotFound) {
			return err
		}
		// Marker lost or already removed. Stop the process anyway if the
		// process table still shows it as ours; otherwise nothing to do.
		live, ferr := s.findRunningPID(pid)
		if ferr != nil || live == nil {
			s.log.Debug("stop on unknown pid, treating as already stopped", "pid", pid)
			return nil
		}
		inst = *live
	}
	s.terminate(pid)
	if inst.ConfigName != "" {
		if err := s.reg.Remove(inst.ConfigName); err != nil {
			s.log.Warn("marker remove failed", "config", inst.ConfigName, "err", err)
		}
	}
	s.record(history.Event{Name: inst.ConfigName, PID: pid, Kind: history.KindStop, SaveFile: inst.SaveFile})
	metrics.IncStop(inst.ConfigName)
	s.log.Info("server stopped", "config", inst.ConfigName, "pid", pid)
	return nil
}

// StopName stops the instance recorded for a configuration name. Unlike
// Stop by PID, an unknown name is a hard errdefs.ErrNotFound.
func (s *Supervisor) StopName(name string) error {
	inst, err := s.reg.Get(name)
	if err != nil {
		return err
	}
	return s.Stop(inst.PID)
}

// terminate signals the process group and escalates after the grace
// period. ESRCH means already gone and is not an error.
func (s *Supervisor) terminate(pid int) {
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return
		}
		// Not group leader (marker from an older run); signal directly.
		_ = syscall.Kill(pid, syscall.SIGTERM)
	}
	deadline := time.Now().Add(s.stopGrace)
	for time.Now().Before(deadline) {
		if !Alive(pid) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
	_ = syscall.Kill(pid, syscall.SIGKILL)
	// give the kernel a moment to reap before callers re-check liveness
	for i := 0; i < 20 && Alive(pid); i++ {
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *Supervisor) record(ev history.Event) {
	if s.hist == nil {
		return
	}
	if err := s.hist.Record(context.Background(), ev); err != nil {
		s.log.Warn("history record failed", "kind", ev.Kind, "config", ev.Name, "err", err)
	}
}
