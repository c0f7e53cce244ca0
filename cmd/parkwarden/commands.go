package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"parkwarden"
	"parkwarden/internal/config"
	"parkwarden/internal/history"
	"parkwarden/internal/metrics"
	"parkwarden/internal/schedule"
	"parkwarden/internal/server"
	"parkwarden/internal/settings"
)

// command carries the parsed global flags into each subcommand.
type command struct {
	globals *GlobalFlags
}

func (c command) warden() (*parkwarden.Warden, error) {
	st, err := settings.Load(c.globals.SettingsPath)
	if err != nil {
		return nil, err
	}
	return parkwarden.New(st)
}

// StartServer is the non-interactive entry used by crontab lines: load the
// named configuration, launch it, and exit.
func (c command) StartServer(name string) error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	cfg, err := w.Store.Get(name)
	if err != nil {
		return err
	}
	inst, err := w.Supervisor.Start(cfg)
	if err != nil {
		return err
	}
	w.Log.Info("scheduled start completed", "config", name, "pid", inst.PID)
	return nil
}

func (c command) ConfigSet(f ConfigSetFlags) error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	cfg := config.Config{
		Name:       f.Name,
		MaxPlayers: f.MaxPlayers,
		Password:   f.Password,
		Public:     f.Public,
		SaveFile:   f.SaveFile,
		Scenario:   f.Scenario,
	}
	if err := w.Store.Put(cfg); err != nil {
		return err
	}
	fmt.Printf("configuration %q saved\n", f.Name)
	return nil
}

func (c command) ConfigList() error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	m, err := w.Store.Load()
	if err != nil {
		return err
	}
	if len(m) == 0 {
		fmt.Println("no configurations")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMAX\tPUBLIC\tPASSWORD\tSAVEFILE\tSCENARIO")
	for _, cfg := range m {
		pw := "-"
		if cfg.Password != "" {
			pw = "set"
		}
		fmt.Fprintf(tw, "%s\t%d\t%t\t%s\t%s\t%s\n",
			cfg.Name, cfg.MaxPlayers, cfg.Public, pw, cfg.SaveFile, cfg.Scenario)
	}
	return tw.Flush()
}

func (c command) ConfigDelete(f ConfigDeleteFlags) error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if err := w.Store.Delete(f.Name); err != nil {
		return err
	}
	fmt.Printf("configuration %q deleted\n", f.Name)
	return nil
}

func (c command) Start(f StartFlags) error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	cfg, err := w.Store.Get(f.Name)
	if err != nil {
		return err
	}
	inst, err := w.Supervisor.Start(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("started %q (pid %d, log %s)\n", inst.ConfigName, inst.PID, inst.LogFile)
	return nil
}

func (c command) Stop(f StopFlags) error {
	if f.PID <= 0 && f.Name == "" {
		return fmt.Errorf("either --pid or --name is required")
	}
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if f.Name != "" {
		if err := w.Supervisor.StopName(f.Name); err != nil {
			return err
		}
		fmt.Printf("stopped %q\n", f.Name)
		return nil
	}
	if err := w.Supervisor.Stop(f.PID); err != nil {
		return err
	}
	fmt.Printf("stopped pid %d\n", f.PID)
	return nil
}

func (c command) List() error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	insts, err := w.Supervisor.ListRunning()
	if err != nil {
		return err
	}
	if len(insts) == 0 {
		fmt.Println("no servers running")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tNAME\tSAVEFILE\tSTARTED")
	for _, in := range insts {
		started := "-"
		if !in.StartedAt.IsZero() {
			started = in.StartedAt.Local().Format("2006-01-02 15:04:05")
		}
		name := in.ConfigName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", in.PID, name, in.SaveFile, started)
	}
	return tw.Flush()
}

func (c command) Monitor(f MonitorFlags) error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if f.Interval > 0 {
		w.Settings.PollInterval = f.Interval
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	w.Monitor().Run(ctx)
	return nil
}

func (c command) ScheduleStart(f ScheduleFlags) error {
	when, err := schedule.ParseWhen(f.At)
	if err != nil {
		return err
	}
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	// Fail early on unknown names; the cron line would only fail at fire time.
	if _, err := w.Store.Get(f.Name); err != nil {
		return err
	}
	b, err := w.Bridge()
	if err != nil {
		return err
	}
	if err := b.ScheduleStart(f.Name, when); err != nil {
		return err
	}
	fmt.Printf("start of %q scheduled for %s\n", f.Name, when.Format(schedule.WhenLayout))
	return nil
}

func (c command) ScheduleStop(f ScheduleFlags) error {
	if f.PID <= 0 {
		return fmt.Errorf("--pid must be positive")
	}
	when, err := schedule.ParseWhen(f.At)
	if err != nil {
		return err
	}
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	b, err := w.Bridge()
	if err != nil {
		return err
	}
	if err := b.ScheduleStop(f.PID, when); err != nil {
		return err
	}
	fmt.Printf("stop of pid %d scheduled for %s\n", f.PID, when.Format(schedule.WhenLayout))
	return nil
}

func (c command) ScheduleList() error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	b, err := w.Bridge()
	if err != nil {
		return err
	}
	lines, err := b.ListScheduled()
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Println("nothing scheduled")
		return nil
	}
	for _, l := range lines {
		if next, ok := schedule.NextRun(l); ok {
			fmt.Printf("%s  (next %s)\n", l, next.Format(schedule.WhenLayout))
			continue
		}
		fmt.Println(l)
	}
	return nil
}

func (c command) History(f HistoryFlags) error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if w.History == nil {
		return fmt.Errorf("history database unavailable")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var evs []history.Event
	if f.Name != "" {
		evs, err = w.History.ByName(ctx, f.Name, f.Limit)
	} else {
		evs, err = w.History.Recent(ctx, f.Limit)
	}
	if err != nil {
		return err
	}
	if len(evs) == 0 {
		fmt.Println("no events")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tKIND\tNAME\tPID\tDETAIL")
	for _, ev := range evs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			ev.OccurredAt.Local().Format("2006-01-02 15:04:05"), ev.Kind, ev.Name, ev.PID, ev.Detail)
	}
	return tw.Flush()
}

func (c command) Serve(f ServeFlags) error {
	w, err := c.warden()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if f.Listen != "" {
		w.Settings.Listen = f.Listen
	}
	if err := metrics.RegisterDefault(); err != nil {
		w.Log.Warn("metrics registration failed", "err", err)
	}

	bridge, err := w.Bridge()
	if err != nil {
		w.Log.Warn("scheduler bridge unavailable", "err", err)
		bridge = nil
	}
	router := server.NewRouter(w.Supervisor, w.Store, w.History, bridge, w.Log)
	srv := server.NewServer(w.Settings.Listen, router)
	w.Log.Info("control api listening", "addr", w.Settings.Listen)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	w.Monitor().Run(ctx)

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
