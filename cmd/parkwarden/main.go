package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	globals := &GlobalFlags{}
	c := command{globals: globals}

	root := &cobra.Command{
		Use:   "parkwarden",
		Short: "Game-server process supervision and scheduling",
		Long: `Parkwarden launches game servers from named configurations, tracks their
liveness, restarts them on crash, and defers start/stop actions to future
times through the host's crontab.

Examples:
  parkwarden config set --name=alpine --max-players=16 --public \
      --savefile=/srv/saves/park1.sav --scenario=/srv/scenarios/alpine.sc6
  parkwarden start --name=alpine
  parkwarden list
  parkwarden monitor
  parkwarden schedule start --name=alpine --at="2026-09-01 06:00"
  parkwarden --start-server alpine        # non-interactive (cron) entry`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if globals.StartServer != "" {
				return c.StartServer(globals.StartServer)
			}
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&globals.SettingsPath, "settings", "", "path to TOML settings file (optional)")
	root.Flags().StringVar(&globals.StartServer, "start-server", "", "launch the named configuration non-interactively and exit")

	root.AddCommand(
		createConfigCommand(c),
		createStartCommand(c),
		createStopCommand(c),
		createListCommand(c),
		createMonitorCommand(c),
		createScheduleCommand(c),
		createHistoryCommand(c),
		createServeCommand(c),
	)
	return root
}

func createConfigCommand(c command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage server configurations",
	}

	setFlags := &ConfigSetFlags{}
	set := &cobra.Command{
		Use:   "set",
		Short: "Create or fully replace a configuration",
		Long: `Create a configuration, or replace an existing one of the same name.
There are no partial updates; every field is written as given.

Examples:
  parkwarden config set --name=alpine --max-players=16 --public \
      --savefile=/srv/saves/park1.sav --scenario=/srv/scenarios/alpine.sc6
  parkwarden config set --name=locked --max-players=8 --password=hunter2 \
      --savefile=/srv/saves/park2.sav --scenario=/srv/scenarios/locked.sc6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ConfigSet(*setFlags)
		},
	}
	set.Flags().StringVar(&setFlags.Name, "name", "", "configuration name (required)")
	set.Flags().IntVar(&setFlags.MaxPlayers, "max-players", 8, "maximum player count")
	set.Flags().StringVar(&setFlags.Password, "password", "", "server password (empty = none)")
	set.Flags().BoolVar(&setFlags.Public, "public", false, "advertise the server publicly")
	set.Flags().StringVar(&setFlags.SaveFile, "savefile", "", "path to the save-game file (required)")
	set.Flags().StringVar(&setFlags.Scenario, "scenario", "", "path to the scenario file (required)")
	for _, f := range []string{"name", "savefile", "scenario"} {
		if err := set.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ConfigList()
		},
	}

	delFlags := &ConfigDeleteFlags{}
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete a configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ConfigDelete(*delFlags)
		},
	}
	del.Flags().StringVar(&delFlags.Name, "name", "", "configuration name (required)")
	if err := del.MarkFlagRequired("name"); err != nil {
		panic(err)
	}

	cmd.AddCommand(set, list, del)
	return cmd
}

func createStartCommand(c command) *cobra.Command {
	flags := &StartFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a configured server",
		Long: `Back up the save file, launch the named configuration detached, and
record its instance marker.

Examples:
  parkwarden start --name=alpine`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "configuration name (required)")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func createStopCommand(c command) *cobra.Command {
	flags := &StopFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running server",
		Long: `Send SIGTERM to the instance, escalate to SIGKILL after the grace
period, and remove its marker. Stopping an already-stopped PID is a no-op.

Examples:
  parkwarden stop --pid=12345
  parkwarden stop --name=alpine`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop(*flags)
		},
	}
	cmd.Flags().IntVar(&flags.PID, "pid", 0, "process identifier")
	cmd.Flags().StringVar(&flags.Name, "name", "", "configuration name")
	return cmd
}

func createListCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List running servers",
		Long:  "List live instances from the OS process table, enriched with marker metadata.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List()
		},
	}
}

func createMonitorCommand(c command) *cobra.Command {
	flags := &MonitorFlags{}
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the crash-recovery monitor",
		Long: `Poll instance markers against the OS process table and restart dead
instances from their originating configuration. Runs until interrupted.

Examples:
  parkwarden monitor
  parkwarden monitor --interval=30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Monitor(*flags)
		},
	}
	cmd.Flags().DurationVar(&flags.Interval, "interval", 0, "poll interval (default from settings)")
	return cmd
}

func createScheduleCommand(c command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Defer start/stop actions via the host crontab",
	}

	startFlags := &ScheduleFlags{}
	start := &cobra.Command{
		Use:   "start",
		Short: "Schedule a server start",
		Long: `Append a crontab entry that re-invokes parkwarden non-interactively at
the given local time.

Examples:
  parkwarden schedule start --name=alpine --at="2026-09-01 06:00"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ScheduleStart(*startFlags)
		},
	}
	start.Flags().StringVar(&startFlags.Name, "name", "", "configuration name (required)")
	start.Flags().StringVar(&startFlags.At, "at", "", `local time "2006-01-02 15:04" (required)`)
	for _, f := range []string{"name", "at"} {
		if err := start.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}

	stopFlags := &ScheduleFlags{}
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Schedule a server stop",
		Long: `Append a crontab entry that kills the given PID at the given local time.

Examples:
  parkwarden schedule stop --pid=12345 --at="2026-09-01 23:30"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ScheduleStop(*stopFlags)
		},
	}
	stop.Flags().IntVar(&stopFlags.PID, "pid", 0, "process identifier (required)")
	stop.Flags().StringVar(&stopFlags.At, "at", "", `local time "2006-01-02 15:04" (required)`)
	for _, f := range []string{"pid", "at"} {
		if err := stop.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the raw scheduled job list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ScheduleList()
		},
	}

	cmd.AddCommand(start, stop, list)
	return cmd
}

func createHistoryCommand(c command) *cobra.Command {
	flags := &HistoryFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded lifecycle events",
		Long: `Show start/stop/restart events from the history database.

Examples:
  parkwarden history
  parkwarden history --name=alpine --limit=20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.History(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "filter by configuration name")
	cmd.Flags().IntVar(&flags.Limit, "limit", 50, "maximum events to show")
	return cmd
}

func createServeCommand(c command) *cobra.Command {
	flags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control API and the crash-recovery monitor",
		Long: `Serve the control API (list, start, stop, history, metrics) and run the
crash-recovery monitor until interrupted.

Examples:
  parkwarden serve
  parkwarden serve --listen=127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Serve(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "listen address (default from settings)")
	return cmd
}
