package main

import "time"

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	SettingsPath string // path to TOML settings file (optional)
	StartServer  string // non-interactive entry: launch one configuration and exit
}

// ConfigSetFlags holds flags for `config set`.
type ConfigSetFlags struct {
	Name       string
	MaxPlayers int
	Password   string
	Public     bool
	SaveFile   string
	Scenario   string
}

// ConfigDeleteFlags holds flags for `config delete`.
type ConfigDeleteFlags struct {
	Name string
}

// StartFlags holds flags for `start`.
type StartFlags struct {
	Name string
}

// StopFlags holds flags for `stop`.
type StopFlags struct {
	PID  int
	Name string
}

// ScheduleFlags holds flags for `schedule start` / `schedule stop`.
type ScheduleFlags struct {
	Name string
	PID  int
	At   string
}

// MonitorFlags holds flags for `monitor`.
type MonitorFlags struct {
	Interval time.Duration
}

// ServeFlags holds flags for `serve`.
type ServeFlags struct {
	Listen string
}

// HistoryFlags holds flags for `history`.
type HistoryFlags struct {
	Name  string
	Limit int
}
