// Package settings loads the supervisor's own configuration (paths,
// intervals, listen address) from an optional TOML file. Game-server
// configurations live in the configuration store, not here.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"parkwarden/internal/logger"
)

type Settings struct {
	Binary       string        `mapstructure:"binary"`        // game-server executable
	DataDir      string        `mapstructure:"data_dir"`      // base for derived paths
	StorePath    string        `mapstructure:"store_path"`    // configuration store file
	RegistryDir  string        `mapstructure:"registry_dir"`  // instance markers
	LogDir       string        `mapstructure:"log_dir"`       // per-launch server logs
	BackupDir    string        `mapstructure:"backup_dir"`    // save/store backups
	HistoryDB    string        `mapstructure:"history_db"`    // sqlite event log, "" disables
	PollInterval time.Duration `mapstructure:"poll_interval"` // monitor cycle period
	StopGrace    time.Duration `mapstructure:"stop_grace"`    // SIGTERM-to-SIGKILL window
	Listen       string        `mapstructure:"listen"`        // HTTP control API address
	Log          logger.Config `mapstructure:"log"`           // daemon log
}

// Load reads settings from the given TOML file, or returns defaults when
// path is empty. Paths left unset derive from DataDir.
func Load(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading settings %s: %w", path, err)
		}
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	s.derivePaths()
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("binary", "host")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("poll_interval", 10*time.Second)
	v.SetDefault("stop_grace", 5*time.Second)
	v.SetDefault("listen", "127.0.0.1:8310")
}

func (s *Settings) derivePaths() {
	if s.StorePath == "" {
		s.StorePath = filepath.Join(s.DataDir, "servers.json")
	}
	if s.RegistryDir == "" {
		s.RegistryDir = filepath.Join(s.DataDir, "run")
	}
	if s.LogDir == "" {
		s.LogDir = filepath.Join(s.DataDir, "log")
	}
	if s.BackupDir == "" {
		s.BackupDir = filepath.Join(s.DataDir, "backup")
	}
	if s.HistoryDB == "" {
		s.HistoryDB = filepath.Join(s.DataDir, "history.db")
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".parkwarden"
	}
	return filepath.Join(home, ".parkwarden")
}
