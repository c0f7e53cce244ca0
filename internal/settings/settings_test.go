package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Binary != "host" {
		t.Fatalf("Binary = %q, want host", s.Binary)
	}
	if s.PollInterval != 10*time.Second {
		t.Fatalf("PollInterval = %v", s.PollInterval)
	}
	if s.StopGrace != 5*time.Second {
		t.Fatalf("StopGrace = %v", s.StopGrace)
	}
	if s.Listen != "127.0.0.1:8310" {
		t.Fatalf("Listen = %q", s.Listen)
	}
	for name, p := range map[string]string{
		"store":    s.StorePath,
		"registry": s.RegistryDir,
		"log":      s.LogDir,
		"backup":   s.BackupDir,
		"history":  s.HistoryDB,
	} {
		if p == "" {
			t.Fatalf("%s path not derived from data dir", name)
		}
		if !filepath.IsAbs(p) && s.DataDir != ".parkwarden" {
			t.Fatalf("%s path %q not under data dir", name, p)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parkwarden.toml")
	body := `
binary = "/opt/game/host"
data_dir = "` + dir + `"
poll_interval = "30s"
stop_grace = "8s"
listen = "0.0.0.0:9000"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Binary != "/opt/game/host" {
		t.Fatalf("Binary = %q", s.Binary)
	}
	if s.PollInterval != 30*time.Second {
		t.Fatalf("PollInterval = %v", s.PollInterval)
	}
	if s.StopGrace != 8*time.Second {
		t.Fatalf("StopGrace = %v", s.StopGrace)
	}
	if s.Listen != "0.0.0.0:9000" {
		t.Fatalf("Listen = %q", s.Listen)
	}
	if s.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q", s.Log.Level)
	}
	if s.StorePath != filepath.Join(dir, "servers.json") {
		t.Fatalf("StorePath = %q", s.StorePath)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for explicit missing settings file")
	}
}
