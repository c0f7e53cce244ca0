package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"parkwarden/internal/backup"
	"parkwarden/internal/errdefs"
)

// Config is a named, reusable set of server launch parameters.
// Fields are typed; the persisted form is a single JSON document mapping
// name to Config. Path fields are validated at use time, not at creation.
type Config struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
	Password   string `json:"password"` // empty means no password
	Public     bool   `json:"public"`
	SaveFile   string `json:"savefile"`
	Scenario   string `json:"scenario"`
}

// Validate checks the invariants that do not depend on the filesystem.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.MaxPlayers <= 0 {
		return fmt.Errorf("max_players must be positive, got %d", c.MaxPlayers)
	}
	if c.SaveFile == "" {
		return errors.New("savefile is required")
	}
	if c.Scenario == "" {
		return errors.New("scenario is required")
	}
	return nil
}

// Store is the durable mapping from configuration name to Config.
// All mutations are serialized through an in-process mutex plus an advisory
// flock on a sibling lock file, so concurrent processes (CLI, monitor,
// cron-fired re-invocations) cannot lose each other's writes.
type Store struct {
	mu        sync.Mutex
	path      string
	backupDir string // when set, Save copies the previous file there first
}

func NewStore(path string) *Store { return &Store{path: path} }

// WithBackups enables best-effort timestamped copies of the store file
// before each overwrite.
func (s *Store) WithBackups(dir string) *Store {
	s.backupDir = dir
	return s
}

func (s *Store) Path() string { return s.path }

// Load reads the full mapping. A missing file yields an empty mapping and
// no error. An unparsable or mistyped file yields an empty mapping and an
// error wrapping errdefs.ErrStoreIO so callers can keep going while still
// surfacing the damage.
func (s *Store) Load() (map[string]Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (map[string]Config, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Config{}, nil
		}
		return map[string]Config{}, fmt.Errorf("reading %s: %v: %w", s.path, err, errdefs.ErrStoreIO)
	}
	var m map[string]Config
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]Config{}, fmt.Errorf("parsing %s: %v: %w", s.path, err, errdefs.ErrStoreIO)
	}
	if m == nil {
		m = map[string]Config{}
	}
	return m, nil
}

// Save atomically replaces the full mapping: marshal to a temp file in the
// same directory, then rename over the old file.
func (s *Store) Save(m map[string]Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.flock()
	if err != nil {
		return err
	}
	defer unlock()
	return s.save(m)
}

func (s *Store) save(m map[string]Config) error {
	if s.backupDir != "" {
		if _, err := os.Stat(s.path); err == nil {
			_, _ = backup.Create(s.path, s.backupDir)
		}
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %v: %w", err, errdefs.ErrStoreIO)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %v: %w", dir, err, errdefs.ErrStoreIO)
	}
	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return fmt.Errorf("temp file: %v: %w", err, errdefs.ErrStoreIO)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %v: %w", tmpName, err, errdefs.ErrStoreIO)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing %s: %v: %w", tmpName, err, errdefs.ErrStoreIO)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %v: %w", s.path, err, errdefs.ErrStoreIO)
	}
	return nil
}

// Get returns one configuration. A miss is a hard errdefs.ErrNotFound;
// no sentinel value ever flows into a launch command.
func (s *Store) Get(name string) (Config, error) {
	m, err := s.Load()
	if err != nil {
		return Config{}, err
	}
	c, ok := m[name]
	if !ok {
		return Config{}, fmt.Errorf("configuration %q: %w", name, errdefs.ErrNotFound)
	}
	return c, nil
}

// Put inserts or fully replaces one configuration under a single lock
// acquisition, so the read-modify-write cycle cannot race another writer.
func (s *Store) Put(c Config) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, errdefs.ErrInvalidConfig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.flock()
	if err != nil {
		return err
	}
	defer unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	m[c.Name] = c
	return s.save(m)
}

// Delete removes one entry and persists. Deleting an absent name is a no-op.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.flock()
	if err != nil {
		return err
	}
	defer unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	delete(m, name)
	return s.save(m)
}
