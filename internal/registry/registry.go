// Package registry persists one marker file per supervised instance.
// A marker records the OS process identifier plus the launch metadata
// needed to restart the instance after a crash. Marker existence does not
// guarantee the PID is still live; callers must treat markers as a
// recovery aid, not a liveness source.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"parkwarden/internal/errdefs"
)

// Instance describes one supervised process.
type Instance struct {
	ID         string    `json:"id"`
	ConfigName string    `json:"config_name"`
	PID        int       `json:"pid"`
	SaveFile   string    `json:"savefile"` // path actually launched with
	LogFile    string    `json:"log_file"`
	StartedAt  time.Time `json:"started_at"`
}

// Registry stores markers as <config name>.pid files under one directory.
// The file starts with the PID on its own line followed by the Instance
// encoded as JSON. A file holding only a PID still parses.
type Registry struct {
	dir string
}

func New(dir string) *Registry { return &Registry{dir: dir} }

func (r *Registry) Dir() string { return r.dir }

func (r *Registry) markerPath(name string) string {
	return filepath.Join(r.dir, name+".pid")
}

// Put writes (or replaces) the marker for inst.ConfigName.
func (r *Registry) Put(inst Instance) error {
	if inst.ConfigName == "" {
		return fmt.Errorf("instance has no configuration name")
	}
	if err := os.MkdirAll(r.dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", r.dir, err)
	}
	meta, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("encoding marker for %s: %w", inst.ConfigName, err)
	}
	body := strconv.Itoa(inst.PID) + "\n" + string(meta) + "\n"
	return os.WriteFile(r.markerPath(inst.ConfigName), []byte(body), 0o600)
}

// Get returns the marker for one configuration name.
func (r *Registry) Get(name string) (Instance, error) {
	inst, err := readMarker(r.markerPath(name), name)
	if err != nil {
		if os.IsNotExist(err) {
			return Instance{}, fmt.Errorf("instance %q: %w", name, errdefs.ErrNotFound)
		}
		return Instance{}, err
	}
	return inst, nil
}

// FindByPID scans all markers for one whose PID matches.
func (r *Registry) FindByPID(pid int) (Instance, error) {
	insts, err := r.List()
	if err != nil {
		return Instance{}, err
	}
	for _, inst := range insts {
		if inst.PID == pid {
			return inst, nil
		}
	}
	return Instance{}, fmt.Errorf("instance with pid %d: %w", pid, errdefs.ErrNotFound)
}

// Remove deletes the marker for name. Removing an absent marker is a no-op.
func (r *Registry) Remove(name string) error {
	err := os.Remove(r.markerPath(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns a stable snapshot of all markers, sorted by configuration
// name. Unreadable markers are skipped rather than failing the whole
// enumeration.
func (r *Registry) List() ([]Instance, error) {
	paths, err := filepath.Glob(filepath.Join(r.dir, "*.pid"))
	if err != nil {
		return nil, err
	}
	out := make([]Instance, 0, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), ".pid")
		inst, err := readMarker(p, name)
		if err != nil {
			continue
		}
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfigName < out[j].ConfigName })
	return out, nil
}

// readMarker parses a marker file: first line PID, optional JSON metadata
// after. A bare-PID file yields an Instance with only PID and ConfigName set.
func readMarker(path, name string) (Instance, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Instance{}, err
	}
	pidLine, rest, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return Instance{}, fmt.Errorf("marker %s: bad pid line: %w", path, err)
	}
	inst := Instance{ConfigName: name, PID: pid}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		var meta Instance
		if err := json.Unmarshal([]byte(rest), &meta); err == nil {
			meta.PID = pid
			if meta.ConfigName == "" {
				meta.ConfigName = name
			}
			inst = meta
		}
	}
	return inst, nil
}
