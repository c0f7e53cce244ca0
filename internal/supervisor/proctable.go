package supervisor

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"parkwarden/internal/metrics"
	"parkwarden/internal/registry"
)

// Alive reports whether pid refers to a live process. A zombie counts as
// dead: it can no longer serve players and must be restartable.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if isZombie(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}

// isZombie reads /proc/<pid>/status for a Z state on Linux. Anywhere the
// file is unreadable the check is inconclusive and reports false.
func isZombie(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}

// ListRunning scans the OS process table for processes launched from the
// supervised binary. This is the authoritative liveness source: markers
// are consulted only to enrich hits with launch metadata, so instances
// survive a supervisor restart that lost its markers.
func (s *Supervisor) ListRunning() ([]registry.Instance, error) {
	procs, err := s.scanProcTable()
	if err != nil {
		return nil, err
	}
	out := make([]registry.Instance, 0, len(procs))
	for pid, argv := range procs {
		inst, err := s.reg.FindByPID(pid)
		if err != nil {
			inst = instanceFromArgv(pid, argv)
		}
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConfigName != out[j].ConfigName {
			return out[i].ConfigName < out[j].ConfigName
		}
		return out[i].PID < out[j].PID
	})
	metrics.SetRunningInstances(len(out))
	return out, nil
}

// findRunningPID returns the process-table view of one PID when it matches
// the supervised binary, or nil when it does not.
func (s *Supervisor) findRunningPID(pid int) (*registry.Instance, error) {
	procs, err := s.scanProcTable()
	if err != nil {
		return nil, err
	}
	argv, ok := procs[pid]
	if !ok {
		return nil, nil
	}
	inst := instanceFromArgv(pid, argv)
	return &inst, nil
}

// scanProcTable walks /proc and returns pid -> argv for every live process
// whose argv[0] is the supervised binary.
func (s *Supervisor) scanProcTable() (map[int][]string, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	out := make(map[int][]string)
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		b, err := os.ReadFile(filepath.Join("/proc", e.Name(), "cmdline"))
		if err != nil || len(b) == 0 {
			continue
		}
		argv := strings.Split(strings.TrimRight(string(b), "\x00"), "\x00")
		if len(argv) == 0 || !s.matchesBinary(argv[0]) {
			continue
		}
		if isZombie(pid) {
			continue
		}
		out[pid] = argv
	}
	return out, nil
}

// matchesBinary compares a process-table argv[0] to the configured binary,
// tolerating one side being relative and the other absolute.
func (s *Supervisor) matchesBinary(argv0 string) bool {
	if argv0 == s.binary {
		return true
	}
	return filepath.Base(argv0) == filepath.Base(s.binary) &&
		(strings.HasSuffix(argv0, s.binary) || strings.HasSuffix(s.binary, argv0))
}

// instanceFromArgv reconstructs what it can of an Instance from the launch
// arguments when no marker exists for the PID.
func instanceFromArgv(pid int, argv []string) registry.Instance {
	inst := registry.Instance{PID: pid}
	if len(argv) > 1 && !strings.HasPrefix(argv[1], "--") {
		inst.SaveFile = argv[1]
	}
	for i := 1; i < len(argv)-1; i++ {
		if argv[i] == "--server-name" {
			inst.ConfigName = argv[i+1]
			break
		}
	}
	return inst
}
