// Package schedule defers start and stop actions to future times by
// appending one-shot entries to the host's crontab. The crontab owns the
// job list; this package only appends and lists, never edits an entry in
// place.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"parkwarden/internal/errdefs"
)

// WhenLayout is the accepted local date-time form for scheduled actions.
const WhenLayout = "2006-01-02 15:04"

// marker tags installed lines so ListScheduled can point the operator at
// the entries this program wrote. The shell ignores it as a comment.
const marker = "# parkwarden"

// Bridge converts (action, trigger time) pairs into crontab lines that
// re-invoke this program non-interactively.
type Bridge struct {
	tab  Crontab
	self string // absolute path to this executable
}

func NewBridge(tab Crontab, self string) *Bridge {
	return &Bridge{tab: tab, self: self}
}

// ParseWhen parses a local date-time string. Callers must not schedule
// anything when it fails.
func ParseWhen(s string) (time.Time, error) {
	t, err := time.ParseInLocation(WhenLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q (want %q): %w", s, WhenLayout, errdefs.ErrScheduleParse)
	}
	return t, nil
}

// ScheduleStart appends a one-shot entry that launches the named
// configuration at the given time via `--start-server`.
func (b *Bridge) ScheduleStart(configName string, when time.Time) error {
	if configName == "" {
		return fmt.Errorf("configuration name: %w", errdefs.ErrNotFound)
	}
	line := fmt.Sprintf("%s %s --start-server %s %s", cronExpr(when), b.self, configName, marker)
	return b.append(when, line)
}

// ScheduleStop appends a one-shot entry that kills the given PID at the
// given time.
func (b *Bridge) ScheduleStop(pid int, when time.Time) error {
	if pid <= 0 {
		return fmt.Errorf("pid %d: %w", pid, errdefs.ErrNotFound)
	}
	line := fmt.Sprintf("%s kill %d %s", cronExpr(when), pid, marker)
	return b.append(when, line)
}

// ListScheduled returns the raw job list for display.
func (b *Bridge) ListScheduled() ([]string, error) {
	return b.tab.List()
}

// NextRun reports when a listed entry will next fire, for display.
func NextRun(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return time.Time{}, false
	}
	sched, err := cron.ParseStandard(strings.Join(fields[:5], " "))
	if err != nil {
		return time.Time{}, false
	}
	return sched.Next(time.Now()), true
}

func (b *Bridge) append(when time.Time, line string) error {
	expr := cronExpr(when)
	// The expression is machine-built; parsing it back catches a bad
	// build before it lands in the crontab.
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("cron expression %q: %v: %w", expr, err, errdefs.ErrScheduleParse)
	}
	lines, err := b.tab.List()
	if err != nil {
		return fmt.Errorf("reading crontab: %w", err)
	}
	lines = append(lines, line)
	if err := b.tab.Replace(lines); err != nil {
		return fmt.Errorf("installing crontab: %w", err)
	}
	return nil
}

// cronExpr renders minute/hour/day/month with a wildcard weekday. The
// entry recurs yearly until the operator replaces the job list; the
// re-invoked action itself is one-shot.
func cronExpr(t time.Time) string {
	return fmt.Sprintf("%d %d %d %d *", t.Minute(), t.Hour(), t.Day(), int(t.Month()))
}
