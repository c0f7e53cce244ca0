// Package history keeps a durable log of lifecycle events so an operator
// can reconstruct what the supervisor did while running unattended.
package history

import (
	"context"
	"time"
)

// Event kinds.
const (
	KindStart   = "start"
	KindStop    = "stop"
	KindRestart = "restart" // crash-recovery restart
)

// Event is one lifecycle transition of a supervised instance.
type Event struct {
	ID         int64
	Name       string // configuration name
	PID        int
	Kind       string
	SaveFile   string
	Detail     string // free-form, e.g. the error that triggered a restart
	OccurredAt time.Time
}

// Recorder is the write side. A nil Recorder is valid everywhere; callers
// must tolerate running without history.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
