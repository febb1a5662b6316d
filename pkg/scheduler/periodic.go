package scheduler

import (
	"context"
	"time"
)

type PeriodicProcessInterface interface {
	Run(context.Context)
}

// ProcessFunc adapts a function to PeriodicProcessInterface.
type ProcessFunc func(ctx context.Context)

func (f ProcessFunc) Run(ctx context.Context) {
	f(ctx)
}

// PeriodicProcess is a Scheduler job that runs a process every frequency. It
// never completes, so it stays scheduled until cancelled.
type PeriodicProcess struct {
	name      string
	process   PeriodicProcessInterface
	frequency time.Duration
	clock     func() time.Time
	next      time.Time
}

func NewPeriodicProcess(name string, process PeriodicProcessInterface,
	frequency time.Duration) *PeriodicProcess {
	return NewPeriodicProcessWithClock(name, process, frequency, time.Now)
}

// NewPeriodicProcessWithClock returns a PeriodicProcess that reads the time from clock.
func NewPeriodicProcessWithClock(name string, process PeriodicProcessInterface,
	frequency time.Duration, clock func() time.Time) *PeriodicProcess {

	if clock == nil {
		clock = time.Now
	}

	return &PeriodicProcess{
		name:      name,
		process:   process,
		frequency: frequency,
		clock:     clock,
		next:      clock().Add(frequency),
	}
}

func (pp *PeriodicProcess) Name() string {
	return pp.name
}

// Next returns when the process is next due.
func (pp *PeriodicProcess) Next() time.Time {
	return pp.next
}

func (pp *PeriodicProcess) IsReady(ctx context.Context) bool {
	return !pp.clock().Before(pp.next)
}

// Run executes the process and schedules the next run one frequency after now.
func (pp *PeriodicProcess) Run(ctx context.Context) {
	pp.next = pp.clock().Add(pp.frequency)
	pp.process.Run(ctx)
}

func (pp *PeriodicProcess) IsComplete(ctx context.Context) bool {
	return false
}

// Equal matches jobs by name so a fresh PeriodicProcess can cancel a scheduled one.
func (pp *PeriodicProcess) Equal(other Job) bool {
	o, ok := other.(*PeriodicProcess)
	if !ok {
		return false
	}
	return pp.name == o.name
}
