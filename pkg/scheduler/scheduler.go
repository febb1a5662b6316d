package scheduler

import (
	"context"
	"time"

	"github.com/tokenized/voting-contract/internal/platform/logger"

	"github.com/pkg/errors"
	sync "github.com/sasha-s/go-deadlock"
)

const (
	// Name is used for the scheduler's named logger.
	Name = "Scheduler"

	pollFrequency = 500 * time.Millisecond
)

var (
	NotFound = errors.New("Job not found")
)

// Scheduler provides the ability to schedule tasks to run at when they are ready.
type Scheduler struct {
	jobs          []Job
	lock          sync.Mutex
	isRunning     bool
	stopRequested bool
}

// Job provides an interface that tells Scheduler when and how to run the job.
type Job interface {
	// IsReady returns true when a job should be executed.
	IsReady(ctx context.Context) bool

	// Run executes the job.
	Run(ctx context.Context)

	// IsComplete returns true when a job should be removed from the scheduler.
	IsComplete(ctx context.Context) bool

	// Equal returns true if another job matches it. Used to cancel jobs.
	Equal(other Job) bool
}

// ScheduleJob adds a job to the scheduler.
func (sch *Scheduler) ScheduleJob(ctx context.Context, job Job) error {
	sch.lock.Lock()
	defer sch.lock.Unlock()
	sch.jobs = append(sch.jobs, job)
	return nil
}

// CancelJob removes a job from the scheduler. The job passed in just needs to be
// equivalent based on the job's Equal function.
func (sch *Scheduler) CancelJob(ctx context.Context, job Job) error {
	sch.lock.Lock()
	defer sch.lock.Unlock()
	for i, existing := range sch.jobs {
		if existing.Equal(job) {
			sch.jobs = append(sch.jobs[:i], sch.jobs[i+1:]...)
			return nil
		}
	}
	return NotFound
}

// Count returns the number of scheduled jobs.
func (sch *Scheduler) Count() int {
	sch.lock.Lock()
	defer sch.lock.Unlock()
	return len(sch.jobs)
}

// Run monitors jobs and runs them when they are ready. It returns when Stop
// is called or the context is done.
func (sch *Scheduler) Run(ctx context.Context) error {
	ctx = logger.ContextWithNamedLogger(ctx, Name)

	sch.lock.Lock()
	sch.isRunning = true
	for !sch.stopRequested {
		sch.runReady(ctx)

		// Unlock for sleep
		sch.lock.Unlock()
		select {
		case <-ctx.Done():
			sch.lock.Lock()
			sch.isRunning = false
			sch.lock.Unlock()
			return ctx.Err()
		case <-time.After(pollFrequency):
		}
		sch.lock.Lock()
	}
	sch.isRunning = false
	sch.lock.Unlock()
	return nil
}

// runReady runs the ready jobs and drops the complete ones. The lock must be
// held.
func (sch *Scheduler) runReady(ctx context.Context) {
	remaining := sch.jobs[:0]
	for _, job := range sch.jobs {
		if job.IsReady(ctx) {
			job.Run(ctx)
			if job.IsComplete(ctx) {
				continue
			}
		}
		remaining = append(remaining, job)
	}
	sch.jobs = remaining
}

// stillRunning returns true if the scheduler is still running.
func (sch *Scheduler) stillRunning() bool {
	sch.lock.Lock()
	defer sch.lock.Unlock()
	return sch.isRunning
}

// Stop requests Run finish and waits for it to finish.
func (sch *Scheduler) Stop(ctx context.Context) error {
	ctx = logger.ContextWithNamedLogger(ctx, Name)
	sch.lock.Lock()
	sch.stopRequested = true
	sch.lock.Unlock()

	count := 0
	for sch.stillRunning() {
		time.Sleep(200 * time.Millisecond)
		if count > 30 { // 6 seconds
			logger.Info(ctx, "Waiting for scheduler to stop")
			count = 0
		}
		count++
	}
	return nil
}
