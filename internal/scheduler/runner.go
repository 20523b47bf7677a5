package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"hotel-reservation-backend/config"
	"hotel-reservation-backend/internal/model"
)

// ErrUnknownKind is recorded on jobs no handler is registered for.
var ErrUnknownKind = errors.New("no handler for job kind")

// Handler executes one claimed job. A returned error schedules a retry.
type Handler func(ctx context.Context, job model.ScheduledJob) error

// JobStore is the persistence the runner needs.
type JobStore interface {
	ClaimDueJobs(ctx context.Context, now time.Time, limit int) ([]model.ScheduledJob, error)
	MarkJobDone(ctx context.Context, id int64) error
	RescheduleJob(ctx context.Context, id int64, runAt time.Time, lastErr string) error
	MarkJobFailed(ctx context.Context, id int64, lastErr string) error
	ResetRunningJobs(ctx context.Context) (int64, error)
}

// Runner polls for due jobs and executes them on a bounded set of goroutines.
// Jobs survive restarts because they live in the database.
type Runner struct {
	store    JobStore
	handlers map[string]Handler
	cfg      config.SchedulerConfig
	workers  int
	now      func() time.Time
}

// NewRunner creates a job runner.
func NewRunner(store JobStore, cfg config.SchedulerConfig, workers int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	return &Runner{
		store:    store,
		handlers: make(map[string]Handler),
		cfg:      cfg,
		workers:  workers,
		now:      time.Now,
	}
}

// Handle registers the handler for a job kind.
func (r *Runner) Handle(kind string, h Handler) {
	r.handlers[kind] = h
}

// SetClock replaces the time source used to pick due jobs and retry times.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Run requeues jobs interrupted by a previous shutdown, then polls until ctx
// is done.
func (r *Runner) Run(ctx context.Context) {
	log.Println("Starting job runner...")
	if n, err := r.store.ResetRunningJobs(ctx); err != nil {
		log.Printf("[scheduler] could not requeue interrupted jobs: %v", err)
	} else if n > 0 {
		log.Printf("[scheduler] requeued %d interrupted jobs", n)
	}

	r.RunOnce(ctx)

	timer := time.NewTimer(r.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Job runner shutting down.")
			return
		case <-timer.C:
			r.RunOnce(ctx)
			timer.Reset(r.cfg.PollInterval)
		}
	}
}

// RunOnce claims one batch of due jobs and waits for all of them to finish.
// It returns the number of jobs claimed.
func (r *Runner) RunOnce(ctx context.Context) int {
	jobs, err := r.store.ClaimDueJobs(ctx, r.now(), r.cfg.BatchSize)
	if err != nil {
		log.Printf("[scheduler] claim failed: %v", err)
		return 0
	}
	if len(jobs) == 0 {
		return 0
	}

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job model.ScheduledJob) {
			defer wg.Done()
			defer func() { <-sem }()
			r.execute(ctx, job)
		}(job)
	}
	wg.Wait()
	return len(jobs)
}

func (r *Runner) execute(ctx context.Context, job model.ScheduledJob) {
	err := r.call(ctx, job)
	if err == nil {
		if err := r.store.MarkJobDone(ctx, job.ID); err != nil {
			log.Printf("[scheduler] job %s done but not recorded: %v", job.Name, err)
		}
		return
	}

	if errors.Is(err, ErrUnknownKind) || job.Attempts >= r.cfg.MaxAttempts {
		log.Printf("[scheduler] job %s failed after %d attempts: %v", job.Name, job.Attempts, err)
		if err := r.store.MarkJobFailed(ctx, job.ID, err.Error()); err != nil {
			log.Printf("[scheduler] could not mark job %s failed: %v", job.Name, err)
		}
		return
	}

	next := r.now().Add(r.cfg.RetryBackoff * time.Duration(job.Attempts))
	log.Printf("[scheduler] job %s attempt %d failed, retrying at %s: %v", job.Name, job.Attempts, next.UTC().Format(time.RFC3339), err)
	if err := r.store.RescheduleJob(ctx, job.ID, next, err.Error()); err != nil {
		log.Printf("[scheduler] could not reschedule job %s: %v", job.Name, err)
	}
}

func (r *Runner) call(ctx context.Context, job model.ScheduledJob) (err error) {
	h, ok := r.handlers[job.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return h(ctx, job)
}
