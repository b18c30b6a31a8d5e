// Package runner executes pending jobs one at a time on a single
// background goroutine.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/internal/metrics"
	"github.com/kiln-build/kiln/internal/models"
	"github.com/kiln-build/kiln/internal/store"
	"github.com/kiln-build/kiln/pkg/db"
	"github.com/kiln-build/kiln/pkg/errs"
	"github.com/kiln-build/kiln/pkg/log"
)

const DefaultPollInterval = time.Second

// JobStore is the part of the store the runner needs.
type JobStore interface {
	FindPending(ctx context.Context) (models.Jobs, error)
	FindByStatus(ctx context.Context, status models.Status) (models.Jobs, error)
	UpdateStatus(ctx context.Context, id uint64, status models.Status, updatedAt time.Time) (*models.Job, error)
}

// Runner polls the store for pending jobs and executes them in
// submission order. At most one job executes at a time: jobs are run
// inline on the loop goroutine.
type Runner struct {
	store        JobStore
	executor     Executor
	bus          event.Bus
	pollInterval time.Duration
	now          func() time.Time

	running atomic.Bool
	hasWork atomic.Bool
	started atomic.Bool
	done    chan struct{}

	// unsettled is a finished job whose final status could not be
	// written. Only the loop goroutine touches it.
	unsettled *settlement
}

type settlement struct {
	job    *models.Job
	status models.Status
}

func New(st JobStore, executor Executor, bus event.Bus, pollInterval time.Duration) *Runner {
	if st == nil {
		panic("runner requires a job store")
	}
	if executor == nil {
		panic("runner requires an executor")
	}
	if bus == nil {
		bus = event.New()
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	r := &Runner{
		store:        st,
		executor:     executor,
		bus:          bus,
		pollInterval: pollInterval,
		now:          db.Now,
		done:         make(chan struct{}),
	}
	r.running.Store(true)
	// pick up whatever was queued before the process started
	r.hasWork.Store(true)

	return r
}

// Wake tells the runner that pending jobs may exist. It never blocks
// and never runs anything itself.
func (r *Runner) Wake() {
	r.hasWork.Store(true)
}

// Start launches the loop on its own goroutine. It may be called once.
func (r *Runner) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.run(ctx)
}

// Stop asks the loop to exit after its current sleep or iteration.
func (r *Runner) Stop() {
	r.running.Store(false)
}

// Wait blocks until the loop has exited.
func (r *Runner) Wait() {
	if !r.started.Load() {
		return
	}
	<-r.done
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	log.Info("runner started", "poll_interval", r.pollInterval)

	for r.running.Load() {
		if err := r.poll(ctx); err != nil {
			if store.IsBusy(err) {
				log.Warn("job store busy; retrying next tick", "error", err)
			} else {
				log.Error("failed to run jobs", "error", err)
			}
		}

		if err := sleepWithContext(ctx, r.pollInterval); err != nil {
			break
		}
	}

	log.Info("runner stopped")
}

// poll runs one iteration: fetch every pending job and execute the
// batch in order without re-polling. The has-work flag is consumed
// before the fetch, so a Wake that races an empty fetch is kept. No
// job is claimed while an earlier result is still unwritten.
func (r *Runner) poll(ctx context.Context) error {
	if err := r.settle(ctx); err != nil {
		return err
	}

	if !r.hasWork.Swap(false) {
		return nil
	}

	jobs, err := r.store.FindPending(ctx)
	if err != nil {
		r.hasWork.Store(true)
		metrics.StoreErrorsTotal.WithLabelValues("find_pending").Inc()
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	// more jobs may have been queued while this batch ran
	defer r.hasWork.Store(true)

	for _, job := range jobs {
		if !r.running.Load() || ctx.Err() != nil {
			return nil
		}
		if err := r.execute(ctx, job); err != nil {
			return err
		}
	}

	return nil
}

// execute claims, runs and finalizes one job. A job deleted while
// queued or running is skipped. Only store failures are returned.
func (r *Runner) execute(ctx context.Context, job *models.Job) error {
	// status writes must land even if shutdown begins mid-execution
	ctx = context.WithoutCancel(ctx)

	log.Info("running job", "job_id", job.ID, "name", job.Name, "command", job.Command)

	claimed, err := r.transition(ctx, job, models.StatusRunning)
	if errors.Is(err, errs.ErrNotFound) {
		log.Info("job cancelled before it started", "job_id", job.ID)
		return nil
	}
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("claim").Inc()
		return err
	}

	metrics.JobsRunning.Inc()
	start := time.Now()
	execErr := r.executor.Execute(claimed)
	elapsed := time.Since(start)
	metrics.JobsRunning.Dec()

	final := models.StatusSuccess
	if execErr != nil {
		final = models.StatusFailed
		log.Error("job failed", "job_id", job.ID, "duration", elapsed, "error", execErr)
	} else {
		log.Info("job completed successfully", "job_id", job.ID, "duration", elapsed)
	}

	metrics.JobRunsTotal.WithLabelValues(string(final)).Inc()
	metrics.JobRunDurationSeconds.WithLabelValues(string(final)).Observe(elapsed.Seconds())

	_, err = r.transition(ctx, claimed, final)
	if errors.Is(err, errs.ErrNotFound) {
		log.Info("job cancelled while running; result discarded", "job_id", job.ID, "status", final)
		return nil
	}
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("finalize").Inc()
		r.unsettled = &settlement{job: claimed, status: final}
		return err
	}

	return nil
}

// settle retries the final status write of the last executed job.
func (r *Runner) settle(ctx context.Context) error {
	if r.unsettled == nil {
		return nil
	}

	pending := r.unsettled
	_, err := r.transition(context.WithoutCancel(ctx), pending.job, pending.status)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		log.Info("job cancelled while running; result discarded", "job_id", pending.job.ID, "status", pending.status)
	case err != nil:
		metrics.StoreErrorsTotal.WithLabelValues("finalize").Inc()
		return err
	default:
		log.Info("job result recorded after retry", "job_id", pending.job.ID, "status", pending.status)
	}

	r.unsettled = nil
	return nil
}

func (r *Runner) transition(ctx context.Context, job *models.Job, next models.Status) (*models.Job, error) {
	// unreachable while callers follow the state machine
	if !job.Status.CanTransition(next) {
		return nil, errs.Validation("job %d: illegal transition %s -> %s", job.ID, job.Status, next)
	}

	updated, err := r.store.UpdateStatus(ctx, job.ID, next, r.now())
	if err != nil {
		return nil, err
	}

	r.bus.Publish(event.StatusChanged(updated))
	return updated, nil
}

// Recover fails every job a previous process left Running, so that at
// most one job is ever Running. It must be called before Start.
func (r *Runner) Recover(ctx context.Context, logPath func(*models.Job) string) error {
	stale, err := r.store.FindByStatus(ctx, models.StatusRunning)
	if err != nil {
		return err
	}

	for _, job := range stale {
		log.Warn("failing job interrupted by restart", "job_id", job.ID)

		if logPath != nil {
			appendLog(logPath(job), "Job interrupted: the service stopped while it was running")
		}

		if _, err := r.transition(ctx, job, models.StatusFailed); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return err
		}
	}

	return nil
}

func appendLog(path, line string) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Error("failed to open job log", "path", path, "error", err)
		return
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, line); err != nil {
		log.Error("failed to write job log", "path", path, "error", err)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
