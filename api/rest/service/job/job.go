package job

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/internal/metrics"
	"github.com/kiln-build/kiln/internal/models"
	"github.com/kiln-build/kiln/internal/recipe"
	"github.com/kiln-build/kiln/internal/store"
	"github.com/kiln-build/kiln/pkg/db"
	"github.com/kiln-build/kiln/pkg/errs"
	"github.com/kiln-build/kiln/pkg/log"
	"github.com/pkg/errors"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Job interface {
	Submit(context.Context, *SubmitRequest) (*models.Job, error)
	Cancel(context.Context, uint64) (bool, error)
	Reset(context.Context, uint64) (*models.Job, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Get(context.Context, uint64) (*models.Job, error)
	Recipes(ctx context.Context, match string) (iter.Seq[string], error)
}

// Waker is notified whenever a job becomes Pending.
type Waker interface {
	Wake()
}

// RecipeLister reports the recipes the command runner knows about.
type RecipeLister interface {
	List(ctx context.Context) (iter.Seq[string], error)
}

type jobService struct {
	store    store.Store
	waker    Waker
	bus      event.Bus
	recipes  RecipeLister
	pageSize int
	now      func() time.Time
}

// Service wires the job operations to their collaborators. A
// non-positive pageSize falls back to DefaultPageSize.
func Service(st store.Store, waker Waker, bus event.Bus, recipes RecipeLister, pageSize int) Job {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if bus == nil {
		bus = event.New()
	}

	return &jobService{
		store:    st,
		waker:    waker,
		bus:      bus,
		recipes:  recipes,
		pageSize: min(pageSize, MaxPageSize),
		now:      db.Now,
	}
}

type SubmitRequest struct {
	Name    string  `json:"name"`
	Command string  `json:"command"`
	Output  *string `json:"output,omitempty"`
}

func (j *jobService) Submit(ctx context.Context, req *SubmitRequest) (*models.Job, error) {
	if req == nil {
		return nil, errs.Validation("request body is required")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.Validation("name is required")
	}

	command := strings.TrimSpace(req.Command)
	if command == "" {
		return nil, errs.Validation("command is required")
	}

	var output *string
	if req.Output != nil {
		if trimmed := strings.TrimSpace(*req.Output); trimmed != "" {
			output = &trimmed
		}
	}

	now := j.now()
	job, err := j.store.Insert(ctx, &models.Job{
		Name:      name,
		Command:   command,
		Output:    output,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("insert").Inc()
		return nil, err
	}

	log.Info("job submitted", "job_id", job.ID, "name", job.Name, "command", job.Command)
	metrics.JobsSubmittedTotal.Inc()

	j.bus.Publish(event.StatusChanged(job))
	j.wake()

	return job, nil
}

// Cancel removes the job whatever its status. A Running job keeps
// executing; its result is discarded.
func (j *jobService) Cancel(ctx context.Context, id uint64) (bool, error) {
	deleted, err := j.store.DeleteByID(ctx, id)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("delete").Inc()
		return false, err
	}

	if deleted {
		log.Info("job cancelled", "job_id", id)
		j.bus.Publish(event.Cancelled(id))
	}

	return deleted, nil
}

// Reset moves a Failed job created today (UTC) back to Pending. The
// creation time is kept, so the job resumes its original queue
// position.
func (j *jobService) Reset(ctx context.Context, id uint64) (*models.Job, error) {
	job, err := j.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !job.Status.CanTransition(models.StatusPending) {
		return nil, errs.Validation("job %d is %s; only failed jobs can be reset", id, job.Status)
	}

	now := j.now()
	if !job.SameDay(now) {
		return nil, errs.Validation("job %d was created on %s; only jobs created today can be reset",
			id, job.CreatedAt.UTC().Format(time.DateOnly))
	}

	job, err = j.store.UpdateStatus(ctx, id, models.StatusPending, now)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("reset").Inc()
		return nil, err
	}

	log.Info("job reset", "job_id", id)

	j.bus.Publish(event.StatusChanged(job))
	j.wake()

	return job, nil
}

type ListRequest struct {
	// Page is 1-indexed.
	Page     int
	PageSize int
}

type ListResponse struct {
	Jobs  models.Jobs `json:"jobs" yaml:"jobs"`
	Pages int64       `json:"pages" yaml:"pages"`
}

// List returns one page of jobs, newest first.
func (j *jobService) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req == nil {
		req = &ListRequest{Page: 1}
	}
	if req.Page < 1 {
		return nil, errs.Validation("page must be at least 1, got %d", req.Page)
	}

	size := req.PageSize
	if size <= 0 {
		size = j.pageSize
	}
	size = min(size, MaxPageSize)

	jobs, pages, err := j.store.FindPage(ctx, size, req.Page-1)
	if err != nil {
		return nil, err
	}

	return &ListResponse{Jobs: jobs, Pages: pages}, nil
}

func (j *jobService) Get(ctx context.Context, id uint64) (*models.Job, error) {
	return j.store.FindByID(ctx, id)
}

// Recipes lists the runner's recipes, optionally filtered by a glob
// on the recipe name.
func (j *jobService) Recipes(ctx context.Context, match string) (iter.Seq[string], error) {
	if j.recipes == nil {
		return nil, errs.Execution("list recipes", errors.New("no recipe lister configured"))
	}

	seq, err := j.recipes.List(ctx)
	if err != nil {
		log.Error("failed to list recipes", "error", err)
		return nil, err
	}

	return recipe.Match(seq, match)
}

func (j *jobService) wake() {
	if j.waker != nil {
		j.waker.Wake()
	}
}
