// Package store persists jobs. It is the only component that talks to
// the database; the service and the runner go through the Store
// contract.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kiln-build/kiln/internal/models"
	"github.com/kiln-build/kiln/pkg/db"
	"github.com/kiln-build/kiln/pkg/errs"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

//go:generate mockgen -destination=../mocks/store_mock/store_mock.go -package=store_mock github.com/kiln-build/kiln/internal/store Store

// Store is the persistence contract for jobs. Engine failures are
// returned wrapped as errs.ErrStore; missing rows as errs.ErrNotFound.
type Store interface {
	// Insert assigns the id and both timestamps and persists the job.
	Insert(ctx context.Context, job *models.Job) (*models.Job, error)
	FindByID(ctx context.Context, id uint64) (*models.Job, error)
	UpdateStatus(ctx context.Context, id uint64, status models.Status, updatedAt time.Time) (*models.Job, error)
	DeleteByID(ctx context.Context, id uint64) (bool, error)
	// FindPending returns pending jobs oldest first (created_at, then id).
	FindPending(ctx context.Context) (models.Jobs, error)
	FindByStatus(ctx context.Context, status models.Status) (models.Jobs, error)
	// FindPage returns one page ordered by id descending plus the total
	// page count. pageIndex is zero-based.
	FindPage(ctx context.Context, pageSize, pageIndex int) (models.Jobs, int64, error)
}

// SQLStore implements Store on top of gorm.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

func New(conn *gorm.DB) *SQLStore {
	if conn == nil {
		panic("store requires a database connection")
	}
	return &SQLStore{db: conn, now: db.Now}
}

func (s *SQLStore) DB() *gorm.DB {
	return s.db
}

// Insert stores a copy of job and returns it with its assigned id.
// A zero CreatedAt is stamped with the current time.
func (s *SQLStore) Insert(ctx context.Context, job *models.Job) (*models.Job, error) {
	now := job.CreatedAt.UTC().Truncate(time.Microsecond)
	if job.CreatedAt.IsZero() {
		now = s.now()
	}

	created := &models.Job{
		Name:      job.Name,
		Command:   job.Command,
		Output:    job.Output,
		Status:    job.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if created.Status == "" {
		created.Status = models.StatusPending
	}

	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, errs.Store("insert job", err)
	}

	return created, nil
}

func (s *SQLStore) FindByID(ctx context.Context, id uint64) (*models.Job, error) {
	job := &models.Job{}

	err := s.db.WithContext(ctx).First(job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound(id)
	}
	if err != nil {
		return nil, errs.Store("find job", err)
	}

	return job, nil
}

func (s *SQLStore) UpdateStatus(ctx context.Context, id uint64, status models.Status, updatedAt time.Time) (*models.Job, error) {
	var job *models.Job

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Job{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": updatedAt.UTC(),
			})
		if result.Error != nil {
			return errs.Store("update job status", result.Error)
		}
		if result.RowsAffected == 0 {
			return errs.NotFound(id)
		}

		job = &models.Job{}
		if err := tx.First(job, "id = ?", id).Error; err != nil {
			return errs.Store("reload job", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return job, nil
}

func (s *SQLStore) DeleteByID(ctx context.Context, id uint64) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&models.Job{}, "id = ?", id)
	if result.Error != nil {
		return false, errs.Store("delete job", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *SQLStore) FindPending(ctx context.Context) (models.Jobs, error) {
	return s.FindByStatus(ctx, models.StatusPending)
}

func (s *SQLStore) FindByStatus(ctx context.Context, status models.Status) (models.Jobs, error) {
	jobs := make(models.Jobs, 0)

	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Order("id ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, errs.Store("find jobs by status", err)
	}

	return jobs, nil
}

func (s *SQLStore) FindPage(ctx context.Context, pageSize, pageIndex int) (models.Jobs, int64, error) {
	if pageSize < 1 {
		return nil, 0, errs.Validation("page size must be positive, got %d", pageSize)
	}
	if pageIndex < 0 {
		return nil, 0, errs.Validation("page index must not be negative, got %d", pageIndex)
	}

	var (
		q     = s.db.WithContext(ctx).Model(&models.Job{})
		total int64
		jobs  = make(models.Jobs, 0, pageSize)
	)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errs.Store("count jobs", err)
	}

	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(pageSize).
		Offset(pageIndex * pageSize).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, errs.Store("find job page", err)
	}

	pages := (total + int64(pageSize) - 1) / int64(pageSize)
	return jobs, pages, nil
}

// IsBusy reports whether err stems from sqlite lock contention, which
// clears up on its own and is worth a warning rather than an error.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
