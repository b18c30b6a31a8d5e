package runner

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/internal/mocks/store_mock"
	"github.com/kiln-build/kiln/internal/models"
	"github.com/kiln-build/kiln/internal/store"
	"github.com/kiln-build/kiln/internal/store/storetest"
	"github.com/kiln-build/kiln/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testPoll = 10 * time.Millisecond

// scriptedExecutor runs a per-job hook and records execution order.
type scriptedExecutor struct {
	mu    sync.Mutex
	order []uint64
	hook  func(job *models.Job) error
}

func (e *scriptedExecutor) Execute(job *models.Job) error {
	e.mu.Lock()
	e.order = append(e.order, job.ID)
	hook := e.hook
	e.mu.Unlock()

	if hook != nil {
		return hook(job)
	}
	return nil
}

func (e *scriptedExecutor) executed() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint64(nil), e.order...)
}

func submit(t *testing.T, st store.Store, name string) *models.Job {
	t.Helper()
	job, err := st.Insert(context.Background(), &models.Job{Name: name, Command: "build " + name})
	require.NoError(t, err)
	return job
}

func statusOf(t *testing.T, st store.Store, id uint64) models.Status {
	t.Helper()
	job, err := st.FindByID(context.Background(), id)
	require.NoError(t, err)
	return job.Status
}

func startRunner(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	t.Cleanup(func() {
		r.Stop()
		cancel()
		r.Wait()
	})
}

func TestRunnerExecutesInSubmissionOrderOneAtATime(t *testing.T) {
	st := storetest.Open(t)
	a := submit(t, st, "a")
	b := submit(t, st, "b")
	c := submit(t, st, "c")

	var violations []string
	var mu sync.Mutex
	exec := &scriptedExecutor{}
	exec.hook = func(job *models.Job) error {
		running, err := st.FindByStatus(context.Background(), models.StatusRunning)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		if len(running) != 1 || running[0].ID != job.ID {
			violations = append(violations, "more than one running job")
		}
		if prior, err := st.FindByID(context.Background(), a.ID); job.ID == b.ID && (err != nil || !prior.Status.IsFinal()) {
			violations = append(violations, "b started before a finished")
		}
		if job.ID == b.ID {
			return errors.New("boom")
		}
		return nil
	}

	r := New(st, exec, event.New(), testPoll)
	startRunner(t, r)

	require.Eventually(t, func() bool { return statusOf(t, st, c.ID).IsFinal() }, 2*time.Second, testPoll)

	assert.Equal(t, []uint64{a.ID, b.ID, c.ID}, exec.executed())
	assert.Empty(t, violations)
	assert.Equal(t, models.StatusSuccess, statusOf(t, st, a.ID))
	assert.Equal(t, models.StatusFailed, statusOf(t, st, b.ID))
	assert.Equal(t, models.StatusSuccess, statusOf(t, st, c.ID))
}

func TestRunnerPublishesTransitions(t *testing.T) {
	st := storetest.Open(t)
	bus := event.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx, event.Filter{})
	require.NoError(t, err)

	job := submit(t, st, "a")
	startRunner(t, New(st, &scriptedExecutor{}, bus, testPoll))

	var got []models.Status
	for len(got) < 2 {
		select {
		case e := <-events:
			assert.Equal(t, job.ID, e.JobID)
			got = append(got, e.Status)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []models.Status{models.StatusRunning, models.StatusSuccess}, got)
}

func TestRunnerToleratesCancelWhileRunning(t *testing.T) {
	st := storetest.Open(t)
	a := submit(t, st, "a")
	b := submit(t, st, "b")

	exec := &scriptedExecutor{}
	exec.hook = func(job *models.Job) error {
		if job.ID == a.ID {
			_, err := st.DeleteByID(context.Background(), a.ID)
			return err
		}
		return nil
	}

	startRunner(t, New(st, exec, event.New(), testPoll))

	require.Eventually(t, func() bool { return statusOf(t, st, b.ID) == models.StatusSuccess }, 2*time.Second, testPoll)

	_, err := st.FindByID(context.Background(), a.ID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestRunnerSkipsJobCancelledWhileQueued(t *testing.T) {
	st := storetest.Open(t)
	a := submit(t, st, "a")
	b := submit(t, st, "b")
	c := submit(t, st, "c")

	exec := &scriptedExecutor{}
	exec.hook = func(job *models.Job) error {
		if job.ID == a.ID {
			_, err := st.DeleteByID(context.Background(), b.ID)
			return err
		}
		return nil
	}

	startRunner(t, New(st, exec, event.New(), testPoll))

	require.Eventually(t, func() bool { return statusOf(t, st, c.ID) == models.StatusSuccess }, 2*time.Second, testPoll)
	assert.Equal(t, []uint64{a.ID, c.ID}, exec.executed())
}

func TestRunnerRepicksResetJob(t *testing.T) {
	st := storetest.Open(t)
	job := submit(t, st, "flaky")

	var attempts int
	var mu sync.Mutex
	exec := &scriptedExecutor{}
	exec.hook = func(*models.Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("first attempt fails")
		}
		return nil
	}

	r := New(st, exec, event.New(), testPoll)
	startRunner(t, r)

	require.Eventually(t, func() bool { return statusOf(t, st, job.ID) == models.StatusFailed }, 2*time.Second, testPoll)

	_, err := st.UpdateStatus(context.Background(), job.ID, models.StatusPending, time.Now().UTC())
	require.NoError(t, err)
	r.Wake()

	require.Eventually(t, func() bool { return statusOf(t, st, job.ID) == models.StatusSuccess }, 2*time.Second, testPoll)
	assert.Equal(t, []uint64{job.ID, job.ID}, exec.executed())
}

func TestPollSkipsStoreUntilWoken(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store_mock.NewMockStore(ctrl)
	r := New(st, &scriptedExecutor{}, event.New(), testPoll)
	ctx := context.Background()

	st.EXPECT().FindPending(gomock.Any()).Return(models.Jobs{}, nil).Times(2)

	require.NoError(t, r.poll(ctx))
	// has-work was cleared by the empty fetch
	require.NoError(t, r.poll(ctx))
	require.NoError(t, r.poll(ctx))

	r.Wake()
	require.NoError(t, r.poll(ctx))
}

func TestPollKeepsWorkFlagOnStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store_mock.NewMockStore(ctrl)
	r := New(st, &scriptedExecutor{}, event.New(), testPoll)
	ctx := context.Background()

	failure := errs.Store("find jobs by status", errors.New("disk I/O error"))
	gomock.InOrder(
		st.EXPECT().FindPending(gomock.Any()).Return(nil, failure),
		st.EXPECT().FindPending(gomock.Any()).Return(models.Jobs{}, nil),
	)

	assert.True(t, errors.Is(r.poll(ctx), errs.ErrStore))
	require.NoError(t, r.poll(ctx))
}

func TestPollAbortsBatchOnStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store_mock.NewMockStore(ctrl)
	exec := &scriptedExecutor{}
	r := New(st, exec, event.New(), testPoll)
	ctx := context.Background()

	a := &models.Job{ID: 1, Status: models.StatusPending}
	b := &models.Job{ID: 2, Status: models.StatusPending}

	st.EXPECT().FindPending(gomock.Any()).Return(models.Jobs{a, b}, nil)
	st.EXPECT().UpdateStatus(gomock.Any(), uint64(1), models.StatusRunning, gomock.Any()).
		Return(nil, errs.Store("update job status", errors.New("database is closed")))

	assert.Error(t, r.poll(ctx))
	assert.Empty(t, exec.executed())
	// the iteration is retried on the next tick
	assert.True(t, r.hasWork.Load())
}

func TestPollHoldsQueueUntilResultIsRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store_mock.NewMockStore(ctrl)
	exec := &scriptedExecutor{}
	r := New(st, exec, event.New(), testPoll)
	ctx := context.Background()

	a := &models.Job{ID: 1, Status: models.StatusPending}
	b := &models.Job{ID: 2, Status: models.StatusPending}
	locked := errs.Store("update job status", errors.New("database is locked"))

	gomock.InOrder(
		st.EXPECT().FindPending(gomock.Any()).Return(models.Jobs{a, b}, nil),
		st.EXPECT().UpdateStatus(gomock.Any(), uint64(1), models.StatusRunning, gomock.Any()).
			Return(&models.Job{ID: 1, Status: models.StatusRunning}, nil),
		st.EXPECT().UpdateStatus(gomock.Any(), uint64(1), models.StatusSuccess, gomock.Any()).
			Return(nil, locked).Times(2),
		st.EXPECT().UpdateStatus(gomock.Any(), uint64(1), models.StatusSuccess, gomock.Any()).
			Return(&models.Job{ID: 1, Status: models.StatusSuccess}, nil),
		st.EXPECT().FindPending(gomock.Any()).Return(models.Jobs{b}, nil),
		st.EXPECT().UpdateStatus(gomock.Any(), uint64(2), models.StatusRunning, gomock.Any()).
			Return(&models.Job{ID: 2, Status: models.StatusRunning}, nil),
		st.EXPECT().UpdateStatus(gomock.Any(), uint64(2), models.StatusSuccess, gomock.Any()).
			Return(&models.Job{ID: 2, Status: models.StatusSuccess}, nil),
	)

	assert.True(t, errors.Is(r.poll(ctx), errs.ErrStore))
	assert.Equal(t, []uint64{1}, exec.executed())

	// job 1 is still Running in the store, so job 2 must wait
	assert.True(t, errors.Is(r.poll(ctx), errs.ErrStore))
	assert.Equal(t, []uint64{1}, exec.executed())

	require.NoError(t, r.poll(ctx))
	assert.Equal(t, []uint64{1, 2}, exec.executed())
	assert.Nil(t, r.unsettled)
}

func TestSettleDropsResultOfCancelledJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store_mock.NewMockStore(ctrl)
	r := New(st, &scriptedExecutor{}, event.New(), testPoll)
	r.hasWork.Store(false)
	r.unsettled = &settlement{job: &models.Job{ID: 4, Status: models.StatusRunning}, status: models.StatusFailed}

	st.EXPECT().UpdateStatus(gomock.Any(), uint64(4), models.StatusFailed, gomock.Any()).
		Return(nil, errs.NotFound(4))

	require.NoError(t, r.poll(context.Background()))
	assert.Nil(t, r.unsettled)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store_mock.NewMockStore(ctrl)
	r := New(st, &scriptedExecutor{}, event.New(), testPoll)

	_, err := r.transition(context.Background(), &models.Job{ID: 5, Status: models.StatusSuccess}, models.StatusRunning)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestStopEndsLoop(t *testing.T) {
	st := storetest.Open(t)
	r := New(st, &scriptedExecutor{}, event.New(), testPoll)
	r.Start(context.Background())

	r.Stop()

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestWaitWithoutStartReturns(t *testing.T) {
	r := New(storetest.Open(t), &scriptedExecutor{}, nil, 0)
	r.Wait()
	assert.Equal(t, DefaultPollInterval, r.pollInterval)
}

func TestRecoverFailsStaleRunningJobs(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	logDir := t.TempDir()

	stale := submit(t, st, "stale")
	_, err := st.UpdateStatus(ctx, stale.ID, models.StatusRunning, time.Now().UTC())
	require.NoError(t, err)
	waiting := submit(t, st, "waiting")

	r := New(st, &scriptedExecutor{}, event.New(), testPoll)
	require.NoError(t, r.Recover(ctx, func(job *models.Job) string {
		return filepath.Join(logDir, job.Month()+".log")
	}))

	assert.Equal(t, models.StatusFailed, statusOf(t, st, stale.ID))
	assert.Equal(t, models.StatusPending, statusOf(t, st, waiting.ID))
	assert.FileExists(t, filepath.Join(logDir, stale.Month()+".log"))
}
