package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kiln-build/kiln/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertEmpty(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New()
	first, err := b.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, Filter{})
	require.NoError(t, err)

	b.Publish(Event{Type: TypeStatus, JobID: 7, Status: models.StatusRunning})

	for _, ch := range []<-chan Event{first, second} {
		e := receive(t, ch)
		assert.Equal(t, uint64(7), e.JobID)
		assert.Equal(t, models.StatusRunning, e.Status)
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestLateSubscriberDoesNotReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New()
	b.Publish(Event{Type: TypeStatus, JobID: 1, Status: models.StatusPending})

	ch, err := b.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	assertEmpty(t, ch)
}

func TestSlowSubscriberIsToldItLagged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New(WithBufferSize(2))
	slow, err := b.Subscribe(ctx, Filter{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for id := uint64(1); id <= 5; id++ {
			b.Publish(Event{Type: TypeStatus, JobID: id, Status: models.StatusPending})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}

	assert.Equal(t, uint64(1), receive(t, slow).JobID)
	assert.Equal(t, uint64(2), receive(t, slow).JobID)
	assertEmpty(t, slow)

	b.Publish(Event{Type: TypeStatus, JobID: 6, Status: models.StatusRunning})

	notice := receive(t, slow)
	assert.Equal(t, TypeLagged, notice.Type)
	assert.Equal(t, uint64(3), notice.Missed)
	assert.Equal(t, uint64(6), receive(t, slow).JobID)
}

func TestFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New()
	byJob, err := b.Subscribe(ctx, Filter{JobID: 2})
	require.NoError(t, err)
	byType, err := b.Subscribe(ctx, Filter{Types: []Type{TypeCancelled}})
	require.NoError(t, err)

	b.Publish(Event{Type: TypeStatus, JobID: 1, Status: models.StatusRunning})
	b.Publish(Event{Type: TypeStatus, JobID: 2, Status: models.StatusRunning})
	b.Publish(Event{Type: TypeCancelled, JobID: 3})

	assert.Equal(t, uint64(2), receive(t, byJob).JobID)
	assertEmpty(t, byJob)

	assert.Equal(t, uint64(3), receive(t, byType).JobID)
	assertEmpty(t, byType)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	b := New()
	ch, err := b.Subscribe(ctx, Filter{})
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// publishing after the subscriber left must not panic
	b.Publish(Event{Type: TypeStatus, JobID: 1})
}

func TestSubscribeWithDoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Subscribe(ctx, Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New(WithBufferSize(1))
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			subCtx, subCancel := context.WithCancel(ctx)
			defer subCancel()
			ch, err := b.Subscribe(subCtx, Filter{})
			if err != nil {
				return
			}
			for j := 0; j < 10; j++ {
				select {
				case <-ch:
				default:
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(Event{Type: TypeStatus, JobID: uint64(j)})
			}
		}()
	}

	wg.Wait()
}
