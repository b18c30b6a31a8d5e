package event

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiln-build/kiln/internal/metrics"
	"github.com/kiln-build/kiln/internal/models"
	"github.com/kiln-build/kiln/pkg/log"
)

// Type represents the type of event.
type Type string

const (
	// TypeStatus is published for every job status change, including
	// submission and reset back to Pending.
	TypeStatus Type = "status"
	// TypeCancelled is published when a job record is removed.
	TypeCancelled Type = "cancelled"
	// TypeLagged tells a subscriber that Missed events were dropped
	// because its buffer was full.
	TypeLagged Type = "lagged"
)

const DefaultBufferSize = 100

// Event is a status notification. It is never persisted.
type Event struct {
	Type      Type          `json:"type"`
	JobID     uint64        `json:"job_id,omitempty"`
	Status    models.Status `json:"status,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Missed    uint64        `json:"missed,omitempty"`
}

// StatusChanged builds the event published after a transition.
func StatusChanged(job *models.Job) Event {
	return Event{
		Type:      TypeStatus,
		JobID:     job.ID,
		Status:    job.Status,
		Timestamp: time.Now().UTC(),
	}
}

// Cancelled builds the event published after a job is removed.
func Cancelled(id uint64) Event {
	return Event{
		Type:      TypeCancelled,
		JobID:     id,
		Timestamp: time.Now().UTC(),
	}
}

// Filter defines criteria for receiving events. Lagged notices are
// always delivered.
type Filter struct {
	JobID uint64
	Types []Type
}

// Bus fans events out to any number of subscribers. Publish never
// blocks; a subscriber that cannot keep up loses events and is told
// how many.
type Bus interface {
	Publish(e Event)
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, error)
}

type subscriber struct {
	id     uuid.UUID
	ch     chan Event
	filter Filter

	mu     sync.Mutex
	missed uint64
}

type bus struct {
	subscribers map[*subscriber]struct{}
	mu          sync.RWMutex
	size        int
}

type Option func(*bus)

// WithBufferSize sets the per-subscriber channel capacity.
func WithBufferSize(size int) Option {
	return func(b *bus) {
		if size > 0 {
			b.size = size
		}
	}
}

// New creates a new event bus.
func New(opts ...Option) Bus {
	b := &bus{
		subscribers: make(map[*subscriber]struct{}),
		size:        DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		if sub.filter.matches(e) {
			sub.deliver(e)
		}
	}
}

func (b *bus) Subscribe(ctx context.Context, filter Filter) (<-chan Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &subscriber{
		id:     uuid.New(),
		ch:     make(chan Event, b.size),
		filter: filter,
	}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	metrics.EventSubscribers.Inc()
	log.Debug("event subscriber attached", "subscriber", sub.id)

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers, sub)
		close(sub.ch)
		b.mu.Unlock()

		metrics.EventSubscribers.Dec()
		log.Debug("event subscriber detached", "subscriber", sub.id)
	}()

	return sub.ch, nil
}

// deliver must be called with the bus read lock held, which keeps the
// channel open for the duration of the send attempt.
func (s *subscriber) deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.missed > 0 {
		notice := Event{Type: TypeLagged, Timestamp: e.Timestamp, Missed: s.missed}
		select {
		case s.ch <- notice:
			s.missed = 0
		default:
			s.drop()
			return
		}
	}

	select {
	case s.ch <- e:
	default:
		s.drop()
	}
}

func (s *subscriber) drop() {
	s.missed++
	metrics.EventsDroppedTotal.Inc()
}

func (f Filter) matches(e Event) bool {
	if e.Type == TypeLagged {
		return true
	}
	if f.JobID != 0 && f.JobID != e.JobID {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, e.Type) {
		return false
	}
	return true
}
