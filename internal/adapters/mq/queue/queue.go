// Package queue provides the bounded in-memory queue that carries completed
// sessions to the analysis workers. Completion must never block on analysis,
// so enqueue is non-blocking and reports a full queue to the caller.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/crux/internal/domain/buffer"
	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/pkg/metrics"
)

const defaultCapacity = 1024

// Job is one completed session awaiting analysis. The buffer and tension
// events are owned by the job once enqueued; nothing else mutates them.
type Job struct {
	SessionID  uuid.UUID
	Buffer     *buffer.Buffer
	Tension    []model.TensionEvent
	EnqueuedAt time.Time
}

// Queue is the contract between session completion and the worker pool.
type Queue interface {
	// Enqueue adds a job. It returns ErrFull when the queue is at capacity
	// and ErrClosed after Close; it never blocks.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns a channel delivering jobs in order. The channel is
	// closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of jobs waiting.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Already queued jobs are still delivered.
	Close() error
}

// Memory implements Queue on a buffered channel.
type Memory struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*Memory)(nil)

// NewMemory creates a queue with the configured capacity.
func NewMemory(opts ...Option) *Memory {
	q := &Memory{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a job without blocking.
func (q *Memory) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now()
	}
	select {
	case q.jobs <- j:
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

// Dequeue returns the delivery channel. Each call spawns an independent
// forwarder; jobs are delivered to exactly one consumer.
func (q *Memory) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of jobs waiting.
func (q *Memory) Len(ctx context.Context) int {
	return len(q.jobs)
}

// Close stops accepting jobs. Idempotent.
func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}
