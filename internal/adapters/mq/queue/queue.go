// Package queue provides the ordered buffer between message ingestion and
// the rating worker.
//
// The queue is the serialization point of the service: many bus deliveries
// may arrive concurrently, but everything funnels into one FIFO consumed
// by a single worker.
package queue

import (
	"context"
	"sync"

	"github.com/FAForever/faf-rating-service/internal/domain/model"
	"github.com/FAForever/faf-rating-service/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10_000
)

// Queue provides enqueue and channel-based dequeue of rating requests.
type Queue interface {
	// Enqueue adds a request to the queue. It fails when the queue is
	// closed or full; the request is not accepted in either case.
	Enqueue(ctx context.Context, req model.RatingRequest) error

	// Dequeue returns a channel yielding requests in arrival order.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan model.RatingRequest

	// Len returns the current backlog size.
	Len() int

	// Close stops accepting requests. Already-queued requests remain
	// dequeueable, which is what lets shutdown drain the backlog.
	Close() error
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	requests chan model.RatingRequest
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates an in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.requests = make(chan model.RatingRequest, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateBacklogSize(0)

	return q
}

// Enqueue adds a request to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, req model.RatingRequest) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordEnqueueError()
		return ErrClosed
	}

	select {
	case q.requests <- req:
		metrics.RecordEnqueue()
		metrics.UpdateBacklogSize(len(q.requests))
		return nil
	case <-ctx.Done():
		metrics.RecordEnqueueError()
		return ctx.Err()
	default:
		metrics.RecordEnqueueError()
		return ErrFull
	}
}

// Dequeue returns a channel yielding requests in arrival order. The
// returned channel closes when the queue is closed and fully drained, or
// when ctx is cancelled.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.RatingRequest {
	out := make(chan model.RatingRequest)
	go func() {
		defer close(out)
		for req := range q.requests {
			select {
			case out <- req:
				metrics.RecordDequeue()
				metrics.UpdateBacklogSize(len(q.requests))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current backlog size.
func (q *InMemoryQueue) Len() int {
	return len(q.requests)
}

// Close stops accepting requests and lets consumers drain the remainder.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.requests)
	q.closed = true

	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
