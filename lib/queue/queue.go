// Package queue provides a bounded Multi-Producer Multi-Consumer queue with a non-blocking push.
//
// Features and Guarantees:
//
//   - Bounded: the capacity is fixed at construction, a full queue rejects new items
//     instead of growing or blocking the producer
//   - Non-Blocking writes: TryPush never waits, rejected items are counted
//   - Thread-Safe: any number of goroutines may push and receive concurrently
//   - FIFO: items are delivered in the order they were accepted
//   - Draining Close: after Close, items already accepted are still delivered and the
//     Recv() channel is closed once it is empty
package queue

import (
	"sync"
	"sync/atomic"
)

// Bounded is a fixed capacity queue backed by a buffered channel
type Bounded[T any] struct {
	items   chan T
	dropped atomic.Uint64

	// mu guards closed so that no push happens on the closed channel
	mu     sync.RWMutex
	closed bool
}

// NewBounded creates a queue that holds at most capacity items.
// A capacity below 1 is raised to 1.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{
		items: make(chan T, capacity),
	}
}

// TryPush adds an item to the queue without blocking.
// Returns false if the queue is full or closed, in which case the item is discarded.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *Bounded[T]) TryPush(item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.items <- item:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Recv returns a receive-only channel for consuming from the queue.
// The channel is closed after Close once all accepted items were received,
// so consumers can simply range over it.
func (q *Bounded[T]) Recv() <-chan T {
	return q.items
}

// Close closes the queue, preventing further writes.
// Any items already in the queue will still be delivered to the consumers.
// Calling Close more than once is safe.
func (q *Bounded[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.items)
	}
}

// IsClosed returns true if the queue is closed.
func (q *Bounded[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Len returns the number of items currently waiting in the queue.
func (q *Bounded[T]) Len() int {
	return len(q.items)
}

// Cap returns the capacity of the queue.
func (q *Bounded[T]) Cap() int {
	return cap(q.items)
}

// Dropped returns the number of items rejected because the queue was full.
// Pushes after Close are not counted.
func (q *Bounded[T]) Dropped() uint64 {
	return q.dropped.Load()
}
