// Package queue implements the bounded message queue that decouples the
// Kafka workers from the WebSocket event loop: a thread-safe, bounded
// FIFO of opaque byte payloads with a blocking push, a non-blocking pop,
// and a terminal closed state.
//
// Push applies backpressure (it blocks while the queue is full); TryPop
// never blocks, since the caller is the event-loop dispatcher and must
// stay responsive to client I/O. The asymmetry is deliberate, not an
// oversight.
package queue

import (
	"context"
	"sync"
)

// Queue is a bounded FIFO of byte-slice payloads. The zero value is not
// usable; construct with New.
type Queue struct {
	items    chan []byte
	closed   chan struct{}
	closeOne sync.Once
}

// New creates an empty queue with the given capacity. Capacity must be
// greater than zero.
func New(capacity int) *Queue {
	if capacity <= 0 {
		panic("queue: capacity must be > 0")
	}
	return &Queue{
		items:  make(chan []byte, capacity),
		closed: make(chan struct{}),
	}
}

// Push copies payload into the queue, blocking until space is available
// or the queue is closed. It reports whether the payload was accepted;
// false means the queue was (or became) closed, or ctx was done before
// space became available.
func (q *Queue) Push(ctx context.Context, payload []byte) bool {
	// Checked up front so a push that starts after Close has been
	// called never races the main select below: with both q.items and
	// q.closed ready, select picks between them at random, which would
	// let a post-close push succeed about half the time.
	select {
	case <-q.closed:
		return false
	default:
	}

	cp := make([]byte, len(payload))
	copy(cp, payload)

	select {
	case q.items <- cp:
		return true
	case <-q.closed:
		return false
	case <-ctx.Done():
		return false
	}
}

// TryPop returns the oldest payload in the queue without blocking.
// Ownership of the returned slice transfers to the caller. ok is false
// when the queue is currently empty, whether or not it is closed.
func (q *Queue) TryPop() (payload []byte, ok bool) {
	select {
	case v, open := <-q.items:
		if !open {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}

// Close marks the queue closed. Idempotent: calling Close more than once
// has no additional effect. After Close, every blocked or future Push
// returns false; TryPop continues to drain whatever was already
// buffered, then reports empty.
func (q *Queue) Close() {
	q.closeOne.Do(func() {
		close(q.closed)
	})
}

// Destroy closes the queue and releases every residual payload. Safe to
// call even if the queue was never closed.
func (q *Queue) Destroy() {
	q.Close()
	for {
		select {
		case <-q.items:
		default:
			return
		}
	}
}

// Len reports the number of payloads currently buffered.
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap reports the queue's fixed capacity.
func (q *Queue) Cap() int {
	return cap(q.items)
}
