// Package workpool runs units of work on a fixed set of goroutines and
// delivers their outcomes to a single consumer. Panics are contained per
// unit of work and per goroutine, and sends to a consumer that has stopped
// listening fail with failure.KindChannelSend instead of blocking forever.
package workpool

import (
	"sync"
	"sync/atomic"

	"github.com/isseis/go-wcc/internal/failure"
)

// Channel is a multi-producer, single-consumer channel. Producers obtain a
// Sender each; the stream ends once every Sender is closed. The consumer may
// close its side early, after which every Send fails.
type Channel[T any] struct {
	ch   chan T
	done chan struct{}

	mu       sync.Mutex
	senders  int
	drained  bool
	doneOnce sync.Once
}

// NewChannel returns a Channel buffering up to capacity values. A capacity
// of zero makes every Send wait for the consumer.
func NewChannel[T any](capacity int) *Channel[T] {
	return &Channel[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Sender registers a new producer. Senders must be created before the last
// existing Sender is closed; a Sender created afterwards fails every Send.
func (c *Channel[T]) Sender() *Sender[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Sender[T]{c: c}
	if c.drained {
		s.closed.Store(true)
		return s
	}
	c.senders++
	return s
}

// Recv blocks until a value arrives or every Sender has been closed.
func (c *Channel[T]) Recv() (T, bool) {
	v, ok := <-c.ch
	return v, ok
}

// CloseReceiver tells producers that nothing will be received any more.
// Pending and future sends return a KindChannelSend failure.
func (c *Channel[T]) CloseReceiver() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Channel[T]) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.senders--
	if c.senders == 0 {
		c.drained = true
		close(c.ch)
	}
}

// Sender is one producer's handle on a Channel. A Sender is meant to be
// used by a single goroutine.
type Sender[T any] struct {
	c      *Channel[T]
	closed atomic.Bool
	once   sync.Once
}

// Send delivers v, blocking while the buffer is full. It fails with
// KindChannelSend if the receiver has closed or the Sender itself is closed.
func (s *Sender[T]) Send(v T) error {
	if s.closed.Load() {
		return failure.FromSend(failure.SendError[T]{Value: v})
	}

	select {
	case <-s.c.done:
		return failure.FromSend(failure.SendError[T]{Value: v})
	default:
	}

	select {
	case s.c.ch <- v:
		return nil
	case <-s.c.done:
		return failure.FromSend(failure.SendError[T]{Value: v})
	}
}

// Close releases the Sender. It is safe to call more than once.
func (s *Sender[T]) Close() {
	s.once.Do(func() {
		if s.closed.Swap(true) {
			// Registered after the channel drained; nothing to release.
			return
		}
		s.c.release()
	})
}
