package workpool

import (
	"github.com/isseis/go-wcc/internal/failure"
)

// Handle is the join handle of a goroutine started with Go.
type Handle struct {
	done chan struct{}
	err  error
}

// Go runs fn on a new goroutine. A panic, or runtime.Goexit, inside fn does
// not escape: Join reports it as a KindConcurrency failure.
func Go(fn func() error) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)

		returned := false
		defer func() {
			if r := recover(); r != nil || !returned {
				h.err = failure.FromPanic(r)
			}
		}()

		h.err = fn()
		returned = true
	}()
	return h
}

// Join waits for the goroutine to finish and returns its error.
func (h *Handle) Join() error {
	<-h.done
	return h.err
}
