// Package guard provides a lock-protected value that becomes poisoned when a
// holder panics while holding it. A poisoned guard refuses all further
// access with a failure.KindLockPoisoned error instead of handing out a value
// that may have been left half-updated.
package guard

import (
	"sync"

	"github.com/isseis/go-wcc/internal/failure"
)

// Mutex guards a value of type T.
type Mutex[T any] struct {
	mu       sync.Mutex
	value    T
	poisoned bool
}

// New returns a Mutex holding v.
func New[T any](v T) *Mutex[T] {
	return &Mutex[T]{value: v}
}

// Do runs fn with exclusive access to the guarded value.
//
// If the guard is poisoned, fn is not called and a KindLockPoisoned failure
// is returned. If fn panics, the guard is poisoned, the lock is released and
// the panic continues up the caller's stack.
func (m *Mutex[T]) Do(fn func(*T) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned {
		return failure.FromPoisoned(failure.PoisonError[T]{Guarded: m.value})
	}

	completed := false
	defer func() {
		if !completed {
			m.poisoned = true
		}
	}()

	err := fn(&m.value)
	completed = true
	return err
}

// Snapshot returns a copy of the guarded value. The copy is shallow: maps and
// slices inside T are shared with the guard.
func (m *Mutex[T]) Snapshot() (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned {
		var zero T
		return zero, failure.FromPoisoned(failure.PoisonError[T]{Guarded: m.value})
	}
	return m.value, nil
}

// Poisoned reports whether a previous holder panicked.
func (m *Mutex[T]) Poisoned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poisoned
}
