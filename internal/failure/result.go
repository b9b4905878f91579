package failure

import "fmt"

// Result is the outcome of an operation producing a T: either a value or
// exactly one failure. A Result holds no reference to shared state beyond
// what T itself holds, so it can be handed from one goroutine to another
// over a channel as is.
type Result[T any] struct {
	value T
	err   *Error
}

// Ok returns a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail returns a failed Result. A nil err is treated as a programming error.
func Fail[T any](err *Error) Result[T] {
	if err == nil {
		panic("failure.Fail called with nil error")
	}
	return Result[T]{err: err}
}

// Of builds a Result from the conventional (value, error) pair. err must be
// nil or a *Error; a foreign error here means a boundary skipped adaptation,
// and Of panics.
func Of[T any](v T, err error) Result[T] {
	if err == nil {
		return Ok(v)
	}
	f, ok := adopt(err)
	if !ok {
		panic(fmt.Sprintf("failure.Of: unclassified error %T: %v", err, err))
	}
	return Fail[T](f)
}

// IsOk reports whether the Result holds a value.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Value returns the value, or the zero T on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the failure, or nil on success.
func (r Result[T]) Err() *Error {
	return r.err
}

// Get returns the Result as a (value, error) pair. The error is a nil
// interface on success.
func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// Then runs fn on the value of r, or propagates r's failure without calling fn.
func Then[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return fn(r.value)
}

// Map transforms the value of a successful Result.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return Ok(fn(r.value))
}
