package failure

import (
	"errors"
	"fmt"
)

// PrefixError reports that Root is not a prefix of Path.
type PrefixError struct {
	Root string
	Path string
}

func (e *PrefixError) Error() string {
	return fmt.Sprintf("prefix %q not found in path %q", e.Root, e.Path)
}

// PoisonError is the observation of a guard whose previous holder panicked.
// Guarded is the value the guard protects; it is not trusted.
type PoisonError[T any] struct {
	Guarded T
}

func (e PoisonError[T]) Error() string {
	return "poisoned lock: another holder panicked while holding it"
}

// SendError reports a value that could not be delivered because the
// receiving side of a channel was already closed.
type SendError[T any] struct {
	Value T
}

func (e SendError[T]) Error() string {
	return "sending on a closed channel"
}

// adopt returns err as a failure when it already is one, so that a second
// adaptation never re-classifies.
func adopt(err error) (*Error, bool) {
	var f *Error
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func wrapForeign(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	if f, ok := adopt(err); ok {
		return f
	}
	return Wrap(kind, err)
}

// FromIO classifies a filesystem error as KindFileIO.
func FromIO(err error) *Error {
	return wrapForeign(KindFileIO, err)
}

// FromPathPrefix classifies a prefix-stripping error as KindPathPrefix.
func FromPathPrefix(err error) *Error {
	return wrapForeign(KindPathPrefix, err)
}

// FromJSON classifies a JSON decode error as KindJSONDecode.
func FromJSON(err error) *Error {
	return wrapForeign(KindJSONDecode, err)
}

// FromCSV classifies a CSV write error as KindCSVWrite.
func FromCSV(err error) *Error {
	return wrapForeign(KindCSVWrite, err)
}

// FromTemplate classifies a template parse or execution error as
// KindTemplateRender.
func FromTemplate(err error) *Error {
	return wrapForeign(KindTemplateRender, err)
}

// FromPoisoned classifies a poisoned guard as KindLockPoisoned. The guarded
// value is dropped.
func FromPoisoned[T any](_ PoisonError[T]) *Error {
	return New(KindLockPoisoned)
}

// FromPanic classifies a recovered panic value of any shape as
// KindConcurrency. The payload is dropped; panic values carry no structure
// that could be relied on.
func FromPanic(_ any) *Error {
	return New(KindConcurrency)
}

// FromSend classifies an undeliverable value as KindChannelSend. The value is
// dropped.
func FromSend[T any](_ SendError[T]) *Error {
	return New(KindChannelSend)
}
