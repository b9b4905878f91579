package failure

import (
	"errors"
	"fmt"
	"strings"
)

// causeSeparator joins a kind's message and the message of its cause.
const causeSeparator = ": caused by: "

// Error is a classified failure. It carries exactly one Kind and, depending
// on the kind, an optional cause or a static explanation. An Error is never
// modified after construction.
type Error struct {
	kind   Kind
	detail string
	cause  error
}

// New returns a failure of the given kind with no cause.
//
// New panics for an undeclared kind and for KindOutputPath, whose only
// constructor is OutputPath.
func New(kind Kind) *Error {
	mustTemplate(kind)
	return &Error{kind: kind}
}

// Wrap returns a failure of the given kind that keeps cause for display and
// for errors.Is/As. A nil cause is equivalent to New. Wrap panics for the
// same kinds as New.
func Wrap(kind Kind, cause error) *Error {
	mustTemplate(kind)
	return &Error{kind: kind, cause: cause}
}

// OutputPath returns a KindOutputPath failure whose rendering is exactly msg.
// msg must not be empty.
func OutputPath(msg string) *Error {
	if msg == "" {
		panic("failure.OutputPath called with an empty explanation")
	}
	return &Error{kind: KindOutputPath, detail: msg}
}

func mustTemplate(kind Kind) {
	if !kind.Valid() {
		panic(fmt.Sprintf("failure: undeclared kind %d", int(kind)))
	}
	if kind == KindOutputPath {
		panic("failure: KindOutputPath must be built with OutputPath")
	}
}

// Kind returns the failure domain.
func (e *Error) Kind() Kind {
	return e.kind
}

// Cause returns the wrapped foreign error, or nil.
func (e *Error) Cause() error {
	return e.cause
}

// Unwrap implements error wrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is a failure of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.kind == e.kind
}

// Error renders the failure as a single line.
func (e *Error) Error() string {
	msg := e.kind.Message()
	if e.kind == KindOutputPath {
		msg = e.detail
	}
	if e.cause == nil {
		return msg
	}
	return msg + causeSeparator + singleLine(e.cause.Error())
}

func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}

// KindOf returns the kind of the first failure in err's chain.
func KindOf(err error) (Kind, bool) {
	var f *Error
	if errors.As(err, &f) {
		return f.kind, true
	}
	return 0, false
}

// Is reports whether err's chain contains a failure of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
