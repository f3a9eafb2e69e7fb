// Package errors provides error construction and wrapping helpers built on
// github.com/pkg/errors, plus a Fatal marker for errors that should abort an
// entire CLI invocation rather than surface as a per-file FileStatus.
package errors

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// New, Errorf, Wrap, Wrapf and Cause re-export the pkg/errors helpers, and
// As, Is and Unwrap the standard library's, so callers only need to import
// this package.
var (
	New    = errors.New
	Errorf = errors.Errorf
	Wrap   = errors.Wrap
	Wrapf  = errors.Wrapf
	Cause  = errors.Cause
	As     = stderrors.As
	Is     = stderrors.Is
	Unwrap = stderrors.Unwrap
)

type fatalError struct {
	error
}

func (e *fatalError) Unwrap() error { return e.error }

// Fatal returns an error that IsFatal reports true for.
func Fatal(s string) error {
	return &fatalError{errors.New(s)}
}

// Fatalf is like Fatal but accepts a format string.
func Fatalf(format string, args ...interface{}) error {
	return &fatalError{errors.Errorf(format, args...)}
}

// IsFatal returns whether err (or anything it wraps) was constructed with
// Fatal or Fatalf.
func IsFatal(err error) bool {
	var f *fatalError
	return stderrors.As(err, &f)
}
