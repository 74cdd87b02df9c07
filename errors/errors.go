// Package errors holds error types specific to the write-batch core that
// don't belong in internal/base, because they're part of the package's
// public surface rather than shared plumbing.
package errors

import cockroacherrors "github.com/cockroachdb/errors"

// InvariantError wraps errors due to internal constraint violations, the
// kind that indicate a bug in this package rather than a caller mistake:
// a save-point popped past the point it was pushed at, a batch's cached
// content flags disagreeing with what Iterate actually sees.
type InvariantError struct {
	Err error
}

// Unwrap the wrapped descriptive error that describes the constraint that got
// violated.
func (i InvariantError) Unwrap() error {
	return i.Err
}

func (i InvariantError) Error() string {
	return i.Err.Error()
}

// NewInvariantErrorf builds an InvariantError from a format string.
func NewInvariantErrorf(format string, args ...interface{}) InvariantError {
	return InvariantError{Err: cockroacherrors.Newf(format, args...)}
}
