package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition marks a failure that retrying cannot fix, such as a
	// missing upstream result. It ends the run without further attempts.
	ErrPrecondition = errors.New("precondition failed")

	// ErrTransient marks a failure expected to clear on retry.
	ErrTransient = errors.New("transient failure")

	// ErrUnknownJob is returned when executing an unregistered job.
	ErrUnknownJob = errors.New("unknown job")
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Preconditionf builds a permanent ErrPrecondition error.
func Preconditionf(format string, args ...any) error {
	return Permanent(fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...)))
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm) || errors.Is(err, ErrPrecondition)
}
