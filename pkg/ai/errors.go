package ai

import "errors"

// ErrDailyQuota is returned without contacting the provider once the per-day
// request budget is spent.
var ErrDailyQuota = errors.New("daily request quota exhausted")

// ErrNoJSON means the model output carried no JSON value of the expected shape.
var ErrNoJSON = errors.New("no JSON found in model output")

// TransientError wraps a provider failure that may succeed on retry.
type TransientError struct{ err error }

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// FatalError wraps a provider failure that must not be retried.
type FatalError struct{ err error }

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

func NewTransientError(err error) error { return &TransientError{err: err} }
func NewFatalError(err error) error     { return &FatalError{err: err} }

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
