package poll

import (
	"errors"
	"fmt"
	"time"

	"github.com/kuitang/credits-e2e/internal/errs"
)

var (
	// ErrBoundExhausted matches every *BoundExhaustedError.
	ErrBoundExhausted = errors.New("poll: bound exhausted")
	// ErrObservationFailed matches every *ObservationError.
	ErrObservationFailed = errors.New("poll: observation failed")
)

// BoundExhaustedError reports that no attempt satisfied the condition.
type BoundExhaustedError struct {
	Bound       Bound
	Condition   string
	Attempts    int
	Elapsed     time.Duration
	Absent      int // attempts where the observer returned an error
	Unsatisfied int // attempts with a value that failed the condition
	Last        Attempt
}

func (e *BoundExhaustedError) Error() string {
	return fmt.Sprintf("poll: %q not met after %d attempts in %s (%s; %d absent, %d unsatisfied; last %s)",
		e.Condition, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Bound, e.Absent, e.Unsatisfied, e.Last)
}

func (e *BoundExhaustedError) Is(target error) bool { return target == ErrBoundExhausted }

// Unwrap exposes the last observer error, if the last attempt had one.
func (e *BoundExhaustedError) Unwrap() error { return e.Last.Err }

func (e *BoundExhaustedError) ErrorCode() errs.Code { return errs.Exhausted }

// ObservationError reports an observer failure that cannot be retried.
type ObservationError struct {
	Attempt int
	Err     error
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("poll: observation failed on attempt %d: %v", e.Attempt, e.Err)
}

func (e *ObservationError) Is(target error) bool { return target == ErrObservationFailed }

func (e *ObservationError) Unwrap() error { return e.Err }

func (e *ObservationError) ErrorCode() errs.Code { return errs.ObservationFailed }

type fatalError struct{ err error }

func (f fatalError) Error() string { return f.err.Error() }
func (f fatalError) Unwrap() error { return f.err }

// Fatal marks an observer error as not retryable. Fatal(nil) is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	var f fatalError
	return errors.As(err, &f)
}
