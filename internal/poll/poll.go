// Package poll observes an asynchronously updating integer until a stop
// condition holds or a retry bound runs out.
//
// Attempts are strictly sequential. An observer error means the value was
// absent on that attempt and is retried; a zero value is a real observation
// and is only retried because it failed the condition. Errors marked with
// Fatal, and cancellation of the caller's context, end the poll at once with
// an ObservationError.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/logutil"
	"github.com/kuitang/credits-e2e/internal/obs"
)

// Observer reads the current value. A non-nil error means no value was
// available on this attempt.
type Observer func(ctx context.Context) (int, error)

// Options tune a poll. The zero value polls without delay on the real clock.
type Options struct {
	// Delay is slept between attempts.
	Delay time.Duration
	// Clock defaults to the wall clock.
	Clock Clock
	// Logger defaults to obs.From(ctx).
	Logger *slog.Logger
	// OnAttempt, if set, is called after every attempt.
	OnAttempt func(Attempt)
}

// Cause records why an attempt did or did not end the poll.
type Cause string

const (
	CauseSatisfied   Cause = "satisfied"
	CauseUnsatisfied Cause = "unsatisfied"
	CauseAbsent      Cause = "absent"
)

// Attempt is the record of one observation.
type Attempt struct {
	Index   int // 1-based
	Elapsed time.Duration
	Value   int
	Err     error
	Cause   Cause
}

func (a Attempt) String() string {
	if a.Err != nil {
		return fmt.Sprintf("attempt %d %s: %v", a.Index, a.Cause, a.Err)
	}
	return fmt.Sprintf("attempt %d %s: value %d", a.Index, a.Cause, a.Value)
}

// Until polls observe until cond holds, returning the first satisfying value.
func Until(ctx context.Context, observe Observer, cond Condition, bound Bound, opts Options) (int, error) {
	if observe == nil {
		return 0, errs.New(errs.InvalidArgument, "poll: nil observer")
	}
	if cond == nil {
		return 0, errs.New(errs.InvalidArgument, "poll: nil condition")
	}
	if err := bound.validate(); err != nil {
		return 0, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = obs.From(ctx).With("pkg", "poll")
	}
	logger = logger.With("condition", cond.Name(), "bound", bound.String())

	start := clock.Now()
	var absent, unsatisfied int
	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return 0, &ObservationError{Attempt: index - 1, Err: err}
		}

		value, err := observe(ctx)
		rec := Attempt{Index: index, Elapsed: clock.Now().Sub(start)}
		switch {
		case err != nil:
			rec.Err = err
			rec.Cause = CauseAbsent
			absent++
		case cond.Met(value):
			rec.Value = value
			rec.Cause = CauseSatisfied
		default:
			rec.Value = value
			rec.Cause = CauseUnsatisfied
			unsatisfied++
		}
		logAttempt(logger, rec)
		if opts.OnAttempt != nil {
			opts.OnAttempt(rec)
		}

		if rec.Cause == CauseSatisfied {
			return value, nil
		}
		if rec.Err != nil && (IsFatal(rec.Err) || isOwnCancellation(ctx, rec.Err)) {
			logger.Warn("poll_observation_failed", "attempt", index, "error", logutil.TruncateForLog(rec.Err.Error(), 300))
			return 0, &ObservationError{Attempt: index, Err: rec.Err}
		}

		exhausted := func() error {
			e := &BoundExhaustedError{
				Bound:       bound,
				Condition:   cond.Name(),
				Attempts:    index,
				Elapsed:     clock.Now().Sub(start),
				Absent:      absent,
				Unsatisfied: unsatisfied,
				Last:        rec,
			}
			logger.Warn("poll_exhausted", "attempts", e.Attempts, "elapsed_ms", e.Elapsed.Milliseconds(),
				"absent", absent, "unsatisfied", unsatisfied)
			return e
		}

		if bound.spentAfter(index, rec.Elapsed) {
			return 0, exhausted()
		}
		if opts.Delay > 0 {
			if err := clock.Sleep(ctx, opts.Delay); err != nil {
				return 0, &ObservationError{Attempt: index, Err: err}
			}
		}
		if bound.spentAfter(index, clock.Now().Sub(start)) {
			return 0, exhausted()
		}
	}
}

// WaitPositive polls until the observed value is greater than zero.
func WaitPositive(ctx context.Context, observe Observer, bound Bound, opts Options) (int, error) {
	return Until(ctx, observe, Positive(), bound, opts)
}

// WaitChanged polls until the observed value differs from baseline.
func WaitChanged(ctx context.Context, observe Observer, baseline int, bound Bound, opts Options) (int, error) {
	return Until(ctx, observe, ChangedFrom(baseline), bound, opts)
}

// Assert retries check until it returns nil. When the bound runs out the
// returned *BoundExhaustedError unwraps to the last check failure.
func Assert(ctx context.Context, check func(ctx context.Context) error, bound Bound, opts Options) error {
	if check == nil {
		return errs.New(errs.InvalidArgument, "poll: nil check")
	}
	_, err := Until(ctx, func(ctx context.Context) (int, error) {
		if err := check(ctx); err != nil {
			return 0, err
		}
		return 1, nil
	}, Satisfies("assertion passes", func(v int) bool { return v == 1 }), bound, opts)
	return err
}

func isOwnCancellation(ctx context.Context, err error) bool {
	ctxErr := ctx.Err()
	return ctxErr != nil && errors.Is(err, ctxErr)
}

func logAttempt(logger *slog.Logger, rec Attempt) {
	attrs := []any{
		"attempt", rec.Index,
		"elapsed_ms", rec.Elapsed.Milliseconds(),
		"cause", string(rec.Cause),
	}
	if rec.Err != nil {
		attrs = append(attrs, "error", logutil.TruncateForLog(rec.Err.Error(), 300))
	} else {
		attrs = append(attrs, "value", rec.Value)
	}
	logger.Debug("poll_attempt", attrs...)
}
