package poll

import (
	"fmt"
	"time"

	"github.com/kuitang/credits-e2e/internal/errs"
)

// Condition is a stop condition over an observed value.
type Condition interface {
	Name() string
	Met(value int) bool
}

type predicate struct {
	name string
	met  func(int) bool
}

func (p predicate) Name() string       { return p.name }
func (p predicate) Met(value int) bool { return p.met(value) }

// Positive holds once the value is greater than zero.
func Positive() Condition {
	return predicate{name: "value > 0", met: func(v int) bool { return v > 0 }}
}

// ChangedFrom holds once the value differs from baseline.
func ChangedFrom(baseline int) Condition {
	return predicate{
		name: fmt.Sprintf("value != %d", baseline),
		met:  func(v int) bool { return v != baseline },
	}
}

// Satisfies wraps a caller-supplied predicate. A nil pred never holds.
func Satisfies(name string, pred func(int) bool) Condition {
	if pred == nil {
		pred = func(int) bool { return false }
	}
	if name == "" {
		name = "custom predicate"
	}
	return predicate{name: name, met: pred}
}

// BoundKind selects what a Bound limits.
type BoundKind int

const (
	BoundAttempts BoundKind = iota + 1
	BoundElapsed
)

func (k BoundKind) String() string {
	switch k {
	case BoundAttempts:
		return "attempts"
	case BoundElapsed:
		return "elapsed"
	default:
		return "unknown"
	}
}

// Bound limits a poll by attempt count or by elapsed time. Bounds are
// comparable values.
type Bound struct {
	Kind     BoundKind
	Attempts int
	Elapsed  time.Duration
}

// MaxAttempts bounds a poll to n observations.
func MaxAttempts(n int) Bound {
	return Bound{Kind: BoundAttempts, Attempts: n}
}

// MaxElapsed bounds a poll to d of wall time. At least one observation is
// always made.
func MaxElapsed(d time.Duration) Bound {
	return Bound{Kind: BoundElapsed, Elapsed: d}
}

func (b Bound) String() string {
	switch b.Kind {
	case BoundAttempts:
		return fmt.Sprintf("max %d attempts", b.Attempts)
	case BoundElapsed:
		return fmt.Sprintf("max %s elapsed", b.Elapsed)
	default:
		return "invalid bound"
	}
}

func (b Bound) validate() error {
	switch b.Kind {
	case BoundAttempts:
		if b.Attempts <= 0 {
			return errs.New(errs.InvalidArgument, "poll: max attempts must be positive")
		}
	case BoundElapsed:
		if b.Elapsed <= 0 {
			return errs.New(errs.InvalidArgument, "poll: max elapsed must be positive")
		}
	default:
		return errs.New(errs.InvalidArgument, "poll: bound kind not set")
	}
	return nil
}

func (b Bound) spentAfter(attempts int, elapsed time.Duration) bool {
	if b.Kind == BoundAttempts {
		return attempts >= b.Attempts
	}
	return elapsed >= b.Elapsed
}
