// Package locate tries equivalent lookup strategies in priority order and
// returns the first one that succeeds.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/obs"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("locate: no strategy matched")

// Strategy is one way of finding a T.
type Strategy[T any] struct {
	Name string
	Find func(ctx context.Context) (T, error)
}

// Failure is a strategy that did not match.
type Failure struct {
	Strategy string
	Err      error
}

// NotFoundError lists why each strategy failed, in the order tried.
type NotFoundError struct {
	Failures []Failure
}

func (e *NotFoundError) Error() string {
	if len(e.Failures) == 0 {
		return "locate: no strategies given"
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Strategy, f.Err)
	}
	return "locate: no strategy matched (" + strings.Join(parts, "; ") + ")"
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) ErrorCode() errs.Code { return errs.NotFound }

// First returns the result of the first strategy that succeeds, with its name.
// Strategies after the first success are never called.
func First[T any](ctx context.Context, strategies ...Strategy[T]) (T, string, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	logger := obs.From(ctx).With("pkg", "locate")

	failures := make([]Failure, 0, len(strategies))
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		if s.Find == nil {
			failures = append(failures, Failure{Strategy: s.Name, Err: errors.New("no finder")})
			continue
		}
		v, err := s.Find(ctx)
		if err == nil {
			logger.Debug("locate_matched", "strategy", s.Name, "tried", len(failures)+1)
			return v, s.Name, nil
		}
		logger.Debug("locate_miss", "strategy", s.Name, "error", err.Error())
		failures = append(failures, Failure{Strategy: s.Name, Err: err})
	}
	return zero, "", &NotFoundError{Failures: failures}
}
