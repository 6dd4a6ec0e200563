package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/kuitang/credits-e2e/internal/errs"
)

func fixed(name string, v int, err error, calls *[]string) Strategy[int] {
	return Strategy[int]{
		Name: name,
		Find: func(ctx context.Context) (int, error) {
			*calls = append(*calls, name)
			return v, err
		},
	}
}

func TestFirst_EarlyExit(t *testing.T) {
	var calls []string
	miss := errors.New("timeout")
	v, name, err := First(context.Background(),
		fixed("right-of", 0, miss, &calls),
		fixed("near", 42, nil, &calls),
		fixed("div-role", 7, nil, &calls),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 || name != "near" {
		t.Fatalf("got %d from %q, want 42 from near", v, name)
	}
	if strings.Join(calls, ",") != "right-of,near" {
		t.Fatalf("strategies after the first match must not run: %v", calls)
	}
}

func TestFirst_AllFail(t *testing.T) {
	var calls []string
	_, _, err := First(context.Background(),
		fixed("a", 0, errors.New("boom a"), &calls),
		Strategy[int]{Name: "b"},
		fixed("c", 0, errors.New("boom c"), &calls),
	)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || len(nf.Failures) != 3 {
		t.Fatalf("expected 3 recorded failures, got %+v", nf)
	}
	for _, want := range []string{"a: boom a", "b: no finder", "c: boom c"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error should mention %q: %v", want, err)
		}
	}
	if errs.CodeOf(err) != errs.NotFound {
		t.Fatalf("CodeOf mismatch: %q", errs.CodeOf(err))
	}
}

func TestFirst_Empty(t *testing.T) {
	_, _, err := First[int](context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for no strategies, got %v", err)
	}
}

func TestFirst_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	cancelling := Strategy[int]{Name: "first", Find: func(context.Context) (int, error) {
		calls = append(calls, "first")
		cancel()
		return 0, errors.New("miss")
	}}
	_, _, err := First(ctx, cancelling, fixed("second", 1, nil, &calls))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("second strategy must not run after cancel: %v", calls)
	}
}

func testFirst_PicksLowestIndexSuccess(t *rapid.T) {
	n := rapid.IntRange(1, 12).Draw(t, "n")
	ok := make([]bool, n)
	firstOK := -1
	for i := range ok {
		ok[i] = rapid.Bool().Draw(t, fmt.Sprintf("ok_%d", i))
		if ok[i] && firstOK < 0 {
			firstOK = i
		}
	}

	var calls []string
	strategies := make([]Strategy[int], n)
	for i := range strategies {
		var err error
		if !ok[i] {
			err = errors.New("miss")
		}
		strategies[i] = fixed(fmt.Sprintf("s%d", i), i, err, &calls)
	}

	v, name, err := First(context.Background(), strategies...)
	if firstOK < 0 {
		if !errors.Is(err, ErrNotFound) || len(calls) != n {
			t.Fatalf("expected all %d strategies tried and ErrNotFound, got calls=%d err=%v", n, len(calls), err)
		}
		return
	}
	if err != nil || v != firstOK || name != fmt.Sprintf("s%d", firstOK) {
		t.Fatalf("got v=%d name=%q err=%v, want s%d", v, name, err, firstOK)
	}
	if len(calls) != firstOK+1 {
		t.Fatalf("expected %d calls, got %d", firstOK+1, len(calls))
	}
}

func TestFirst_PicksLowestIndexSuccess(t *testing.T) {
	rapid.Check(t, testFirst_PicksLowestIndexSuccess)
}
