package chatui

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/credits-e2e/internal/config"
	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/poll"
)

// scripted replays observations in order, repeating the last one.
type scripted struct {
	values []int
	errs   []error
	calls  int
}

func (s *scripted) observe(ctx context.Context) (int, error) {
	i := min(s.calls, len(s.values)-1)
	s.calls++
	return s.values[i], s.errs[i]
}

func newFakeChat(s *scripted, clock poll.Clock) *Chat {
	c := New(nil, Options{ReadAttempts: 3, ReadDelay: time.Second, ChangeDelay: 500 * time.Millisecond, Clock: clock})
	c.read = s.observe
	return c
}

func TestParseCredits(t *testing.T) {
	t.Parallel()

	n, err := ParseCredits(" 320\n")
	require.NoError(t, err)
	assert.Equal(t, 320, n)

	n, err = ParseCredits("0")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, bad := range []string{"", "Credits", "3 20", "-5", "12.5"} {
		_, err := ParseCredits(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func testParseCredits_RoundTrip(t *rapid.T) {
	n := rapid.IntRange(0, 1_000_000).Draw(t, "n")
	got, err := ParseCredits(strconv.Itoa(n))
	if err != nil || got != n {
		t.Fatalf("ParseCredits(%d) = %d, %v", n, got, err)
	}
}

func TestParseCredits_RoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testParseCredits_RoundTrip)
}

func TestWaitCreditsLoaded_RetriesMissingBadge(t *testing.T) {
	t.Parallel()

	missing := errors.New("element not found")
	s := &scripted{values: []int{0, 0, 320}, errs: []error{missing, nil, nil}}
	clock := poll.NewFakeClock(time.Unix(0, 0))
	c := newFakeChat(s, clock)

	got, err := c.WaitCreditsLoaded(context.Background(), poll.MaxAttempts(3))
	require.NoError(t, err)
	assert.Equal(t, 320, got)
	assert.Equal(t, 3, s.calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Sleeps())
}

func TestWaitCreditsLoaded_Exhausts(t *testing.T) {
	t.Parallel()

	s := &scripted{values: []int{0}, errs: []error{nil}}
	c := newFakeChat(s, poll.NewFakeClock(time.Unix(0, 0)))

	_, err := c.WaitCreditsLoaded(context.Background(), poll.MaxAttempts(3))
	assert.ErrorIs(t, err, poll.ErrBoundExhausted)
	assert.Equal(t, errs.Exhausted, errs.CodeOf(err))
	assert.Equal(t, 3, s.calls)
}

func TestWaitCreditsChanged_ElapsedBoundNestsReads(t *testing.T) {
	t.Parallel()

	// Each outer check is a bounded read; the badge vanishes once mid-way.
	missing := errors.New("element not found")
	s := &scripted{
		values: []int{320, 0, 320, 310},
		errs:   []error{nil, missing, nil, nil},
	}
	clock := poll.NewFakeClock(time.Unix(0, 0))
	c := newFakeChat(s, clock)

	got, err := c.WaitCreditsChanged(context.Background(), 320, poll.MaxElapsed(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 310, got)
	assert.Equal(t, 4, s.calls)
	// outer 500ms, inner 1s after the missing read, outer 500ms
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 500 * time.Millisecond}, clock.Sleeps())
}

func TestWaitCreditsChanged_DropToZeroIsAChange(t *testing.T) {
	t.Parallel()

	for _, bound := range []poll.Bound{poll.MaxElapsed(5 * time.Second), poll.MaxAttempts(3)} {
		s := &scripted{values: []int{10, 0}, errs: []error{nil, nil}}
		c := newFakeChat(s, poll.NewFakeClock(time.Unix(0, 0)))

		got, err := c.WaitCreditsChanged(context.Background(), 10, bound)
		require.NoError(t, err, "bound %s", bound)
		assert.Equal(t, 0, got, "bound %s", bound)
		assert.Equal(t, 2, s.calls, "bound %s", bound)
	}
}

func TestReadTimeout_CappedByDeadline(t *testing.T) {
	t.Parallel()

	c := New(nil, Options{ActionTimeout: 15 * time.Second})

	ms, err := c.readTimeoutMS(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15000.0, *ms)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ms, err = c.readTimeoutMS(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, *ms, 2000.0)
	assert.Greater(t, *ms, 0.0)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	_, err = c.readTimeoutMS(expired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitCreditsChanged_AttemptBoundReadsDirectly(t *testing.T) {
	t.Parallel()

	s := &scripted{values: []int{320, 320, 300}, errs: []error{nil, nil, nil}}
	clock := poll.NewFakeClock(time.Unix(0, 0))
	c := newFakeChat(s, clock)

	got, err := c.WaitCreditsChanged(context.Background(), 320, poll.MaxAttempts(3))
	require.NoError(t, err)
	assert.Equal(t, 300, got)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Sleeps())
}

func TestWaitCreditsChanged_NoChangeTimesOut(t *testing.T) {
	t.Parallel()

	s := &scripted{values: []int{320}, errs: []error{nil}}
	c := newFakeChat(s, poll.NewFakeClock(time.Unix(0, 0)))

	_, err := c.WaitCreditsChanged(context.Background(), 320, poll.MaxElapsed(5*time.Second))
	var exhausted *poll.BoundExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 10, exhausted.Attempts)
	assert.Equal(t, 10, exhausted.Unsatisfied)
}

func TestRetryAssertion(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryAssertion(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("credits not positive yet")
		}
		return nil
	}, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	last := errors.New("still failing")
	err = RetryAssertion(context.Background(), func(ctx context.Context) error { return last }, 2, time.Millisecond)
	assert.ErrorIs(t, err, last)
	assert.ErrorIs(t, err, poll.ErrBoundExhausted)

	err = RetryAssertion(context.Background(), func(ctx context.Context) error { return nil }, 0, time.Millisecond)
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestDefaultSelectors(t *testing.T) {
	t.Parallel()

	sel := DefaultSelectors()
	assert.True(t, sel.CreditsValue.MatchString("320"))
	assert.False(t, sel.CreditsValue.MatchString("Credits 320"))
	assert.Len(t, sel.Avatars, 4)
	assert.Equal(t, `button:has(svg):right-of(:text("Credits"))`, sel.Avatars[0])
}

func TestAvatarStrategies_OrderAndFallback(t *testing.T) {
	t.Parallel()

	c := New(nil, Options{})
	var names []string
	for _, s := range c.avatarStrategies() {
		names = append(names, s.Name)
	}
	want := append(append([]string(nil), DefaultSelectors().Avatars...), DefaultSelectors().UserMenu)
	assert.Equal(t, want, names)
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{ActionTimeout: 2 * time.Second, Retries: 4, PollDelay: 250 * time.Millisecond}
	c := New(nil, OptionsFromConfig(cfg))
	assert.Equal(t, 2*time.Second, c.opts.ActionTimeout)
	assert.Equal(t, 2*time.Second, c.opts.LocateTimeout)
	assert.Equal(t, 4, c.opts.ReadAttempts)
	assert.Equal(t, 250*time.Millisecond, c.opts.ReadDelay)
}
