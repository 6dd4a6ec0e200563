// Package chatui drives the chat app's credits UI through Playwright:
// signing in and out, sending messages, and reading the credits balance.
// Balance reads go through the poll package, and the avatar button is
// found through locate, so both retry and fallback behaviour are shared
// with the rest of the suite.
package chatui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/credits-e2e/internal/config"
	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/locate"
	"github.com/kuitang/credits-e2e/internal/logutil"
	"github.com/kuitang/credits-e2e/internal/obs"
	"github.com/kuitang/credits-e2e/internal/poll"
	"github.com/kuitang/credits-e2e/internal/urlutil"
)

const (
	defaultActionTimeout = 15 * time.Second
	defaultReadAttempts  = 3
	defaultReadDelay     = time.Second
	defaultChangeDelay   = 500 * time.Millisecond
	defaultLocateTimeout = 5 * time.Second
)

var errNotVisible = errors.New("element not visible")

// Options configures a Chat. Zero values take the defaults.
type Options struct {
	Selectors     *Selectors
	ActionTimeout time.Duration // per Playwright action
	LocateTimeout time.Duration // per avatar candidate
	ReadAttempts  int           // attempts for one credits read
	ReadDelay     time.Duration // delay between read attempts
	ChangeDelay   time.Duration // delay between change checks
	Clock         poll.Clock
}

// OptionsFromConfig derives Options from suite configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ActionTimeout: cfg.ActionTimeout,
		ReadAttempts:  cfg.Retries,
		ReadDelay:     cfg.PollDelay,
	}
}

// Chat wraps a page showing the chat app.
type Chat struct {
	page playwright.Page
	sel  Selectors
	opts Options
	read poll.Observer
}

// New wraps page.
func New(page playwright.Page, opts Options) *Chat {
	sel := DefaultSelectors()
	if opts.Selectors != nil {
		sel = *opts.Selectors
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	if opts.LocateTimeout <= 0 {
		opts.LocateTimeout = min(defaultLocateTimeout, opts.ActionTimeout)
	}
	if opts.ReadAttempts <= 0 {
		opts.ReadAttempts = defaultReadAttempts
	}
	if opts.ReadDelay <= 0 {
		opts.ReadDelay = defaultReadDelay
	}
	if opts.ChangeDelay <= 0 {
		opts.ChangeDelay = defaultChangeDelay
	}
	c := &Chat{page: page, sel: sel, opts: opts}
	c.read = c.readCredits
	return c
}

// Page returns the wrapped page.
func (c *Chat) Page() playwright.Page { return c.page }

func (c *Chat) actionMS() *float64 {
	return playwright.Float(float64(c.opts.ActionTimeout.Milliseconds()))
}

// Open navigates to the app's landing page.
func (c *Chat) Open(ctx context.Context, baseURL string) error {
	target := urlutil.BuildAbsolute(baseURL, "/")
	obs.From(ctx).Debug("chat_open", "url", target)
	if _, err := c.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   c.actionMS(),
	}); err != nil {
		return errs.Wrap(errs.Unavailable, "chatui: open "+target, err)
	}
	return nil
}

// Login signs in with email and password and waits for the credits badge.
func (c *Chat) Login(ctx context.Context, acct config.Account) error {
	log := obs.From(ctx).With("email", logutil.MaskEmail(acct.Email))
	log.Info("login_started")

	steps := []struct {
		name string
		run  func() error
	}{
		{"open_email_form", func() error {
			return c.page.GetByText(c.sel.ContinueWithEmail).Click(playwright.LocatorClickOptions{Timeout: c.actionMS()})
		}},
		{"fill_email", func() error {
			return c.page.Locator(c.sel.EmailInput).Fill(acct.Email, playwright.LocatorFillOptions{Timeout: c.actionMS()})
		}},
		{"submit_email", func() error {
			return c.page.GetByText(c.sel.ContinueWithEmail).Click(playwright.LocatorClickOptions{Timeout: c.actionMS()})
		}},
		{"fill_password", func() error {
			return c.page.Locator(c.sel.PasswordInput).Fill(acct.Password, playwright.LocatorFillOptions{Timeout: c.actionMS()})
		}},
		{"submit_password", func() error {
			return c.page.GetByText(c.sel.Continue, playwright.PageGetByTextOptions{Exact: playwright.Bool(true)}).
				Click(playwright.LocatorClickOptions{Timeout: c.actionMS()})
		}},
		{"wait_signed_in", func() error {
			return c.page.Locator(c.sel.CreditsBadge).First().WaitFor(playwright.LocatorWaitForOptions{
				State:   playwright.WaitForSelectorStateVisible,
				Timeout: c.actionMS(),
			})
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			log.Warn("login_failed", "step", step.name, "url", c.page.URL(), "error", err)
			return errs.Wrap(errs.Unavailable, "chatui: login step "+step.name, err)
		}
	}
	log.Info("login_succeeded")
	return nil
}

// ReadCredits returns an observer of the displayed balance. A missing
// element, a locator timeout, and non-numeric text are all reported as
// absent observations so the poll retries them.
func (c *Chat) ReadCredits() poll.Observer {
	return c.read
}

func (c *Chat) readCredits(ctx context.Context) (int, error) {
	timeout, err := c.readTimeoutMS(ctx)
	if err != nil {
		return 0, err
	}
	loc := c.page.GetByText(c.sel.CreditsValue).First()
	text, err := loc.TextContent(playwright.LocatorTextContentOptions{Timeout: timeout})
	if err != nil {
		return 0, fmt.Errorf("read credits: %w", err)
	}
	return ParseCredits(text)
}

// readTimeoutMS is the action timeout, cut down to what is left before
// ctx's deadline.
func (c *Chat) readTimeoutMS(ctx context.Context) (*float64, error) {
	d := c.opts.ActionTimeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, context.DeadlineExceeded
		}
		// Playwright treats 0 as no timeout.
		d = max(min(d, left), time.Millisecond)
	}
	return playwright.Float(float64(d.Milliseconds())), nil
}

// ParseCredits parses the text of the balance element.
func ParseCredits(text string) (int, error) {
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("credits text %q is not a number", logutil.TruncateForLog(text, 40))
	}
	if n < 0 {
		return 0, fmt.Errorf("credits text %q is negative", text)
	}
	return n, nil
}

func (c *Chat) pollOptions(delay time.Duration) poll.Options {
	return poll.Options{Delay: delay, Clock: c.opts.Clock}
}

// WaitCreditsLoaded reads the balance until it is positive.
func (c *Chat) WaitCreditsLoaded(ctx context.Context, bound poll.Bound) (int, error) {
	return poll.WaitPositive(obs.WithStep(ctx, "credits_loaded"), c.read, bound, c.pollOptions(c.opts.ReadDelay))
}

// WaitCreditsChanged reads the balance until it differs from baseline.
// Under an elapsed bound each check is itself a bounded read that retries
// a missing badge, and no read runs past the bound. Zero is a valid
// balance and counts as a change from a positive baseline.
func (c *Chat) WaitCreditsChanged(ctx context.Context, baseline int, bound poll.Bound) (int, error) {
	ctx = obs.WithStep(ctx, "credits_changed")
	observe := c.read
	delay := c.opts.ReadDelay
	if bound.Kind == poll.BoundElapsed {
		inner := poll.MaxAttempts(c.opts.ReadAttempts)
		present := poll.Satisfies("value >= 0", func(v int) bool { return v >= 0 })
		deadline := time.Now().Add(bound.Elapsed)
		observe = func(ctx context.Context) (int, error) {
			readCtx, cancel := context.WithDeadline(ctx, deadline)
			defer cancel()
			return poll.Until(readCtx, c.read, present, inner, c.pollOptions(c.opts.ReadDelay))
		}
		delay = c.opts.ChangeDelay
	}
	return poll.WaitChanged(ctx, observe, baseline, bound, c.pollOptions(delay))
}

// SendMessage types text into the ask box and presses Enter.
func (c *Chat) SendMessage(ctx context.Context, text string) error {
	box := c.page.GetByRole(*playwright.AriaRoleTextbox, playwright.PageGetByRoleOptions{
		Name: c.sel.AskBox,
	})
	if err := box.Click(playwright.LocatorClickOptions{Timeout: c.actionMS()}); err != nil {
		return errs.Wrap(errs.Unavailable, "chatui: focus ask box", err)
	}
	if err := box.Fill(text, playwright.LocatorFillOptions{Timeout: c.actionMS()}); err != nil {
		return errs.Wrap(errs.Unavailable, "chatui: fill ask box", err)
	}
	if err := box.Press("Enter", playwright.LocatorPressOptions{Timeout: c.actionMS()}); err != nil {
		return errs.Wrap(errs.Unavailable, "chatui: submit message", err)
	}
	obs.From(ctx).Info("message_sent", "chars", len(text))
	return nil
}

// InsufficientCreditsNotice locates the out-of-credits notice.
func (c *Chat) InsufficientCreditsNotice() playwright.Locator {
	var loc playwright.Locator
	for _, s := range c.sel.InsufficientNotices {
		next := c.page.Locator(s)
		if loc == nil {
			loc = next
		} else {
			loc = loc.Or(next)
		}
	}
	if loc == nil {
		loc = c.page.Locator("text=insufficient credits")
	}
	return loc.First()
}

// IsLoggedIn reports whether the credits badge becomes visible within the
// locate timeout.
func (c *Chat) IsLoggedIn(ctx context.Context) (bool, error) {
	err := c.page.Locator(c.sel.CreditsBadge).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(c.opts.LocateTimeout.Milliseconds())),
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, playwright.ErrTimeout):
		return false, nil
	default:
		return false, errs.Wrap(errs.Unavailable, "chatui: check login state", err)
	}
}

// CheckAndLogout logs out when the page is signed in and reports whether
// it did.
func (c *Chat) CheckAndLogout(ctx context.Context) (bool, error) {
	ok, err := c.IsLoggedIn(ctx)
	if err != nil || !ok {
		return false, err
	}
	if err := c.Logout(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// avatarStrategies lists the avatar candidates in order, then the user
// menu image as a last resort.
func (c *Chat) avatarStrategies() []locate.Strategy[playwright.Locator] {
	selectors := append(append([]string(nil), c.sel.Avatars...), c.sel.UserMenu)
	out := make([]locate.Strategy[playwright.Locator], 0, len(selectors))
	for i, s := range selectors {
		if s == "" {
			continue
		}
		last := i == len(selectors)-1
		out = append(out, locate.Strategy[playwright.Locator]{
			Name: s,
			Find: func(ctx context.Context) (playwright.Locator, error) {
				loc := c.page.Locator(s).First()
				if last {
					loc = c.page.Locator(s).Last()
				}
				if err := loc.WaitFor(playwright.LocatorWaitForOptions{
					State:   playwright.WaitForSelectorStateVisible,
					Timeout: playwright.Float(float64(c.opts.LocateTimeout.Milliseconds())),
				}); err != nil {
					return nil, err
				}
				visible, err := loc.IsVisible()
				if err != nil {
					return nil, err
				}
				if !visible {
					return nil, errNotVisible
				}
				return loc, nil
			},
		})
	}
	return out
}

// Logout opens the avatar menu and clicks Log Out. On failure the page URL
// and title are logged before the error is returned.
func (c *Chat) Logout(ctx context.Context) error {
	ctx = obs.WithStep(ctx, "logout")
	log := obs.From(ctx)

	err := c.logout(ctx)
	if err != nil {
		title, _ := c.page.Title()
		log.Error("logout_failed", "url", c.page.URL(), "title", title, "error", err)
		return err
	}
	log.Info("logout_succeeded")
	return nil
}

func (c *Chat) logout(ctx context.Context) error {
	avatar, matched, err := locate.First(ctx, c.avatarStrategies()...)
	if err != nil {
		return fmt.Errorf("chatui: find avatar button: %w", err)
	}
	obs.From(ctx).Debug("avatar_found", "selector", matched)

	if err := avatar.Click(playwright.LocatorClickOptions{Timeout: c.actionMS()}); err != nil {
		return errs.Wrap(errs.Unavailable, "chatui: open user menu", err)
	}
	logOut := c.page.GetByText(c.sel.LogOut)
	if err := logOut.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(c.opts.LocateTimeout.Milliseconds())),
	}); err != nil {
		return errs.Wrap(errs.NotFound, "chatui: log out item", err)
	}
	if err := logOut.Click(playwright.LocatorClickOptions{Timeout: c.actionMS()}); err != nil {
		return errs.Wrap(errs.Unavailable, "chatui: click log out", err)
	}
	if err := c.page.Locator(c.sel.CreditsBadge).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: c.actionMS(),
	}); err != nil {
		return errs.Wrap(errs.Unavailable, "chatui: wait for signed-out page", err)
	}
	return nil
}

// RetryAssertion runs action up to attempts times, interval apart, until
// it succeeds. The returned error unwraps to the last failure.
func RetryAssertion(ctx context.Context, action func(ctx context.Context) error, attempts int, interval time.Duration) error {
	return poll.Assert(obs.WithStep(ctx, "retry_assertion"), action, poll.MaxAttempts(attempts), poll.Options{Delay: interval})
}
