// Package browser runs the credits end-to-end suite in Chromium.
// All tests use BrowserTestEnv via SetupBrowserTestEnv(t). Without
// E2E_BASE_URL the suite serves the in-process chat stub; with it, the
// suite drives the external app using the configured account pool.
package browser

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/credits-e2e/internal/artifacts"
	"github.com/kuitang/credits-e2e/internal/chatstub"
	"github.com/kuitang/credits-e2e/internal/chatui"
	"github.com/kuitang/credits-e2e/internal/config"
	"github.com/kuitang/credits-e2e/internal/obs"
)

var browserFixtureMu sync.Mutex
var browserSharedFixture *BrowserTestEnv

// BrowserTestEnv is the shared environment for all browser tests.
type BrowserTestEnv struct {
	Config   *config.Config
	BaseURL  string
	RunID    string
	Stub     *chatstub.Server // nil when targeting an external app
	Server   *httptest.Server
	Recorder *artifacts.Recorder

	pw        *playwright.Playwright
	browser   playwright.Browser
	browserMu sync.Mutex
}

// SetupBrowserTestEnv returns the shared environment, creating it on first
// use. Browser tests are skipped in short mode.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture == nil {
		browserSharedFixture = createBrowserTestEnv(t)
	}
	resetStubBalances(t, browserSharedFixture)
	return browserSharedFixture
}

func createBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	env := &BrowserTestEnv{
		Config:  cfg,
		BaseURL: cfg.BaseURL,
		RunID:   obs.NewRunID(),
	}

	env.Recorder, err = artifacts.FromConfig(context.Background(), cfg, env.RunID)
	if err != nil {
		t.Fatalf("Failed to set up artifact recorder: %v", err)
	}

	if cfg.UsesStub() {
		stub, err := chatstub.New(chatstub.Options{
			Hasher:   chatstub.LightArgon2,
			Accounts: chatstub.SeedsFromConfig(cfg),
		})
		if err != nil {
			t.Fatalf("Failed to start chat stub: %v", err)
		}
		env.Stub = stub
		env.Server = httptest.NewServer(stub.Handler())
		env.BaseURL = env.Server.URL
	}

	obs.From(obs.WithRunID(context.Background(), env.RunID)).Info("browser_env_ready",
		append(cfg.LogAttrs(), "target", env.BaseURL)...)
	return env
}

// resetStubBalances puts the stub's seeded accounts back to their starting
// balances so tests do not depend on order.
func resetStubBalances(t *testing.T, env *BrowserTestEnv) {
	t.Helper()

	if env.Stub == nil {
		return
	}
	for _, seed := range chatstub.SeedsFromConfig(env.Config) {
		if err := env.Stub.Ledger().SetBalance(seed.Email, seed.Credits); err != nil {
			t.Fatalf("Failed to reset balance for seeded account: %v", err)
		}
	}
}

func cleanupSharedBrowserTestEnv() {
	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture == nil {
		return
	}
	if browserSharedFixture.browser != nil {
		_ = browserSharedFixture.browser.Close()
	}
	if browserSharedFixture.pw != nil {
		_ = browserSharedFixture.pw.Stop()
	}
	if browserSharedFixture.Server != nil {
		browserSharedFixture.Server.Close()
	}
	if browserSharedFixture.Stub != nil {
		browserSharedFixture.Stub.Close()
	}
	browserSharedFixture = nil
}

func TestMain(m *testing.M) {
	code := m.Run()
	cleanupSharedBrowserTestEnv()
	os.Exit(code)
}

// =============================================================================
// Browser lifecycle helpers
// =============================================================================

// InitBrowser initializes Playwright and launches Chromium. Skips the test if not available.
func (env *BrowserTestEnv) InitBrowser(t *testing.T) {
	t.Helper()

	env.browserMu.Lock()
	defer env.browserMu.Unlock()

	if env.browser != nil {
		return
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(env.Config.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		t.Skip("Could not launch browser:", err)
	}
	env.pw = pw
	env.browser = browser
}

// NewPage opens a page in a fresh browser context. Requests carry the run
// id and test name so stub access logs correlate with the test. When the
// test fails, a full-page screenshot is saved before the context closes.
func (env *BrowserTestEnv) NewPage(t *testing.T) playwright.Page {
	t.Helper()

	bctx, err := env.browser.NewContext(playwright.BrowserNewContextOptions{
		ExtraHttpHeaders: correlationHeaders(env.RunID, t.Name()),
	})
	if err != nil {
		t.Fatalf("could not create browser context: %v", err)
	}
	bctx.SetDefaultTimeout(env.Config.ActionTimeoutMS())
	bctx.SetDefaultNavigationTimeout(env.Config.ActionTimeoutMS())

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		t.Fatalf("could not create page: %v", err)
	}

	t.Cleanup(func() {
		if t.Failed() {
			art, err := env.Recorder.Capture(env.TestContext(t), page, t.Name())
			if err != nil {
				t.Logf("failure screenshot not saved: %v", err)
			} else {
				t.Logf("failure screenshot: %s", art.Path)
			}
		}
		_ = bctx.Close()
	})
	return page
}

func correlationHeaders(runID, test string) map[string]string {
	return map[string]string{
		obs.HeaderRunID: runID,
		obs.HeaderTest:  test,
	}
}

// TestContext returns a context carrying the run id and test name, bounded
// by the configured per-test timeout.
func (env *BrowserTestEnv) TestContext(t *testing.T) context.Context {
	t.Helper()

	ctx := obs.WithCorrelation(context.Background(), obs.Correlation{RunID: env.RunID, Test: t.Name()})
	ctx, cancel := context.WithTimeout(ctx, env.Config.Timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewChat opens a page wrapped in chat helpers, plus the test's context.
func (env *BrowserTestEnv) NewChat(t *testing.T) (*chatui.Chat, context.Context) {
	t.Helper()

	page := env.NewPage(t)
	return chatui.New(page, chatui.OptionsFromConfig(env.Config)), env.TestContext(t)
}

// =============================================================================
// Account helpers
// =============================================================================

// NewUserAccount returns a freshly provisioned account. Against the stub a
// new account is created on the spot; against an external app the
// configured new-user account is used.
func (env *BrowserTestEnv) NewUserAccount(t *testing.T) config.Account {
	t.Helper()

	if env.Stub == nil {
		return env.Config.NewUser
	}
	acct := config.Account{
		Email:    GenerateUniqueEmail("credits-new"),
		Password: env.Config.NewUser.Password,
	}
	if err := env.Stub.Ledger().Create(chatstub.Seed{
		Email:    acct.Email,
		Password: acct.Password,
		Credits:  chatstub.DefaultCredits,
	}); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	return acct
}

// GenerateUniqueEmail generates a unique email for test isolation.
func GenerateUniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.test", prefix, uuid.NewString()[:8])
}

// LoginAs opens the app and signs in as acct, failing the test on error.
func (env *BrowserTestEnv) LoginAs(t *testing.T, ctx context.Context, chat *chatui.Chat, acct config.Account) {
	t.Helper()

	if err := chat.Open(ctx, env.BaseURL); err != nil {
		t.Fatalf("Failed to open app: %v", err)
	}
	if err := chat.Login(ctx, acct); err != nil {
		t.Fatalf("Failed to log in: %v", err)
	}
}
