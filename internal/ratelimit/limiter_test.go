package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// =============================================================================
// Property: the first Burst messages pass, the next one is throttled
// =============================================================================

func testLimiter_BurstThenThrottle(t *rapid.T) {
	burst := rapid.IntRange(1, 50).Draw(t, "burst")
	account := rapid.StringMatching(`[a-z0-9]{4,16}@example\.test`).Draw(t, "account")

	l := New(Config{PerSecond: 0.001, Burst: burst})
	defer l.Stop()

	frozen := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return frozen }

	for i := 0; i < burst; i++ {
		if !l.Allow(account) {
			t.Fatalf("message %d of burst %d was throttled", i+1, burst)
		}
	}
	if l.Allow(account) {
		t.Fatalf("message %d past burst %d was allowed", burst+1, burst)
	}
}

func TestLimiter_BurstThenThrottle(t *testing.T) {
	rapid.Check(t, testLimiter_BurstThenThrottle)
}

// =============================================================================
// Property: accounts do not share buckets
// =============================================================================

func testLimiter_AccountsIndependent(t *rapid.T) {
	a := rapid.StringMatching(`a[a-z]{3,8}`).Draw(t, "a")
	b := rapid.StringMatching(`b[a-z]{3,8}`).Draw(t, "b")

	l := New(Config{PerSecond: 0.001, Burst: 1})
	defer l.Stop()

	if !l.Allow(a) {
		t.Fatal("first message for a throttled")
	}
	if l.Allow(a) {
		t.Fatal("second message for a allowed")
	}
	if !l.Allow(b) {
		t.Fatal("b throttled by a's usage")
	}
}

func TestLimiter_AccountsIndependent(t *testing.T) {
	rapid.Check(t, testLimiter_AccountsIndependent)
}

func TestLimiter_Refills(t *testing.T) {
	l := New(Config{PerSecond: 1, Burst: 1})
	defer l.Stop()

	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("u") || l.Allow("u") {
		t.Fatal("expected one message then throttle")
	}
	now = now.Add(time.Second)
	if !l.Allow("u") {
		t.Fatal("expected refill after one second")
	}
}

func TestLimiter_SweepDropsIdle(t *testing.T) {
	l := New(Config{PerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	defer l.Stop()

	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(2 * time.Minute)
	l.Allow("fresh")
	l.Sweep()

	if got := l.Len(); got != 1 {
		t.Fatalf("Len() = %d after sweep, want 1", got)
	}
}

func TestLimiter_StopIdempotent(t *testing.T) {
	l := New(DefaultConfig)
	l.Stop()
	l.Stop()
}

func TestLimiter_Concurrent(t *testing.T) {
	l := New(Config{PerSecond: 0.001, Burst: 100})
	defer l.Stop()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if l.Allow("shared") {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 100 {
		t.Fatalf("allowed %d messages concurrently, want exactly the burst of 100", got)
	}
}

// =============================================================================
// Middleware
// =============================================================================

func TestMiddleware(t *testing.T) {
	l := New(Config{PerSecond: 0.001, Burst: 1})
	defer l.Stop()

	var served int
	h := Middleware(l, func(r *http.Request) string { return r.Header.Get("X-Account") })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { served++ }),
	)

	do := func(account string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/messages", nil)
		if account != "" {
			req.Header.Set("X-Account", account)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("u"); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := do("u")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error != "too many messages" {
		t.Fatalf("429 body = %q (%v)", rec.Body.String(), err)
	}
	if rec := do(""); rec.Code != http.StatusOK {
		t.Fatalf("anonymous request status = %d", rec.Code)
	}
	if served != 2 {
		t.Fatalf("handler served %d requests, want 2", served)
	}
}
