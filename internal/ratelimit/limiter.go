// Package ratelimit throttles chat messages per account.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the per-account message budget.
type Config struct {
	PerSecond float64       // Sustained messages per second
	Burst     int           // Messages allowed back to back
	IdleTTL   time.Duration // Limiters unused this long are dropped
}

// DefaultConfig lets a test send a handful of messages quickly while still
// catching runaway send loops.
var DefaultConfig = Config{
	PerSecond: 2,
	Burst:     5,
	IdleTTL:   10 * time.Minute,
}

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiter holds one token bucket per account.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	config   Config
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Limiter and starts its idle sweeper. Call Stop when done.
func New(config Config) *Limiter {
	l := &Limiter{
		limiters: make(map[string]*entry),
		config:   config,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	if config.IdleTTL > 0 {
		l.wg.Add(1)
		go l.sweepLoop()
	}
	return l
}

// Allow reports whether account may send a message now, consuming a token
// if so.
func (l *Limiter) Allow(account string) bool {
	return l.get(account).AllowN(l.now(), 1)
}

// Remaining returns the whole tokens left for account.
func (l *Limiter) Remaining(account string) int {
	n := int(l.get(account).TokensAt(l.now()))
	if n < 0 {
		return 0
	}
	return n
}

func (l *Limiter) get(account string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[account]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.config.PerSecond), l.config.Burst)}
		l.limiters[account] = e
	}
	e.lastUsed = l.now()
	return e.limiter
}

// Sweep drops limiters idle for longer than IdleTTL.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.config.IdleTTL)
	for account, e := range l.limiters {
		if e.lastUsed.Before(cutoff) {
			delete(l.limiters, account)
		}
	}
}

func (l *Limiter) sweepLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stopCh:
			return
		}
	}
}

// Stop ends the sweeper. It is safe to call more than once.
func (l *Limiter) Stop() {
	select {
	case <-l.stopCh:
	default:
		close(l.stopCh)
	}
	l.wg.Wait()
}

// Len returns the number of tracked accounts.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
