// Package chatstub is a small in-memory chat application with a credits
// balance. It stands in for the real chat app so the browser suite can
// run hermetically: email/password login, a credits badge, an avatar
// menu with Log Out, and a message box that charges credits shortly
// after each accepted message.
package chatstub

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kuitang/credits-e2e/internal/logutil"
	"github.com/kuitang/credits-e2e/internal/obs"
	"github.com/kuitang/credits-e2e/internal/ratelimit"
)

var logger = obs.Pkg("chatstub")

// Options configures a Server. Zero values take the defaults.
type Options struct {
	MessageCost  int           // Credits per message (default 10)
	ChargeDelay  time.Duration // Delay before an accepted message is debited (default 500ms, negative for none)
	PollInterval time.Duration // How often the chat page refreshes the badge (default 500ms)
	MaxMessage   int           // Longest accepted message in bytes (default 512 KiB)
	RateLimit    ratelimit.Config
	Hasher       PasswordHasher
	Accounts     []Seed
}

const (
	defaultMessageCost  = 10
	defaultChargeDelay  = 500 * time.Millisecond
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxMessage   = 512 * 1024
)

func (o Options) withDefaults() Options {
	if o.MessageCost <= 0 {
		o.MessageCost = defaultMessageCost
	}
	if o.ChargeDelay < 0 {
		o.ChargeDelay = 0
	} else if o.ChargeDelay == 0 {
		o.ChargeDelay = defaultChargeDelay
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.MaxMessage <= 0 {
		o.MaxMessage = defaultMaxMessage
	}
	if o.RateLimit == (ratelimit.Config{}) {
		o.RateLimit = ratelimit.DefaultConfig
	}
	return o
}

// Server serves the stub chat app.
type Server struct {
	opts     Options
	ledger   *Ledger
	sessions *Sessions
	limiter  *ratelimit.Limiter

	mu      sync.Mutex
	pending map[*time.Timer]func()
	closed  bool
}

// New creates a Server and seeds its accounts.
func New(opts Options) (*Server, error) {
	opts = opts.withDefaults()
	s := &Server{
		opts:     opts,
		ledger:   NewLedger(opts.Hasher),
		sessions: newSessions(),
		limiter:  ratelimit.New(opts.RateLimit),
		pending:  make(map[*time.Timer]func()),
	}
	for _, seed := range opts.Accounts {
		if err := s.ledger.Create(seed); err != nil {
			s.limiter.Stop()
			return nil, err
		}
		logger.Info("account_seeded", "email", logutil.MaskEmail(seed.Email), "credits", seed.Credits)
	}
	return s, nil
}

// Ledger exposes the account store.
func (s *Server) Ledger() *Ledger { return s.ledger }

// Handler returns the HTTP handler with correlation and access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleLoginPage)
	mux.HandleFunc("GET /chat", s.handleChatPage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/credits", s.handleCredits)

	throttle := ratelimit.Middleware(s.limiter, func(r *http.Request) string {
		email, _ := s.sessions.FromRequest(r)
		return email
	})
	mux.Handle("POST /api/messages", throttle(http.HandlerFunc(s.handleMessage)))

	return obs.RequestContextMiddleware(obs.AccessLogMiddleware("chatstub", mux))
}

// Close stops the rate limiter and settles charges that are still
// waiting on their delay, so balances are final afterwards.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	pending := s.pending
	s.pending = make(map[*time.Timer]func())
	s.mu.Unlock()

	for timer, settle := range pending {
		timer.Stop()
		settle()
	}
	s.limiter.Stop()
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.FromRequest(r); ok {
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
		return
	}
	s.writePage(w, r, "login", loginData{Title: "Sign in"})
}

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	email, ok := s.sessions.FromRequest(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	balance, err := s.ledger.Balance(email)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.writePage(w, r, "chat", chatData{
		Title:          "Chat",
		Email:          email,
		Credits:        balance,
		PollIntervalMS: s.opts.PollInterval.Milliseconds(),
	})
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := renderPage(&buf, name, data); err != nil {
		obs.From(r.Context()).Error("page_render_failed", "page", name, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email, ok := s.ledger.Authenticate(req.Email, req.Password)
	if !ok {
		obs.From(r.Context()).Info("login_rejected", "email", logutil.MaskEmail(req.Email))
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	setSessionCookie(w, r, s.sessions.Start(email))
	obs.From(r.Context()).Info("login_succeeded", "email", logutil.MaskEmail(email))
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/chat"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		s.sessions.End(c.Value)
	}
	clearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

type creditsResponse struct {
	Credits int `json:"credits"`
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	email, ok := s.sessions.FromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	balance, err := s.ledger.Balance(email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, creditsResponse{Credits: balance})
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	ReplyHTML string `json:"reply_html"`
	Cost      int    `json:"cost"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	email, ok := s.sessions.FromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, int64(s.opts.MaxMessage)+1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "message is empty")
		return
	}
	if len(text) > s.opts.MaxMessage {
		writeError(w, http.StatusRequestEntityTooLarge, "message is too long")
		return
	}

	log := obs.From(r.Context()).With("email", logutil.MaskEmail(email))
	if err := s.ledger.Reserve(email, s.opts.MessageCost); err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			log.Info("message_rejected", "reason", "insufficient_credits")
			writeError(w, http.StatusPaymentRequired, ErrInsufficientCredits.Error())
			return
		}
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}

	if !s.scheduleCharge(email, s.opts.MessageCost) {
		s.ledger.Release(email, s.opts.MessageCost)
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	log.Info("message_accepted", "cost", s.opts.MessageCost, "text", logutil.TruncateForLog(text, 80))
	writeJSON(w, http.StatusAccepted, messageResponse{
		ReplyHTML: renderReply(cannedReply(text)),
		Cost:      s.opts.MessageCost,
	})
}

// scheduleCharge debits cost after ChargeDelay. It reports false once the
// server is closed.
func (s *Server) scheduleCharge(email string, cost int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	var timer *time.Timer
	settle := func() {
		s.ledger.Debit(email, cost)
		logger.Debug("message_charged", "email", logutil.MaskEmail(email), "cost", cost)
	}
	timer = time.AfterFunc(s.opts.ChargeDelay, func() {
		s.mu.Lock()
		_, ok := s.pending[timer]
		delete(s.pending, timer)
		s.mu.Unlock()
		if ok {
			settle()
		}
	})
	s.pending[timer] = settle
	return true
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
