package chatstub

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/kuitang/credits-e2e/internal/urlutil"
)

// SessionCookieName is the cookie carrying the session id.
const SessionCookieName = "chat_session"

// Sessions maps session ids to account emails.
type Sessions struct {
	mu   sync.RWMutex
	byID map[string]string
}

func newSessions() *Sessions {
	return &Sessions{byID: make(map[string]string)}
}

// Start creates a session for email and returns its id.
func (s *Sessions) Start(email string) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.byID[id] = email
	s.mu.Unlock()
	return id
}

// End deletes a session. Unknown ids are ignored.
func (s *Sessions) End(id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

// Lookup returns the email for a session id.
func (s *Sessions) Lookup(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email, ok := s.byID[id]
	return email, ok
}

// FromRequest returns the email for the request's session cookie.
func (s *Sessions) FromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return s.Lookup(c.Value)
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   urlutil.IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   urlutil.IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
