package chatstub

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrUnknownAccount      = errors.New("chatstub: unknown account")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAccountExists       = errors.New("chatstub: account already exists")
	ErrNegativeBalance     = errors.New("chatstub: balance must not be negative")
)

// DefaultCredits is the balance a new account starts with.
const DefaultCredits = 320

// Seed describes an account created at startup.
type Seed struct {
	Email    string
	Password string
	Credits  int
}

type account struct {
	email        string
	passwordHash string
	balance      int
	reserved     int // charged by accepted messages, not yet debited
}

// Ledger holds accounts and their credit balances.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]*account
	hasher   PasswordHasher
}

// NewLedger creates an empty ledger.
func NewLedger(hasher PasswordHasher) *Ledger {
	if hasher == nil {
		hasher = LightArgon2
	}
	return &Ledger{accounts: make(map[string]*account), hasher: hasher}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create adds an account with the given starting balance.
func (l *Ledger) Create(s Seed) error {
	email := normalizeEmail(s.Email)
	if email == "" || s.Password == "" || s.Credits < 0 {
		return errors.New("chatstub: account needs email, password and a non-negative balance")
	}
	hash, err := l.hasher.HashPassword(s.Password)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[email]; ok {
		return ErrAccountExists
	}
	l.accounts[email] = &account{email: email, passwordHash: hash, balance: s.Credits}
	return nil
}

// Authenticate returns the canonical email when password matches.
func (l *Ledger) Authenticate(email, password string) (string, bool) {
	email = normalizeEmail(email)
	l.mu.Lock()
	acct, ok := l.accounts[email]
	var hash string
	if ok {
		hash = acct.passwordHash
	}
	l.mu.Unlock()

	if !ok {
		return "", false
	}
	return email, l.hasher.VerifyPassword(password, hash)
}

// Balance returns the displayed balance. Reserved credits stay in the
// balance until the charge is debited.
func (l *Ledger) Balance(email string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[normalizeEmail(email)]
	if !ok {
		return 0, ErrUnknownAccount
	}
	return acct.balance, nil
}

// Reserve sets cost aside for a pending charge, failing when the
// unreserved balance is short.
func (l *Ledger) Reserve(email string, cost int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[normalizeEmail(email)]
	if !ok {
		return ErrUnknownAccount
	}
	if acct.balance-acct.reserved < cost {
		return ErrInsufficientCredits
	}
	acct.reserved += cost
	return nil
}

// Debit settles a reservation made by Reserve. A debit with no matching
// reservation, such as one cancelled by SetBalance, is dropped.
func (l *Ledger) Debit(email string, cost int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[normalizeEmail(email)]
	if !ok || acct.reserved < cost {
		return
	}
	acct.reserved -= cost
	acct.balance -= cost
}

// Release drops a reservation without charging it.
func (l *Ledger) Release(email string, cost int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[normalizeEmail(email)]; ok {
		acct.reserved = max(acct.reserved-cost, 0)
	}
}

// SetBalance overwrites a balance and cancels outstanding reservations.
// Used to put accounts into a known state between test runs.
func (l *Ledger) SetBalance(email string, credits int) error {
	if credits < 0 {
		return ErrNegativeBalance
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[normalizeEmail(email)]
	if !ok {
		return ErrUnknownAccount
	}
	acct.balance = credits
	acct.reserved = 0
	return nil
}
