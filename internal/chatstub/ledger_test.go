package chatstub

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) { return "$plain$" + password, nil }
func (plainHasher) VerifyPassword(password, hash string) bool    { return hash == "$plain$"+password }

func TestLedger_ReserveDebit(t *testing.T) {
	l := NewLedger(plainHasher{})
	require.NoError(t, l.Create(Seed{Email: "User@Example.test", Password: "pw", Credits: 25}))

	email, ok := l.Authenticate(" user@example.TEST ", "pw")
	require.True(t, ok)
	assert.Equal(t, "user@example.test", email)

	require.NoError(t, l.Reserve(email, 10))
	require.NoError(t, l.Reserve(email, 10))
	assert.ErrorIs(t, l.Reserve(email, 10), ErrInsufficientCredits)

	// Reserved credits are still displayed until debited.
	bal, err := l.Balance(email)
	require.NoError(t, err)
	assert.Equal(t, 25, bal)

	l.Debit(email, 10)
	bal, _ = l.Balance(email)
	assert.Equal(t, 15, bal)

	l.Release(email, 10)
	require.NoError(t, l.Reserve(email, 10))
}

func TestLedger_Errors(t *testing.T) {
	l := NewLedger(plainHasher{})
	require.NoError(t, l.Create(Seed{Email: "a@example.test", Password: "pw"}))

	assert.ErrorIs(t, l.Create(Seed{Email: "A@example.test", Password: "pw"}), ErrAccountExists)
	assert.Error(t, l.Create(Seed{Email: "", Password: "pw"}))
	assert.Error(t, l.Create(Seed{Email: "b@example.test", Password: "pw", Credits: -1}))

	_, err := l.Balance("missing@example.test")
	assert.ErrorIs(t, err, ErrUnknownAccount)
	assert.ErrorIs(t, l.Reserve("missing@example.test", 1), ErrUnknownAccount)
	assert.ErrorIs(t, l.SetBalance("missing@example.test", 1), ErrUnknownAccount)

	_, ok := l.Authenticate("a@example.test", "wrong")
	assert.False(t, ok)
	_, ok = l.Authenticate("missing@example.test", "pw")
	assert.False(t, ok)

	assert.ErrorIs(t, l.Reserve("a@example.test", 1), ErrInsufficientCredits)
}

func TestLedger_SetBalanceRejectsNegative(t *testing.T) {
	l := NewLedger(plainHasher{})
	require.NoError(t, l.Create(Seed{Email: "u@example.test", Password: "pw", Credits: 20}))

	assert.ErrorIs(t, l.SetBalance("u@example.test", -5), ErrNegativeBalance)
	bal, err := l.Balance("u@example.test")
	require.NoError(t, err)
	assert.Equal(t, 20, bal)
}

func TestLedger_SetBalanceCancelsPendingCharges(t *testing.T) {
	l := NewLedger(plainHasher{})
	require.NoError(t, l.Create(Seed{Email: "u@example.test", Password: "pw", Credits: 20}))

	require.NoError(t, l.Reserve("u@example.test", 10))
	require.NoError(t, l.SetBalance("u@example.test", 0))
	l.Debit("u@example.test", 10)

	bal, err := l.Balance("u@example.test")
	require.NoError(t, err)
	assert.Equal(t, 0, bal)

	// A reset balance is fully spendable again.
	require.NoError(t, l.SetBalance("u@example.test", 10))
	require.NoError(t, l.Reserve("u@example.test", 10))
	l.Release("u@example.test", 10)
	l.Release("u@example.test", 10)
	require.NoError(t, l.Reserve("u@example.test", 10))
}

func testLedger_NeverNegative(t *rapid.T) {
	start := rapid.IntRange(0, 200).Draw(t, "start")
	cost := rapid.IntRange(1, 30).Draw(t, "cost")

	l := NewLedger(plainHasher{})
	if err := l.Create(Seed{Email: "u@example.test", Password: "pw", Credits: start}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending := 0
	steps := rapid.SliceOfN(rapid.Bool(), 1, 50).Draw(t, "reserveOrDebit")
	for _, reserve := range steps {
		if reserve {
			err := l.Reserve("u@example.test", cost)
			if err == nil {
				pending++
			} else if !errors.Is(err, ErrInsufficientCredits) {
				t.Fatalf("Reserve: %v", err)
			}
		} else if pending > 0 {
			l.Debit("u@example.test", cost)
			pending--
		}
	}
	for ; pending > 0; pending-- {
		l.Debit("u@example.test", cost)
	}

	bal, _ := l.Balance("u@example.test")
	if bal < 0 {
		t.Fatalf("balance went negative: %d", bal)
	}
	if (start-bal)%cost != 0 {
		t.Fatalf("balance %d is not start %d minus whole charges of %d", bal, start, cost)
	}
}

func TestLedger_NeverNegative(t *testing.T) {
	rapid.Check(t, testLedger_NeverNegative)
}
