package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SignupGrant is credited as the first ledger entry of every account.
const SignupGrant int64 = 100

var (
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Account is the identity anchor of one points balance. Values are snapshots:
// the transition methods return a new Account and never modify the receiver.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Balance   int64     `json:"balance"`
	Version   int       `json:"version"` // For optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty account. The signup grant is posted through the ledger
// afterwards so that it is recorded as an entry.
func New(id uuid.UUID, now time.Time) Account {
	return Account{
		ID:        id,
		Balance:   0,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit returns the account with amount added.
func (a Account) Credit(amount int64, now time.Time) (Account, error) {
	if amount <= 0 {
		return a, ErrInvalidAmount
	}
	return a.withBalance(a.Balance+amount, now), nil
}

// Debit returns the account with amount removed. The balance never goes below zero.
func (a Account) Debit(amount int64, now time.Time) (Account, error) {
	if amount <= 0 {
		return a, ErrInvalidAmount
	}
	if !a.CanAfford(amount) {
		return a, ErrInsufficientBalance
	}
	return a.withBalance(a.Balance-amount, now), nil
}

// Clawback removes amount even when the result is negative. It reverses a reward
// that may already have been spent.
func (a Account) Clawback(amount int64, now time.Time) (Account, error) {
	if amount <= 0 {
		return a, ErrInvalidAmount
	}
	return a.withBalance(a.Balance-amount, now), nil
}

func (a Account) CanAfford(amount int64) bool {
	return a.Balance >= amount
}

func (a Account) withBalance(balance int64, now time.Time) Account {
	a.Balance = balance
	a.Version++
	a.UpdatedAt = now
	return a
}
