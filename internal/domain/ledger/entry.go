package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies why a balance changed.
type Category string

const (
	CategorySubmissionReward Category = "SUBMISSION_REWARD"
	CategoryPurchaseDebit    Category = "PURCHASE_DEBIT"
	CategoryRewardClawback   Category = "REWARD_CLAWBACK"
	CategorySignupGrant      Category = "SIGNUP_GRANT"
	CategoryAdminAdjustment  Category = "ADMIN_ADJUSTMENT"
	CategoryPurchaseRefund   Category = "PURCHASE_REFUND"
)

// Categories lists every category in a stable order.
var Categories = []Category{
	CategorySubmissionReward,
	CategoryPurchaseDebit,
	CategoryRewardClawback,
	CategorySignupGrant,
	CategoryAdminAdjustment,
	CategoryPurchaseRefund,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// AllowsOverdraft reports whether a debit in this category may leave the balance negative.
func (c Category) AllowsOverdraft() bool {
	return c == CategoryRewardClawback
}

// RefKind names the kind of record an entry points back to.
type RefKind string

const (
	RefKindNone       RefKind = ""
	RefKindSubmission RefKind = "SUBMISSION"
	RefKindPurchase   RefKind = "PURCHASE"
)

// Entry is one immutable, balance-snapshotted change to an account.
// Amount is signed: positive for credits, negative for debits.
type Entry struct {
	ID            uuid.UUID  `json:"id" bson:"entry_id"`
	Sequence      int64      `json:"sequence" bson:"sequence"`
	AccountID     uuid.UUID  `json:"account_id" bson:"account_id"`
	Amount        int64      `json:"amount" bson:"amount"`
	Category      Category   `json:"category" bson:"category"`
	Description   string     `json:"description" bson:"description"`
	RefID         *uuid.UUID `json:"ref_id,omitempty" bson:"ref_id,omitempty"`
	RefKind       RefKind    `json:"ref_kind,omitempty" bson:"ref_kind,omitempty"`
	BalanceAfter  int64      `json:"balance_after" bson:"balance_after"`
	CorrelationID string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

func (e *Entry) IsCredit() bool {
	return e.Amount > 0
}

// Totals aggregates all entries of an account.
type Totals struct {
	Earned int64 // sum of credits
	Spent  int64 // sum of debits, as a positive number
	Count  int64
}

// Net is the balance reconstructed from the log.
func (t Totals) Net() int64 {
	return t.Earned - t.Spent
}

// Filter narrows history queries. The zero value matches everything.
type Filter struct {
	Category Category
}
