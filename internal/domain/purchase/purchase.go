package purchase

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	// AccessWindow is how long a purchase grants access, measured from creation.
	AccessWindow = 7 * 24 * time.Hour
	// CooldownWindow is how long an account must wait before buying the same item again.
	CooldownWindow = 7 * 24 * time.Hour

	MaxNoteLength   = 200
	MaxReviewLength = 500
	MinRating       = 1
	MaxRating       = 5
)

var (
	ErrDuplicatePurchase = errors.New("item was already purchased within the cool-down window")
	ErrAccessDenied      = errors.New("purchase is not active")
	ErrInvalidRating     = fmt.Errorf("rating must be between %d and %d", MinRating, MaxRating)
)

// Status of a purchase. Transitions only leave ACTIVE.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusExpired  Status = "EXPIRED"
	StatusRefunded Status = "REFUNDED"
)

// Purchase is one acquisition of a catalog item.
type Purchase struct {
	ID             uuid.UUID  `json:"id"`
	AccountID      uuid.UUID  `json:"account_id"`
	ItemID         uuid.UUID  `json:"item_id"`
	PointsSpent    int64      `json:"points_spent"`
	Note           string     `json:"note,omitempty"`
	Status         Status     `json:"status"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	Rating         *int       `json:"rating,omitempty"`
	ReviewComment  string     `json:"review_comment,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ValidateNote checks the optional buyer note.
func ValidateNote(note string) error {
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return shared.NewInvalidInput("note", fmt.Sprintf("must be at most %d characters", MaxNoteLength))
	}
	return nil
}

// New creates an active purchase expiring AccessWindow after now.
func New(accountID, itemID uuid.UUID, price int64, note string, now time.Time) (Purchase, error) {
	if err := ValidateNote(note); err != nil {
		return Purchase{}, err
	}
	return Purchase{
		ID:          uuid.New(),
		AccountID:   accountID,
		ItemID:      itemID,
		PointsSpent: price,
		Note:        strings.TrimSpace(note),
		Status:      StatusActive,
		ExpiresAt:   now.Add(AccessWindow),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CooldownStart is the earliest creation time that still blocks a repeat purchase at now.
func CooldownStart(now time.Time) time.Time {
	return now.Add(-CooldownWindow)
}

// Lapsed reports whether an active purchase is past its expiry.
func (p Purchase) Lapsed(now time.Time) bool {
	return p.Status == StatusActive && now.After(p.ExpiresAt)
}

// EffectiveStatus is the status a reader must see at now.
func (p Purchase) EffectiveStatus(now time.Time) Status {
	if p.Lapsed(now) {
		return StatusExpired
	}
	return p.Status
}

// Observed returns the purchase as it must be presented at now.
func (p Purchase) Observed(now time.Time) Purchase {
	p.Status = p.EffectiveStatus(now)
	return p
}

func (p Purchase) CanAccess(now time.Time) bool {
	return p.EffectiveStatus(now) == StatusActive
}

// Access records one use of the content.
func (p Purchase) Access(now time.Time) (Purchase, error) {
	if !p.CanAccess(now) {
		return p, ErrAccessDenied
	}
	p.AccessCount++
	p.LastAccessedAt = &now
	p.UpdatedAt = now
	return p, nil
}

// Review attaches a rating and comment. Lapsed purchases can still be reviewed.
func (p Purchase) Review(rating int, comment string, now time.Time) (Purchase, error) {
	if rating < MinRating || rating > MaxRating {
		return p, ErrInvalidRating
	}
	if utf8.RuneCountInString(comment) > MaxReviewLength {
		return p, shared.NewInvalidInput("comment", fmt.Sprintf("must be at most %d characters", MaxReviewLength))
	}
	p.Rating = &rating
	p.ReviewComment = strings.TrimSpace(comment)
	p.ReviewedAt = &now
	p.UpdatedAt = now
	return p, nil
}

// Expire moves a lapsed purchase to EXPIRED. The boolean is false when nothing changed.
func (p Purchase) Expire(now time.Time) (Purchase, bool) {
	if !p.Lapsed(now) {
		return p, false
	}
	p.Status = StatusExpired
	p.UpdatedAt = now
	return p, true
}

// Refund moves a purchase that is still active to REFUNDED.
func (p Purchase) Refund(now time.Time) (Purchase, error) {
	if current := p.EffectiveStatus(now); current != StatusActive {
		return p, ErrInvalidTransition{PurchaseID: p.ID, From: current, To: StatusRefunded}
	}
	p.Status = StatusRefunded
	p.UpdatedAt = now
	return p, nil
}

// Stats summarizes the purchases of one account.
type Stats struct {
	TotalPurchases  int64 `json:"total_purchases"`
	ActivePurchases int64 `json:"active_purchases"`
	PointsSpent     int64 `json:"points_spent"`
}

// RatingStats aggregates the ratings given to one item.
type RatingStats struct {
	Sum   int64
	Count int64
}
