// Package catalog holds the slice of the catalog that the point engine touches:
// price and availability for purchases, and the purchase and rating aggregates it maintains.
package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a system emotion offered for points.
type Item struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         int64           `json:"price"`
	IsActive      bool            `json:"is_active"`
	PurchaseCount int64           `json:"purchase_count"`
	AverageRating decimal.Decimal `json:"average_rating"`
	RatingCount   int64           `json:"rating_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Available reports whether the item can be bought.
func (i *Item) Available() bool {
	return i.IsActive
}

// AverageRating is the mean of count ratings summing to sum, rounded to two places.
func AverageRating(sum, count int64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(count), 2)
}
