package wishlist

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is a saved product. InsertedAt drives newest-first ordering.
type Entry struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	Price      decimal.Decimal `json:"price"`
	Name       string          `json:"name,omitempty"`
	ImageURL   string          `json:"imageUrl,omitempty"`
	Category   string          `json:"category,omitempty"`
	InsertedAt time.Time       `json:"insertedAt"`
}
