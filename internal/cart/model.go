package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one cart line. Name, image, category and price are a snapshot
// taken when the line was added and are never revalidated against the catalog.
type Entry struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	VariantKey string          `json:"variantKey,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Name       string          `json:"name,omitempty"`
	ImageURL   string          `json:"imageUrl,omitempty"`
	Category   string          `json:"category,omitempty"`
	AddedAt    time.Time       `json:"addedAt"`
}

// LineKey identifies the logical line an entry belongs to.
func LineKey(productID, variantKey string) string {
	return productID + "\x00" + variantKey
}

func (e Entry) LineTotal() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// ItemCount is the sum of quantities over entries.
func ItemCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		n += e.Quantity
	}
	return n
}

// Subtotal is the sum of UnitPrice * Quantity over entries.
func Subtotal(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.LineTotal())
	}
	return total
}
