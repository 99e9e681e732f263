package cart

import (
	"time"

	"staylook-store/internal/collection"
)

// Policy: lines are unique by (product, variant), adding an existing line
// sums quantities, and the cart keeps insertion order.
type Policy struct{}

var _ collection.Policy[Entry] = Policy{}

func (Policy) Kind() collection.Kind { return collection.KindCart }

func (Policy) ID(e Entry) string { return e.ID }

func (Policy) Key(e Entry) string { return LineKey(e.ProductID, e.VariantKey) }

func (Policy) Normalize(e Entry) (Entry, bool) {
	if e.ProductID == "" || e.Quantity < 1 || e.UnitPrice.IsNegative() {
		return e, false
	}
	return e, true
}

func (Policy) Prepare(e Entry, id string, now time.Time) Entry {
	e.ID = id
	if e.AddedAt.IsZero() {
		e.AddedAt = now.UTC()
	}
	return e
}

func (Policy) Absorb(existing, incoming Entry) (Entry, bool) {
	existing.Quantity += incoming.Quantity
	return existing, true
}

func (Policy) Prepend() bool { return false }

func (Policy) Order([]Entry) {}

// Merger is the remote merge for carts: overlapping lines sum quantities.
func Merger() collection.MergeFunc {
	return collection.Merger[Entry](Policy{})
}
