package wishlist

import (
	"cmp"
	"slices"
	"time"

	"staylook-store/internal/collection"
)

// Policy: one entry per product, duplicates are dropped, newest first.
type Policy struct{}

var _ collection.Policy[Entry] = Policy{}

func (Policy) Kind() collection.Kind { return collection.KindWishlist }

func (Policy) ID(e Entry) string { return e.ID }

func (Policy) Key(e Entry) string { return e.ProductID }

func (Policy) Normalize(e Entry) (Entry, bool) {
	return e, e.ProductID != ""
}

func (Policy) Prepare(e Entry, id string, now time.Time) Entry {
	e.ID = id
	if e.InsertedAt.IsZero() {
		e.InsertedAt = now.UTC()
	}
	return e
}

func (Policy) Absorb(existing, _ Entry) (Entry, bool) {
	return existing, false
}

func (Policy) Prepend() bool { return true }

func (Policy) Order(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(b.InsertedAt.UnixNano(), a.InsertedAt.UnixNano())
	})
}

// Merger is the remote merge for wishlists: the union of both sides.
func Merger() collection.MergeFunc {
	return collection.Merger[Entry](Policy{})
}
