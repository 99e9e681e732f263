package collection

import "time"

// Policy is everything that differs between collection kinds.
type Policy[E any] interface {
	Kind() Kind
	ID(e E) string
	// Key identifies the logical line; a collection holds at most one entry per key.
	Key(e E) string
	// Normalize validates an entry, returning ok=false for one that may not
	// live in a collection.
	Normalize(e E) (E, bool)
	// Prepare stamps a freshly inserted entry.
	Prepare(e E, id string, now time.Time) E
	// Absorb folds incoming into an existing entry with the same key.
	// changed=false means the collection is left as is.
	Absorb(existing, incoming E) (merged E, changed bool)
	// Prepend reports whether new entries go to the front.
	Prepend() bool
	// Order sorts entries in place into the kind's canonical order.
	Order(entries []E)
}

func indexByKey[E any](p Policy[E], entries []E, key string) int {
	for i, e := range entries {
		if p.Key(e) == key {
			return i
		}
	}
	return -1
}

func indexByID[E any](p Policy[E], entries []E, id string) int {
	for i, e := range entries {
		if p.ID(e) == id {
			return i
		}
	}
	return -1
}

// Merge folds incoming into base the same way repeated adds would: lines
// already in base absorb the incoming ones, new lines are added, and the
// result is put in canonical order. base is not modified.
func Merge[E any](p Policy[E], base, incoming []E) []E {
	out := make([]E, len(base), len(base)+len(incoming))
	copy(out, base)

	for _, in := range incoming {
		if i := indexByKey(p, out, p.Key(in)); i >= 0 {
			if merged, changed := p.Absorb(out[i], in); changed {
				out[i] = merged
			}
			continue
		}
		out = append(out, in)
	}

	p.Order(out)
	return out
}
