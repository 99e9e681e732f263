package collection

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the RawCollection layout written by this package.
const SchemaVersion = 1

// RawCollection is the transfer type at the persistence boundary. Entries
// stay encoded until Decode validates them against a Policy.
type RawCollection struct {
	Kind    Kind `json:"kind"`
	Version int  `json:"version"`

	// Revision is unique per written snapshot; remote merges use it to stay idempotent.
	Revision string          `json:"revision"`
	SavedAt  time.Time       `json:"savedAt"`
	Entries  json.RawMessage `json:"entries,omitempty"`
}

// Empty returns a collection of kind k with no entries.
func Empty(k Kind) RawCollection {
	return RawCollection{Kind: k, Version: SchemaVersion}
}

// HasEntries reports whether r carries at least one encoded entry. Entries
// that are not a JSON array count as present so Decode can reject them.
func (r RawCollection) HasEntries() bool {
	trimmed := bytes.TrimSpace(r.Entries)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return true
	}
	return len(items) > 0
}

// Encode snapshots entries into a new revision.
func Encode[E any](p Policy[E], entries []E, now time.Time) (RawCollection, error) {
	if entries == nil {
		entries = []E{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return RawCollection{}, fmt.Errorf("encode %s: %w", p.Kind(), err)
	}
	return RawCollection{
		Kind:     p.Kind(),
		Version:  SchemaVersion,
		Revision: uuid.NewString(),
		SavedAt:  now.UTC(),
		Entries:  b,
	}, nil
}

// Decode validates raw and returns its entries in canonical order. Invalid
// entries are dropped, entries without an id get one, and duplicate lines
// are folded together.
func Decode[E any](p Policy[E], raw RawCollection) ([]E, error) {
	if raw.Kind != "" && raw.Kind != p.Kind() {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrKindMismatch, p.Kind(), raw.Kind)
	}
	if raw.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, raw.Version)
	}
	if !raw.HasEntries() {
		return []E{}, nil
	}

	var decoded []E
	if err := json.Unmarshal(raw.Entries, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEntries, err)
	}

	valid := make([]E, 0, len(decoded))
	for _, e := range decoded {
		e, ok := p.Normalize(e)
		if !ok {
			continue
		}
		if p.ID(e) == "" {
			e = p.Prepare(e, uuid.NewString(), raw.SavedAt)
		}
		valid = append(valid, e)
	}

	return Merge(p, nil, valid), nil
}

// MergeFunc combines a stored collection with an incoming one.
type MergeFunc func(current, incoming RawCollection) (RawCollection, error)

// Merger returns the MergeFunc remote backends use for p's kind.
func Merger[E any](p Policy[E]) MergeFunc {
	return func(current, incoming RawCollection) (RawCollection, error) {
		base, err := Decode(p, current)
		if err != nil {
			return RawCollection{}, err
		}
		in, err := Decode(p, incoming)
		if err != nil {
			return RawCollection{}, err
		}
		return Encode(p, Merge(p, base, in), time.Now())
	}
}
