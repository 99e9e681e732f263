package collection

import "context"

// LocalStore is on-device key-value storage holding guest collections.
type LocalStore interface {
	// Get returns ok=false when nothing is stored under key.
	Get(ctx context.Context, key StorageKey) (raw RawCollection, ok bool, err error)
	Set(ctx context.Context, key StorageKey, raw RawCollection) error
	Remove(ctx context.Context, key StorageKey) error
}

// RemoteStore holds authenticated users' collections, keyed by user id.
type RemoteStore interface {
	// Fetch returns an empty collection when the user has none yet.
	Fetch(ctx context.Context, kind Kind, userID string) (RawCollection, error)
	Replace(ctx context.Context, kind Kind, userID string, raw RawCollection) error
	// Merge folds incoming into the stored collection using the kind's policy.
	Merge(ctx context.Context, kind Kind, userID string, incoming RawCollection) error
	Clear(ctx context.Context, kind Kind, userID string) error
}
