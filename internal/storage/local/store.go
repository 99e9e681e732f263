package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staylook-store/internal/collection"

	"github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
)

var ErrCorruptValue = errors.New("stored guest value is not a collection")

// Store keeps guest collections in an in-process cache, serialized the way
// device storage would hold them. Entries expire after the guest TTL.
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
}

var _ collection.LocalStore = (*Store)(nil)

// New creates a guest store. ttl <= 0 keeps values until removed.
func New(ttl, cleanupInterval time.Duration) *Store {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Store{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

func (s *Store) Get(ctx context.Context, key collection.StorageKey) (collection.RawCollection, bool, error) {
	if err := ctx.Err(); err != nil {
		return collection.RawCollection{}, false, err
	}

	v, found := s.cache.Get(string(key))
	if !found {
		return collection.RawCollection{}, false, nil
	}

	b, ok := v.([]byte)
	if !ok {
		return collection.RawCollection{}, false, fmt.Errorf("%w: %s", ErrCorruptValue, key)
	}

	var raw collection.RawCollection
	if err := json.Unmarshal(b, &raw); err != nil {
		return collection.RawCollection{}, false, fmt.Errorf("%w: %s: %v", ErrCorruptValue, key, err)
	}
	return raw, true, nil
}

func (s *Store) Set(ctx context.Context, key collection.StorageKey, raw collection.RawCollection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	s.cache.Set(string(key), b, s.ttl)
	return nil
}

func (s *Store) Remove(ctx context.Context, key collection.StorageKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Delete(string(key))
	return nil
}
