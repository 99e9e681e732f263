package local

import (
	"context"
	"testing"
	"time"

	"staylook-store/internal/collection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() collection.RawCollection {
	return collection.RawCollection{
		Kind:     collection.KindCart,
		Version:  collection.SchemaVersion,
		Revision: "rev-1",
		SavedAt:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Entries:  []byte(`[{"id":"1","productId":"A","quantity":2}]`),
	}
}

func TestStore_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := New(0, 0)

	_, found, err := s.Get(ctx, collection.CartKey)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, collection.CartKey, sample()))

	raw, found, err := s.Get(ctx, collection.CartKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, collection.KindCart, raw.Kind)
	assert.Equal(t, "rev-1", raw.Revision)
	assert.True(t, raw.SavedAt.Equal(sample().SavedAt))
	assert.JSONEq(t, string(sample().Entries), string(raw.Entries))

	_, found, err = s.Get(ctx, collection.WishlistKey)
	require.NoError(t, err)
	assert.False(t, found, "keys are independent")

	require.NoError(t, s.Remove(ctx, collection.CartKey))
	require.NoError(t, s.Remove(ctx, collection.CartKey))

	_, found, err = s.Get(ctx, collection.CartKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := New(20*time.Millisecond, 0)

	require.NoError(t, s.Set(ctx, collection.CartKey, sample()))
	_, found, err := s.Get(ctx, collection.CartKey)
	require.NoError(t, err)
	assert.True(t, found)

	assert.Eventually(t, func() bool {
		_, found, err := s.Get(ctx, collection.CartKey)
		return err == nil && !found
	}, time.Second, 5*time.Millisecond)
}

func TestStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s := New(0, 0)

	t.Run("Wrong type", func(t *testing.T) {
		s.cache.Set(string(collection.CartKey), "not bytes", 0)

		_, found, err := s.Get(ctx, collection.CartKey)
		assert.False(t, found)
		assert.ErrorIs(t, err, ErrCorruptValue)
	})

	t.Run("Unparseable", func(t *testing.T) {
		s.cache.Set(string(collection.WishlistKey), []byte("{oops"), 0)

		_, found, err := s.Get(ctx, collection.WishlistKey)
		assert.False(t, found)
		assert.ErrorIs(t, err, ErrCorruptValue)
	})
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(0, 0)

	_, _, err := s.Get(ctx, collection.CartKey)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, collection.CartKey, sample()), context.Canceled)
	assert.ErrorIs(t, s.Remove(ctx, collection.CartKey), context.Canceled)
}
