package storefront

import (
	"context"
	"testing"
	"time"

	"staylook-store/internal/cart"
	"staylook-store/internal/collection"
	"staylook-store/internal/collection/collectiontest"
	"staylook-store/internal/session"
	"staylook-store/internal/wishlist"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "scope-test-secret"

type fixture struct {
	scope    *Scope
	local    *collectiontest.Local
	remote   *collectiontest.Remote
	provider *session.Provider
	tokens   *session.Tokens
}

func newFixture(t *testing.T, initial session.Session) *fixture {
	t.Helper()
	f := &fixture{
		local: collectiontest.NewLocal(),
		remote: collectiontest.NewRemote(map[collection.Kind]collection.MergeFunc{
			collection.KindCart:     cart.Merger(),
			collection.KindWishlist: wishlist.Merger(),
		}),
		provider: session.NewProvider(initial),
		tokens:   session.NewTokens(testSecret, time.Hour),
	}
	f.scope = NewScope(context.Background(), Deps{
		Local:    f.local,
		Remote:   f.remote,
		Provider: f.provider,
		Tokens:   f.tokens,
		Options:  collection.Options{Timeout: time.Second},
	})
	t.Cleanup(f.scope.Close)
	return f
}

func (f *fixture) flush() {
	f.scope.Cart.Flush()
	f.scope.Wishlist.Flush()
}

func TestScope_Open(t *testing.T) {
	f := newFixture(t, session.Anonymous())
	f.scope.Open()

	assert.NotEmpty(t, f.scope.ID)
	assert.Equal(t, collection.StatusReady, f.scope.Cart.State().Status)
	assert.Equal(t, collection.StatusReady, f.scope.Wishlist.State().Status)
}

func TestScope_SignIn(t *testing.T) {
	t.Run("Success merges both guest collections", func(t *testing.T) {
		f := newFixture(t, session.Anonymous())
		f.scope.Open()

		f.scope.Cart.AddEntry(cart.Entry{ProductID: "A", VariantKey: "M", Quantity: 2, UnitPrice: decimal.NewFromInt(100)})
		f.scope.Wishlist.AddEntry(wishlist.Entry{ProductID: "B"})
		f.flush()

		token, err := f.tokens.Issue("u1", "u1@example.com")
		require.NoError(t, err)
		require.NoError(t, f.scope.SignIn(token))

		assert.Equal(t, session.User("u1"), f.provider.Current())

		cartState := f.scope.Cart.State()
		assert.Equal(t, 2, cartState.ItemCount)
		assert.Equal(t, "200.00", cartState.Subtotal.StringFixed(2))
		assert.True(t, f.scope.Wishlist.IsPresent("B"))

		_, ok := f.remote.Stored(collection.KindCart, "u1")
		assert.True(t, ok)
		_, ok = f.remote.Stored(collection.KindWishlist, "u1")
		assert.True(t, ok)
		_, ok = f.local.Stored(collection.CartKey)
		assert.False(t, ok)
		_, ok = f.local.Stored(collection.WishlistKey)
		assert.False(t, ok)
	})

	t.Run("Invalid token leaves the session untouched", func(t *testing.T) {
		f := newFixture(t, session.Anonymous())
		f.scope.Open()
		f.scope.Cart.AddEntry(cart.Entry{ProductID: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(5)})

		other := session.NewTokens("another-secret", time.Hour)
		token, err := other.Issue("u1", "u1@example.com")
		require.NoError(t, err)

		err = f.scope.SignIn(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
		assert.Equal(t, session.Anonymous(), f.provider.Current())
		assert.Equal(t, 1, f.scope.Cart.State().ItemCount)
		assert.Equal(t, 0, f.remote.Calls("Merge"))
	})
}

func TestScope_SignOut(t *testing.T) {
	f := newFixture(t, session.User("u1"))
	f.scope.Open()
	f.scope.Cart.AddEntry(cart.Entry{ProductID: "A", Quantity: 3, UnitPrice: decimal.NewFromInt(10)})
	f.flush()

	f.scope.SignOut()

	assert.Equal(t, session.Anonymous(), f.provider.Current())
	assert.Empty(t, f.scope.Cart.State().Entries)

	raw, ok := f.remote.Stored(collection.KindCart, "u1")
	require.True(t, ok)
	assert.True(t, raw.HasEntries(), "the user's cart stays on the remote")
}

func TestScope_Close(t *testing.T) {
	f := newFixture(t, session.Anonymous())
	f.scope.Open()
	f.scope.Close()
	f.scope.Close()

	f.provider.Set(session.User("u1"))

	assert.Equal(t, session.Anonymous(), f.scope.Cart.State().Session)
	assert.Equal(t, 0, f.remote.Calls("Fetch"))
}
