package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"staylook-store/internal/cart"
	"staylook-store/internal/collection"
	"staylook-store/internal/collection/collectiontest"
	"staylook-store/internal/config"
	"staylook-store/internal/wishlist"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "demo-secret",
		GuestTTL:       time.Hour,
		PersistTimeout: time.Second,
		PersistRate:    100,
		PersistBurst:   10,
	}
}

func TestRunScenario(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		remote := collectiontest.NewRemote(map[collection.Kind]collection.MergeFunc{
			collection.KindCart:     cart.Merger(),
			collection.KindWishlist: wishlist.Merger(),
		})
		var out bytes.Buffer

		err := runScenario(context.Background(), testConfig(), remote, &out)
		require.NoError(t, err)

		output := out.String()
		assert.Contains(t, output, "== guest ==")
		assert.Contains(t, output, "== signed in as demo-user ==")
		assert.Equal(t, 2, strings.Count(output, "subtotal 300.00"))
		assert.NotContains(t, output, "!")

		_, ok := remote.Stored(collection.KindCart, demoUserID)
		assert.True(t, ok)
		_, ok = remote.Stored(collection.KindWishlist, demoUserID)
		assert.True(t, ok)
	})

	t.Run("Merge failure is reported", func(t *testing.T) {
		remote := collectiontest.NewRemote(nil)
		remote.Fail("Merge", errors.New("remote unavailable"))
		var out bytes.Buffer

		err := runScenario(context.Background(), testConfig(), remote, &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "remote unavailable")
	})

	t.Run("Missing secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.JWTSecret = ""

		err := runScenario(context.Background(), cfg, collectiontest.NewRemote(nil), &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestRun_DatabaseError(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("APP_ENV", "test")

	orig := openDBFunc
	defer func() { openDBFunc = orig }()
	openDBFunc = func(cfg *config.Config) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}

	err := run(context.Background(), &bytes.Buffer{})
	assert.EqualError(t, err, "connection refused")
}
