package logger

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	originalLog := log
	defer func() { log = originalLog }()

	t.Run("Production", func(t *testing.T) {
		Init("production")
		assert.NotNil(t, log)
	})

	t.Run("Development", func(t *testing.T) {
		Init("development")
		assert.NotNil(t, log)
	})

	t.Run("Test", func(t *testing.T) {
		Init("test")
		assert.NotNil(t, log)
		assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	})
}

func TestL(t *testing.T) {
	originalLog := log
	defer func() { log = originalLog }()

	log = nil
	os.Setenv("APP_ENV", "test")

	l := L()
	assert.NotNil(t, l)
	assert.NotNil(t, log)
}

func TestReplace(t *testing.T) {
	originalLog := log
	defer func() { log = originalLog }()

	custom := zap.NewNop()
	restore := Replace(custom)
	assert.Same(t, custom, L())

	restore()
	assert.Equal(t, originalLog, log)
}

func TestContextFunctions(t *testing.T) {
	ctx := context.Background()

	t.Run("ScopeID", func(t *testing.T) {
		assert.Equal(t, "", ScopeIDFrom(ctx))
		assert.Equal(t, "scope-1", ScopeIDFrom(WithScopeID(ctx, "scope-1")))
	})

	t.Run("UserID", func(t *testing.T) {
		assert.Equal(t, "", UserIDFrom(ctx))
		assert.Equal(t, "user-1", UserIDFrom(WithUserID(ctx, "user-1")))
	})
}

func TestFromCtx(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	defer restore()

	t.Run("WithIDs", func(t *testing.T) {
		ctx := WithUserID(WithScopeID(context.Background(), "scope-abc"), "user-42")

		FromCtx(ctx).Info("test message with ids")

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		assert.Equal(t, "test message with ids", logs[0].Message)

		fields := logs[0].ContextMap()
		assert.Equal(t, "scope-abc", fields["scope_id"])
		assert.Equal(t, "user-42", fields["user_id"])
	})

	t.Run("WithoutIDs", func(t *testing.T) {
		FromCtx(context.Background()).Info("test message without ids")

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)

		fields := logs[0].ContextMap()
		_, ok := fields["scope_id"]
		assert.False(t, ok)
		_, ok = fields["user_id"]
		assert.False(t, ok)
	})
}

func TestSync(t *testing.T) {
	assert.NotPanics(t, func() {
		Sync()
	})
}
