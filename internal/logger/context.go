package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	scopeIDKey ctxKey = "scope_id"
	userIDKey  ctxKey = "user_id"
)

// WithScopeID tags ctx with the id of the session scope that issued the work.
func WithScopeID(ctx context.Context, scopeID string) context.Context {
	return context.WithValue(ctx, scopeIDKey, scopeID)
}

func ScopeIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(scopeIDKey).(string); ok {
		return v
	}
	return ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// FromCtx returns logger with scope_id and user_id automatically added
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if id := ScopeIDFrom(ctx); id != "" {
		l = l.With(zap.String("scope_id", id))
	}
	if id := UserIDFrom(ctx); id != "" {
		l = l.With(zap.String("user_id", id))
	}
	return l
}
