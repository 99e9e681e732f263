package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staylook-store/internal/collection"
	"staylook-store/internal/logger"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var (
	ErrNoMerger        = errors.New("no merge policy registered for collection kind")
	ErrMissingRevision = errors.New("incoming collection has no revision")
	ErrFailedFetch     = errors.New("failed to fetch collection")
	ErrFailedReplace   = errors.New("failed to replace collection")
	ErrFailedMerge     = errors.New("failed to merge collection")
	ErrFailedClear     = errors.New("failed to clear collection")
)

// Repository stores one JSONB snapshot per (user, kind). It implements
// collection.RemoteStore.
type Repository struct {
	db      *sql.DB
	mergers map[collection.Kind]collection.MergeFunc
}

var _ collection.RemoteStore = (*Repository)(nil)

func NewRepository(db *sql.DB, mergers map[collection.Kind]collection.MergeFunc) *Repository {
	return &Repository{db: db, mergers: mergers}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) Fetch(ctx context.Context, kind collection.Kind, userID string) (collection.RawCollection, error) {
	log := r.log(ctx, "Fetch", kind, userID)

	raw, err := r.fetch(ctx, r.db, kind, userID, false)
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		return collection.RawCollection{}, fmt.Errorf("%w: %v", ErrFailedFetch, err)
	}
	return raw, nil
}

func (r *Repository) fetch(ctx context.Context, q queryer, kind collection.Kind, userID string, forUpdate bool) (collection.RawCollection, error) {
	query := `
	SELECT payload
	FROM session_collections
	WHERE user_id = $1 AND kind = $2
	`
	if forUpdate {
		query += "FOR UPDATE"
	}

	var payload []byte
	err := q.QueryRowContext(ctx, query, userID, string(kind)).Scan(&payload)
	if err == sql.ErrNoRows {
		return collection.Empty(kind), nil
	}
	if err != nil {
		return collection.RawCollection{}, err
	}

	var raw collection.RawCollection
	if err := json.Unmarshal(payload, &raw); err != nil {
		return collection.RawCollection{}, err
	}
	return raw, nil
}

func (r *Repository) Replace(ctx context.Context, kind collection.Kind, userID string, raw collection.RawCollection) error {
	log := r.log(ctx, "Replace", kind, userID)

	if err := r.upsert(ctx, r.db, kind, userID, raw); err != nil {
		log.Error("replace failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedReplace, err)
	}

	log.Debug("collection replaced", zap.String("revision", raw.Revision))
	return nil
}

func (r *Repository) upsert(ctx context.Context, q queryer, kind collection.Kind, userID string, raw collection.RawCollection) error {
	raw.Kind = kind
	payload, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
	INSERT INTO session_collections (user_id, kind, payload, revision, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (user_id, kind)
	DO UPDATE SET payload = EXCLUDED.payload, revision = EXCLUDED.revision, updated_at = NOW()
	`, userID, string(kind), payload, raw.Revision)
	return err
}

// Merge folds incoming into the stored collection inside one transaction.
// Each incoming revision is applied at most once per user and kind, so
// retrying a merge whose guest cleanup failed does not double-count.
func (r *Repository) Merge(ctx context.Context, kind collection.Kind, userID string, incoming collection.RawCollection) error {
	log := r.log(ctx, "Merge", kind, userID).With(zap.String("revision", incoming.Revision))
	start := time.Now()

	merge, ok := r.mergers[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoMerger, kind)
	}
	if incoming.Revision == "" {
		return ErrMissingRevision
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("begin tx failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedMerge, err)
	}
	defer tx.Rollback()

	// Serializes merges for the same user and kind, including the first one
	// when no row exists yet to lock.
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
		userID, string(kind),
	); err != nil {
		log.Error("lock failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedMerge, err)
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO collection_merges (user_id, kind, revision)
	VALUES ($1, $2, $3)
	ON CONFLICT DO NOTHING
	`, userID, string(kind), incoming.Revision)
	if err != nil {
		log.Error("record merge failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedMerge, err)
	}
	applied, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedMerge, err)
	}
	if applied == 0 {
		log.Info("revision already merged, skipping")
		return nil
	}

	current, err := r.fetch(ctx, tx, kind, userID, true)
	if err != nil {
		log.Error("fetch for merge failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedMerge, err)
	}

	merged, err := merge(current, incoming)
	if err != nil {
		log.Error("merge policy failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedMerge, err)
	}

	if err := r.upsert(ctx, tx, kind, userID, merged); err != nil {
		log.Error("store merged collection failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedMerge, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedMerge, err)
	}

	log.Info("merge success", zap.Duration("duration", time.Since(start)))
	return nil
}

// Clear removes the stored collection. Clearing an absent collection is not an error.
func (r *Repository) Clear(ctx context.Context, kind collection.Kind, userID string) error {
	log := r.log(ctx, "Clear", kind, userID)

	_, err := r.db.ExecContext(ctx, `
	DELETE FROM session_collections
	WHERE user_id = $1 AND kind = $2
	`, userID, string(kind))
	if err != nil {
		log.Error("clear failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedClear, err)
	}
	return nil
}

func (r *Repository) log(ctx context.Context, method string, kind collection.Kind, userID string) *zap.Logger {
	return logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
		zap.String("kind", string(kind)),
		zap.String("remote_user", userID),
	)
}
