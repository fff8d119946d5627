package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/request-queue/internal/domain"
)

type pgBlobRepository struct {
	pool *pgxpool.Pool
}

// NewPgBlobRepository returns a BlobRepository backed by the kv_blobs table.
func NewPgBlobRepository(pool *pgxpool.Pool) BlobRepository {
	return &pgBlobRepository{pool: pool}
}

func (r *pgBlobRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM kv_blobs WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select blob: %w", err)
	}
	return value, nil
}

// Set upserts the blob inside a serializable transaction, so two processes
// pointed at the same key cannot interleave half-applied writes.
func (r *pgBlobRepository) Set(ctx context.Context, key, value string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO kv_blobs (key, value, version, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    version = kv_blobs.version + 1,
		    updated_at = now()`,
		key, value,
	)
	if err != nil {
		return mapPgError("upsert blob", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgError("commit blob", err)
	}
	return nil
}

func (r *pgBlobRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return fmt.Errorf("%s: %w", op, domain.ErrConcurrentModification)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
