package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/notifyhub/request-queue/internal/domain"
)

type sqliteBlobRepository struct {
	db *sql.DB
}

// NewSQLiteBlobRepository returns a BlobRepository backed by the kv_blobs
// table of an embedded SQLite database. See db.OpenSQLite.
func NewSQLiteBlobRepository(db *sql.DB) BlobRepository {
	return &sqliteBlobRepository{db: db}
}

func (r *sqliteBlobRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", mapSQLiteError("select blob", err)
	}
	return value, nil
}

func (r *sqliteBlobRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_blobs (key, value, version, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value,
		    version = kv_blobs.version + 1,
		    updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return mapSQLiteError("upsert blob", err)
	}
	return nil
}

func (r *sqliteBlobRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// mapSQLiteError reports lock contention as a concurrent modification; the
// busy timeout has already expired by the time the driver gives up.
func mapSQLiteError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%s: %w", op, domain.ErrConcurrentModification)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
