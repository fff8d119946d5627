package repository

import "context"

// BlobRepository is the key-value substrate the request queue persists into.
// Each key holds one string blob that must survive process restarts.
//
// Implementations return domain.ErrNotFound from Get for a missing key and
// domain.ErrConcurrentModification from Set when the write raced with
// another writer and may succeed if repeated.
//
// The pgx implementation is in pg_blob_repo.go, the SQLite one in
// sqlite_blob_repo.go. Tests use a hand-written mock (mock_blob_repo.go).
type BlobRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Ping reports whether the substrate is reachable.
	Ping(ctx context.Context) error
}
