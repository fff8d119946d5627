package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/notifyhub/request-queue/internal/domain"
)

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"serialization failure", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, true},
		{"deadlock", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, true},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"plain error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPgError("upsert blob", tt.err)
			if errors.Is(got, domain.ErrConcurrentModification) != tt.retryable {
				t.Fatalf("retryable = %v, want %v (err: %v)", !tt.retryable, tt.retryable, got)
			}
			if !tt.retryable && !errors.Is(got, tt.err) {
				t.Fatalf("original error must stay wrapped, got %v", got)
			}
		})
	}
}

func TestMapSQLiteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"plain error", errors.New("disk I/O error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapSQLiteError("upsert blob", tt.err)
			if errors.Is(got, domain.ErrConcurrentModification) != tt.retryable {
				t.Fatalf("retryable = %v, want %v (err: %v)", !tt.retryable, tt.retryable, got)
			}
		})
	}
}
