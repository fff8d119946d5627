package db_test

import (
	"testing"

	"github.com/notifyhub/request-queue/internal/db"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/queue", "pgx5://u:p@localhost:5432/queue"},
		{"postgresql://u:p@localhost/queue?sslmode=disable", "pgx5://u:p@localhost/queue?sslmode=disable"},
		{"pgx5://localhost/queue", "pgx5://localhost/queue"},
		{"localhost/queue", "pgx5://localhost/queue"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := db.MigrationURL(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
