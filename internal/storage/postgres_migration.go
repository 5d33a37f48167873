package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		self_signup BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS watch_progress (
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		position_seconds BIGINT NOT NULL CHECK (position_seconds >= 0),
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS auth_sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
}

// ensureSchema creates the tables the service relies on. Statements are
// idempotent so startup can run them unconditionally.
func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, statement := range schemaStatements {
		if _, err := pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
