package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect initializes the database connection and runs migrations.
func Connect(ctx context.Context, dsn string, log *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database migrations applied")
	return db, nil
}

// The (user_low, user_high) unique constraint is what makes conversation creation
// idempotent across concurrent callers and service replicas.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
            id TEXT PRIMARY KEY,
            participant_a TEXT NOT NULL,
            participant_b TEXT NOT NULL,
            user_low TEXT NOT NULL,
            user_high TEXT NOT NULL,
            last_message_id TEXT,
            last_message_time TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE(user_low, user_high)
        );`,
	`CREATE INDEX IF NOT EXISTS conversations_low_recent ON conversations (user_low, last_message_time DESC, id DESC);`,
	`CREATE INDEX IF NOT EXISTS conversations_high_recent ON conversations (user_high, last_message_time DESC, id DESC);`,
	`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            conversation_id TEXT NOT NULL REFERENCES conversations(id),
            sender_id TEXT NOT NULL,
            format TEXT NOT NULL,
            content TEXT NOT NULL,
            blob_ref TEXT,
            hidden BOOLEAN NOT NULL DEFAULT FALSE,
            view_mode TEXT,
            duration_seconds INT,
            expires_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS messages_conversation_order ON messages (conversation_id, created_at DESC, id DESC);`,
	`CREATE TABLE IF NOT EXISTS message_reads (
            message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            reader_id TEXT NOT NULL,
            read_at TIMESTAMPTZ NOT NULL,
            PRIMARY KEY(message_id, reader_id)
        );`,
	`CREATE TABLE IF NOT EXISTS snap_views (
            message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            viewer_id TEXT NOT NULL,
            viewed_at TIMESTAMPTZ NOT NULL,
            PRIMARY KEY(message_id, viewer_id)
        );`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
            user_id TEXT PRIMARY KEY,
            display_name TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT '',
            online BOOLEAN NOT NULL DEFAULT FALSE
        );`,
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
