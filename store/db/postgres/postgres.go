package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database specified by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := DB{db: postgresDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema. Statements are idempotent so migration runs
// unconditionally on startup.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply migration")
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS knowledge_entry (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		normalized_query TEXT NOT NULL,
		response TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		ai_provider TEXT,
		owner_id INTEGER,
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		is_ai_generated BOOLEAN NOT NULL DEFAULT FALSE,
		confidence DOUBLE PRECISION NOT NULL,
		times_used INTEGER NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL,
		last_verified_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_entry_query ON knowledge_entry (normalized_query)`,
	`CREATE TABLE IF NOT EXISTS answer_cache (
		id SERIAL PRIMARY KEY,
		query_hash TEXT NOT NULL UNIQUE,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		source TEXT NOT NULL,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversation (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		user_id INTEGER,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		knowledge_id INTEGER,
		confidence DOUBLE PRECISION NOT NULL,
		feedback INTEGER NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_user ON conversation (user_id)`,
}

// placeholder returns the positional parameter marker for the given 1-based
// argument index.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
