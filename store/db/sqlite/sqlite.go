package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database named by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Connect with WAL journal mode and a busy timeout so short write
	// contention waits instead of failing. The modernc.org/sqlite driver
	// takes each pragma prefixed with `_pragma=`.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL mode.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}

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
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uid TEXT NOT NULL UNIQUE,
		normalized_query TEXT NOT NULL,
		response TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		ai_provider TEXT,
		owner_id INTEGER,
		is_public INTEGER NOT NULL DEFAULT 0,
		is_ai_generated INTEGER NOT NULL DEFAULT 0,
		confidence REAL NOT NULL,
		times_used INTEGER NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL,
		last_verified_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_entry_query ON knowledge_entry (normalized_query)`,
	`CREATE TABLE IF NOT EXISTS answer_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_hash TEXT NOT NULL UNIQUE,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		source TEXT NOT NULL,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversation (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uid TEXT NOT NULL UNIQUE,
		user_id INTEGER,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		knowledge_id INTEGER,
		confidence REAL NOT NULL,
		feedback INTEGER NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_user ON conversation (user_id)`,
}
