package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/lingua/internal/config"
)

// Connect establishes a connection to the configured database and creates the schema
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite3":
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		// Write transactions take the lock at BEGIN so a second process waits on busy_timeout
		// instead of failing when a read lock cannot be upgraded
		dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", cfg.Path)
		db, err = sqlx.Connect("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

	case "postgres":
		db, err = sqlx.Connect("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	statements := sqliteSchema
	if db.DriverName() == "postgres" {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS review_states (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		ease_factor REAL NOT NULL DEFAULT 2.5,
		interval_days INTEGER NOT NULL DEFAULT 0,
		repetitions INTEGER NOT NULL DEFAULT 0,
		last_review_date TIMESTAMP,
		next_review_date TIMESTAMP NOT NULL,
		confidence_level INTEGER NOT NULL DEFAULT 0,
		last_quality INTEGER,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(owner_id, item_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_states_due ON review_states(owner_id, next_review_date)`,
	`CREATE TABLE IF NOT EXISTS review_history (
		state_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		reviewed_at TIMESTAMP NOT NULL,
		quality INTEGER NOT NULL,
		time_spent_ms INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (state_id, position),
		FOREIGN KEY (state_id) REFERENCES review_states(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS review_events (
		event_id TEXT PRIMARY KEY,
		state_id INTEGER NOT NULL,
		applied_at TIMESTAMP NOT NULL,
		FOREIGN KEY (state_id) REFERENCES review_states(id) ON DELETE CASCADE
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS review_states (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		item_id BIGINT NOT NULL,
		ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
		interval_days INTEGER NOT NULL DEFAULT 0,
		repetitions INTEGER NOT NULL DEFAULT 0,
		last_review_date TIMESTAMPTZ,
		next_review_date TIMESTAMPTZ NOT NULL,
		confidence_level INTEGER NOT NULL DEFAULT 0,
		last_quality INTEGER,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE(owner_id, item_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_states_due ON review_states(owner_id, next_review_date)`,
	`CREATE TABLE IF NOT EXISTS review_history (
		state_id BIGINT NOT NULL REFERENCES review_states(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		reviewed_at TIMESTAMPTZ NOT NULL,
		quality INTEGER NOT NULL,
		time_spent_ms BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (state_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS review_events (
		event_id TEXT PRIMARY KEY,
		state_id BIGINT NOT NULL REFERENCES review_states(id) ON DELETE CASCADE,
		applied_at TIMESTAMPTZ NOT NULL
	)`,
}
