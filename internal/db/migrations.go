package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Applied migrations are recorded by index in schema_migrations. Append new
// migrations at the end; never reorder.
var migrations = []string{
	// Migration 1: availability listings group tickets by type and owner.
	`CREATE INDEX IF NOT EXISTS idx_tickets_type_owner ON tickets(type, owner_id)`,
}

// Migrate applies pending migrations inside one transaction.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migrations: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("ensuring schema_migrations: %w", err)
	}

	for i, m := range migrations {
		version := i + 1

		var applied bool
		if err := tx.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = ?)`, version,
		).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied {
			continue
		}

		if _, err := tx.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migrations: %w", err)
	}
	return nil
}
