package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultBusyTimeout is how long a writer waits for the database lock.
const DefaultBusyTimeout = 5 * time.Second

// Open opens a SQLite database with the default busy timeout.
func Open(path string) (*sql.DB, error) {
	return OpenWithTimeout(path, DefaultBusyTimeout)
}

// OpenWithTimeout opens a SQLite database connection and configures pragmas.
//
// Pragmas are passed in the DSN so that every pooled connection gets them.
// Transactions begin with BEGIN IMMEDIATE: the write lock is taken before the
// first read, so check-then-write sequences inside a transaction are
// serialized across connections and processes sharing the file.
func OpenWithTimeout(path string, busyTimeout time.Duration) (*sql.DB, error) {
	q := url.Values{}
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "synchronous(NORMAL)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}
