// Package sqlite implements the durable record store on SQLite using
// the ncruces/go-sqlite3 driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"guidd/internal/guid/domain"
)

// schema is applied on every open; IF NOT EXISTS keeps it idempotent.
// created_at/updated_at are store bookkeeping and never leave this
// package.
const schema = `
CREATE TABLE IF NOT EXISTS guid_records (
	id TEXT PRIMARY KEY,
	user TEXT NOT NULL,
	expire INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_guid_records_expire ON guid_records(expire);
`

// DB owns the SQLite connection and hands out repositories bound to it.
type DB struct {
	conn *sql.DB
}

// NewDB opens (creating if needed) the database at path and applies the
// schema. Parent directories are created with 0700. The special path
// ":memory:" opens an in-memory database, which tests use.
func NewDB(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path != ":memory:" {
		if _, err := conn.Exec(`PRAGMA journal_mode=WAL`); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if _, err := conn.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// RecordRepository returns a repository bound to this database.
func (d *DB) RecordRepository() domain.RecordRepository {
	return newRecordRepository(d.conn)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}
