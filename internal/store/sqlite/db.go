// Package sqlite persists users, the trade ledger and birthdays in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// DB is an open SQLite database with the application schema applied.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path in WAL mode and
// applies the schema. Write transactions take the write lock up front so
// concurrent settlements queue on busy_timeout instead of failing to upgrade.
func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// SQLite has a single writer; one connection keeps settlements ordered.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("sqlite opened", "path", path)
	return d, nil
}

// Migrate creates any missing tables, indexes and triggers. It is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}

// Ping is the health probe for the store.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ledger returns the trade ledger backed by d.
func (d *DB) Ledger() *Ledger { return &Ledger{db: d.db} }

// Users returns the account store backed by d.
func (d *DB) Users() *Users { return &Users{db: d.db} }

// Birthdays returns the birthday store backed by d.
func (d *DB) Birthdays() *Birthdays { return &Birthdays{db: d.db} }

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		username     TEXT    NOT NULL UNIQUE,
		hash         TEXT    NOT NULL,
		cash         TEXT    NOT NULL,
		totp_secret  TEXT    NOT NULL DEFAULT '',
		totp_enabled INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS trades (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		symbol     TEXT    NOT NULL,
		shares     INTEGER NOT NULL CHECK (shares <> 0),
		price      TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS trades_user ON trades (user_id, id);

	CREATE TRIGGER IF NOT EXISTS trades_no_update BEFORE UPDATE ON trades
	BEGIN
		SELECT RAISE(ABORT, 'trades are append-only');
	END;

	CREATE TRIGGER IF NOT EXISTS trades_no_delete BEFORE DELETE ON trades
	BEGIN
		SELECT RAISE(ABORT, 'trades are append-only');
	END;

	CREATE TABLE IF NOT EXISTS birthdays (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		name  TEXT    NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		day   INTEGER NOT NULL CHECK (day BETWEEN 1 AND 31)
	);
`
