// Package kvsql implements storage.Driver over a database/sql connection with
// a single "kv" table. The sqlite and postgres drivers embed it.
package kvsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/tarot/pkg/storage"
)

// Dialect carries the SQL that differs between databases.
type Dialect struct {
	// Name is used in error messages.
	Name string

	// Schema creates the kv table if it doesn't exist.
	Schema string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder func(n int) string
}

// SQLite is the dialect for mattn/go-sqlite3.
var SQLite = Dialect{
	Name: "sqlite",
	Schema: `CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	Placeholder: func(int) string { return "?" },
}

// Postgres is the dialect for the pgx stdlib driver.
var Postgres = Dialect{
	Name: "postgres",
	Schema: `CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
}

// Driver implements storage.Driver.
type Driver struct {
	DB      *sql.DB
	dialect Dialect

	getQuery    string
	setQuery    string
	removeQuery string
}

// New wraps db and creates the kv table.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Driver, error) {
	if _, err := db.ExecContext(ctx, d.Schema); err != nil {
		return nil, fmt.Errorf("failed to create %s schema: %w", d.Name, err)
	}

	p := d.Placeholder
	upsert := "INSERT INTO kv (key, value, updated_at) VALUES (" + p(1) + ", " + p(2) + ", " + p(3) + ") " +
		"ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at"

	return &Driver{
		DB:          db,
		dialect:     d,
		getQuery:    "SELECT value FROM kv WHERE key = " + p(1),
		setQuery:    upsert,
		removeQuery: "DELETE FROM kv WHERE key = " + p(1),
	}, nil
}

// Get implements storage.Driver.
func (d *Driver) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := d.DB.QueryRowContext(ctx, d.getQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("%s get %q: %w", d.dialect.Name, key, err)
	}
	return value, nil
}

// Set implements storage.Driver.
func (d *Driver) Set(ctx context.Context, key string, value []byte) error {
	if _, err := d.DB.ExecContext(ctx, d.setQuery, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s set %q: %w", d.dialect.Name, key, err)
	}
	return nil
}

// Remove implements storage.Driver.
func (d *Driver) Remove(ctx context.Context, key string) error {
	if _, err := d.DB.ExecContext(ctx, d.removeQuery, key); err != nil {
		return fmt.Errorf("%s remove %q: %w", d.dialect.Name, key, err)
	}
	return nil
}

// Close implements storage.Driver.
func (d *Driver) Close() error {
	return d.DB.Close()
}
