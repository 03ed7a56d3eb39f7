package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS clusters (
	position INTEGER PRIMARY KEY,
	name     TEXT NOT NULL UNIQUE
)`

// SQLiteStore keeps the registry in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dsn and creates the schema if needed.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}
	// A single connection keeps in-memory databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate registry database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns the registered names in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM clusters ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query registry: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan registry row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return names, nil
}

// Save replaces every row in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, names []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin registry transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM clusters"); err != nil {
		return fmt.Errorf("failed to clear registry: %w", err)
	}
	for i, name := range names {
		if _, err = tx.ExecContext(ctx, "INSERT INTO clusters (position, name) VALUES (?, ?)", i, name); err != nil {
			return fmt.Errorf("failed to insert %s into registry: %w", name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registry: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
