// Package sqlite persists upload history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dvloznov/acct-ai/internal/uploads"
)

const timeLayout = time.RFC3339Nano

// Store is a SQLite-backed uploads.Store.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at dbPath and migrates it.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer avoids SQLITE_BUSY between concurrent saves.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadPersistedUploads implements uploads.Store.
func (s *Store) LoadPersistedUploads(ctx context.Context, slot string) ([]uploads.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, content_type, size, object_key, status, error, created_at, updated_at
		FROM upload_items
		WHERE slot = ?
		ORDER BY position ASC`, slot)
	if err != nil {
		return nil, fmt.Errorf("LoadPersistedUploads: query: %w", err)
	}
	defer rows.Close()

	items := []uploads.Item{}
	for rows.Next() {
		var (
			item               uploads.Item
			status             string
			createdAt, updated string
		)
		if err := rows.Scan(&item.ID, &item.Filename, &item.ContentType, &item.Size, &item.Key,
			&status, &item.Error, &createdAt, &updated); err != nil {
			return nil, fmt.Errorf("LoadPersistedUploads: scan: %w", err)
		}
		item.Status = uploads.Status(status)
		item.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		item.UpdatedAt, _ = time.Parse(timeLayout, updated)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadPersistedUploads: rows: %w", err)
	}
	return items, nil
}

// SavePersistedUploads implements uploads.Store. The slot is replaced atomically.
func (s *Store) SavePersistedUploads(ctx context.Context, slot string, items []uploads.Item) error {
	if slot == "" {
		return fmt.Errorf("SavePersistedUploads: slot is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SavePersistedUploads: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM upload_items WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("SavePersistedUploads: clear slot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO upload_items
			(slot, position, id, filename, content_type, size, object_key, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("SavePersistedUploads: prepare: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, slot, i, item.ID, item.Filename, item.ContentType, item.Size,
			item.Key, string(item.Status), item.Error,
			item.CreatedAt.UTC().Format(timeLayout), item.UpdatedAt.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("SavePersistedUploads: insert %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SavePersistedUploads: commit: %w", err)
	}
	return nil
}

var _ uploads.Store = (*Store)(nil)
