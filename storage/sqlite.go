package storage

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cyberpaste/cyberpaste/models"
)

// SQLiteStore implements PasteStore using SQLite via the CGO-free modernc
// driver. Pastes and tabs live in separate tables; creation runs in one
// transaction so a multi-tab paste is never partially visible.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pastes (
	id          TEXT PRIMARY KEY,
	created_at  INTEGER NOT NULL,
	ttl_seconds INTEGER NOT NULL,
	expires_at  INTEGER,
	encrypted   INTEGER NOT NULL DEFAULT 0,
	views       INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tabs (
	paste_id TEXT    NOT NULL REFERENCES pastes(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT    NOT NULL,
	lang     TEXT    NOT NULL,
	content  TEXT    NOT NULL,
	PRIMARY KEY (paste_id, position)
);
CREATE INDEX IF NOT EXISTS idx_pastes_expires_at ON pastes(expires_at);
`

// NewSQLiteStore opens (and if needed initializes) a SQLite-backed store at
// path. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single writer avoids SQLITE_BUSY churn under concurrent increments.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Insert saves a paste and all its tabs in one transaction.
func (s *SQLiteStore) Insert(ctx context.Context, paste *models.Paste) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM pastes WHERE id = ?", paste.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrDuplicateID
	}

	var expiresAt any
	if paste.ExpiresAt != nil {
		expiresAt = paste.ExpiresAt.UnixMilli()
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO pastes (id, created_at, ttl_seconds, expires_at, encrypted, views) VALUES (?, ?, ?, ?, ?, ?)",
		paste.ID, paste.CreatedAt.UnixMilli(), paste.TTLSeconds, expiresAt, paste.Encrypted, paste.Views,
	)
	if err != nil {
		return err
	}

	for i, tab := range paste.Tabs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO tabs (paste_id, position, name, lang, content) VALUES (?, ?, ?, ?, ?)",
			paste.ID, i, tab.Name, tab.Lang, tab.Content,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get retrieves a paste with its tabs, or (nil, nil) when absent.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Paste, error) {
	var (
		paste     models.Paste
		createdAt int64
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at, ttl_seconds, expires_at, encrypted, views FROM pastes WHERE id = ?", id,
	).Scan(&paste.ID, &createdAt, &paste.TTLSeconds, &expiresAt, &paste.Encrypted, &paste.Views)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	paste.CreatedAt = time.UnixMilli(createdAt)
	if expiresAt.Valid {
		t := time.UnixMilli(expiresAt.Int64)
		paste.ExpiresAt = &t
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, lang, content FROM tabs WHERE paste_id = ? ORDER BY position", id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tab models.Tab
		if err := rows.Scan(&tab.Name, &tab.Lang, &tab.Content); err != nil {
			return nil, err
		}
		paste.Tabs = append(paste.Tabs, tab)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &paste, nil
}

// Exists checks if a paste exists by id.
func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM pastes WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a paste and, via the cascade, its tabs.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM pastes WHERE id = ?", id)
	return err
}

// IncrementViews bumps the view counter in a single UPDATE, which SQLite
// serializes, and returns the new count via RETURNING.
func (s *SQLiteStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := s.db.QueryRowContext(ctx,
		"UPDATE pastes SET views = views + 1 WHERE id = ? RETURNING views", id,
	).Scan(&views)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return views, nil
}

// CountAll returns the number of stored pastes.
func (s *SQLiteStore) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM pastes").Scan(&n)
	return n, err
}

// ScanExpired returns ids whose expiry lies at or before now. Rows with a
// NULL expires_at never expire.
func (s *SQLiteStore) ScanExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM pastes WHERE expires_at IS NOT NULL AND expires_at <= ?", now.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
