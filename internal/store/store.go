// Package store is the document store behind the profile, preference and
// progress tools. Documents are schemaless JSON objects keyed by id and
// tagged with a kind and the child they belong to.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Get when no document has the id.
var ErrNotFound = errors.New("document not found")

// Document kinds.
const (
	KindProfile  = "profile"
	KindPrefs    = "prefs"
	KindProgress = "progress"
	KindReport   = "report"
)

// Document is one stored JSON object.
type Document struct {
	ID        string
	Kind      string
	ChildID   string
	Body      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is what tool handlers need from persistence.
type Store interface {
	Upsert(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	ListByChild(ctx context.Context, kind, childID string, since time.Time) ([]Document, error)
}

// SQLiteStore implements Store on a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	// WAL mode for concurrent reads while a turn writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			child_id   TEXT NOT NULL DEFAULT '',
			body       TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_documents_child ON documents (kind, child_id, created_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert inserts doc or replaces the body of the document with the same id.
// CreatedAt is kept from the first insert.
func (s *SQLiteStore) Upsert(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	body := doc.Body
	if body == nil {
		body = map[string]any{}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	now := time.Now().UTC()
	created := doc.CreatedAt.UTC()
	if doc.CreatedAt.IsZero() {
		created = now
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, kind, child_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			child_id = excluded.child_id,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Kind, doc.ChildID, string(raw),
		created.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// Get returns the document with id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, kind, child_id, body, created_at, updated_at FROM documents WHERE id = ?", id,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// ListByChild returns documents of kind for childID created at or after
// since, oldest first. A zero since returns all of them.
func (s *SQLiteStore) ListByChild(ctx context.Context, kind, childID string, since time.Time) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, child_id, body, created_at, updated_at FROM documents
		WHERE kind = ? AND child_id = ? AND created_at >= ?
		ORDER BY created_at, id`,
		kind, childID, since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s documents: %w", kind, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var (
		doc              Document
		body             string
		created, updated string
	)
	if err := row.Scan(&doc.ID, &doc.Kind, &doc.ChildID, &body, &created, &updated); err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal([]byte(body), &doc.Body); err != nil {
		return Document{}, fmt.Errorf("unmarshal document %s: %w", doc.ID, err)
	}
	doc.CreatedAt, _ = time.Parse(timeLayout, created)
	doc.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return doc, nil
}

var _ Store = (*SQLiteStore)(nil)
