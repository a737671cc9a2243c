package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/formsession/internal/document"
)

// ErrNotFound is returned when a document or revision does not exist.
var ErrNotFound = errors.New("not found")

// Info summarizes a stored document.
type Info struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Version     int64     `json:"version"`
	Revision    int64     `json:"revision"`
	ContentHash string    `json:"content_hash"`
	PersistedAt time.Time `json:"persisted_at"`
}

// Revision is one entry of a document's revision log.
type Revision struct {
	Seq         int64     `json:"seq"`
	DocumentID  string    `json:"document_id"`
	Version     int64     `json:"version"`
	ContentHash string    `json:"content_hash"`
	Revision    int64     `json:"revision"`
	PersistedAt time.Time `json:"persisted_at"`
}

// Load returns the stored state of a document.
func (s *Store) Load(ctx context.Context, id string) (document.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Document{}, fmt.Errorf("load document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("load document %s: %w", id, err)
	}
	return unmarshalDocument(body)
}

// LoadVersion returns the document as stored at the given version.
func (s *Store) LoadVersion(ctx context.Context, id string, version int64) (document.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM revisions WHERE document_id = ? AND version = ?`, id, version,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Document{}, fmt.Errorf("load document %s version %d: %w", id, version, ErrNotFound)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("load document %s version %d: %w", id, version, err)
	}
	return unmarshalDocument(body)
}

// List returns every stored document ordered by ID.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, version, revision, content_hash, persisted_at
		FROM documents
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		var info Info
		var at string
		if err := rows.Scan(&info.ID, &info.Title, &info.Version, &info.Revision, &info.ContentHash, &at); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if info.PersistedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return infos, nil
}

// ListRevisions returns the revision log of a document, oldest first.
// Returns an empty slice (not nil) if the document has no revisions.
func (s *Store) ListRevisions(ctx context.Context, id string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, document_id, version, content_hash, revision, persisted_at
		FROM revisions
		WHERE document_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revs := []Revision{}
	for rows.Next() {
		var r Revision
		var at string
		if err := rows.Scan(&r.Seq, &r.DocumentID, &r.Version, &r.ContentHash, &r.Revision, &at); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		if r.PersistedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revs, nil
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
