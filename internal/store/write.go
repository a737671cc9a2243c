package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/formsession/internal/document"
)

// ErrMissingID is returned by Save for a document without an ID.
var ErrMissingID = errors.New("document id is required")

// Save stores doc as the complete current state for doc.ID and appends a
// revision. It implements the session gateway contract:
//
//   - full replace: nothing from the previous row survives
//   - idempotent: if the stored content hash equals doc's hash, Save does
//     nothing and appends no revision
//
// A zero PersistedAt is stamped with the current time.
func (s *Store) Save(ctx context.Context, doc document.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("save document: %w", ErrMissingID)
	}
	if doc.PersistedAt.IsZero() {
		doc.PersistedAt = time.Now().UTC()
	}

	hash, err := document.Hash(doc)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	body, err := marshalDocument(doc)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save document %s: begin: %w", doc.ID, err)
	}
	defer tx.Rollback()

	var storedHash string
	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT content_hash, version FROM documents WHERE id = ?`, doc.ID,
	).Scan(&storedHash, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		version = 0
	case err != nil:
		return fmt.Errorf("save document %s: read current: %w", doc.ID, err)
	case storedHash == hash:
		return nil
	}
	version++
	at := formatTime(doc.PersistedAt)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, body, content_hash, revision, version, persisted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			content_hash = excluded.content_hash,
			revision = excluded.revision,
			version = excluded.version,
			persisted_at = excluded.persisted_at
	`, doc.ID, doc.Title, body, hash, doc.Revision, version, at)
	if err != nil {
		return fmt.Errorf("save document %s: upsert: %w", doc.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revisions (document_id, version, content_hash, revision, body, persisted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, version, hash, doc.Revision, body, at)
	if err != nil {
		return fmt.Errorf("save document %s: append revision: %w", doc.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save document %s: commit: %w", doc.ID, err)
	}
	return nil
}

// Delete removes a document and its revisions. Deleting a missing document
// returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete document %s: %w", id, ErrNotFound)
	}
	return nil
}
