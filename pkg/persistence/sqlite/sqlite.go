// Package sqlite provides embedded SQLite persistence for documents, with
// no external services required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/BriefyHQ/docflow/pkg/document"
	"github.com/BriefyHQ/docflow/pkg/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path and ensures the
// schema exists. Use "file:name?mode=memory&cache=shared" for an in-memory
// store.
func NewStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Documents(ctx context.Context) ([]*document.MapDocument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*document.MapDocument

	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}

		var doc document.MapDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", persistence.ErrDocumentInvalid, err)
		}

		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

func (s *Store) DocumentByID(ctx context.Context, id string) (*document.MapDocument, error) {
	var body []byte

	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDocumentError("DocumentByID", id, persistence.ErrDocumentNotFound)
		}

		return nil, persistence.NewDocumentError("DocumentByID", id, err)
	}

	var doc document.MapDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, persistence.NewDocumentError("DocumentByID", id,
			fmt.Errorf("%w: %w", persistence.ErrDocumentInvalid, err))
	}

	return &doc, nil
}

func (s *Store) SaveDocument(ctx context.Context, doc *document.MapDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return persistence.NewDocumentError("SaveDocument", doc.GUID(), err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`, doc.GUID(), body)
	if err != nil {
		return persistence.NewDocumentError("SaveDocument", doc.GUID(), err)
	}

	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return persistence.NewDocumentError("DeleteDocument", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewDocumentError("DeleteDocument", id, err)
	}

	if affected == 0 {
		return persistence.NewDocumentError("DeleteDocument", id, persistence.ErrDocumentNotFound)
	}

	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
