// Package postgresql provides PostgreSQL persistence for documents.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/BriefyHQ/docflow/pkg/document"
	"github.com/BriefyHQ/docflow/pkg/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects to PostgreSQL and ensures the schema exists.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
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

	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = $1`, id).Scan(&body)
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
		INSERT INTO documents (id, body, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`, doc.GUID(), body)
	if err != nil {
		return persistence.NewDocumentError("SaveDocument", doc.GUID(), err)
	}

	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
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
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
