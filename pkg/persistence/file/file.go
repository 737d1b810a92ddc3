// Package file provides JSON-file-per-document persistence, useful for
// development and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/BriefyHQ/docflow/pkg/document"
	"github.com/BriefyHQ/docflow/pkg/persistence"
)

const dirPerm = 0o755
const filePerm = 0o644

type Store struct {
	root string
}

// NewStore creates a file store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) documentsDir() string {
	return path.Join(s.root, "documents")
}

func (s *Store) documentPath(id string) string {
	return path.Join(s.documentsDir(), id+".json")
}

func (s *Store) Documents(ctx context.Context) ([]*document.MapDocument, error) {
	root := os.DirFS(s.documentsDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, err
	}

	docs := make([]*document.MapDocument, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		doc, err := s.DocumentByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func (s *Store) DocumentByID(_ context.Context, id string) (*document.MapDocument, error) {
	body, err := os.ReadFile(s.documentPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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

func (s *Store) SaveDocument(_ context.Context, doc *document.MapDocument) error {
	if err := os.MkdirAll(s.documentsDir(), dirPerm); err != nil {
		return persistence.NewDocumentError("SaveDocument", doc.GUID(), err)
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return persistence.NewDocumentError("SaveDocument", doc.GUID(), err)
	}

	if err := os.WriteFile(s.documentPath(doc.GUID()), body, filePerm); err != nil {
		return persistence.NewDocumentError("SaveDocument", doc.GUID(), err)
	}

	return nil
}

func (s *Store) DeleteDocument(_ context.Context, id string) error {
	err := os.Remove(s.documentPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewDocumentError("DeleteDocument", id, persistence.ErrDocumentNotFound)
		}

		return persistence.NewDocumentError("DeleteDocument", id, err)
	}

	return nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	return os.MkdirAll(s.documentsDir(), dirPerm)
}

func (s *Store) Close() error { return nil }
