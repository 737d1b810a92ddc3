// Package persistence provides the document storage abstraction used by the
// CLI and the HTTP API. The workflow engine itself never talks to a store;
// it only sees the document handed to it.
package persistence

import (
	"context"

	"github.com/BriefyHQ/docflow/pkg/document"
)

// Store persists documents keyed by id.
type Store interface {
	// Documents returns every stored document.
	Documents(ctx context.Context) ([]*document.MapDocument, error)

	// DocumentByID returns the document with the given id, or a
	// DocumentError wrapping ErrDocumentNotFound.
	DocumentByID(ctx context.Context, id string) (*document.MapDocument, error)

	// SaveDocument creates or replaces a document.
	SaveDocument(ctx context.Context, doc *document.MapDocument) error

	// DeleteDocument removes a document.
	DeleteDocument(ctx context.Context, id string) error

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
