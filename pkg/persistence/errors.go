package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error conditions all implementations use.
var (
	// ErrDocumentNotFound indicates no document exists for the given id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentInvalid indicates a stored document could not be decoded.
	ErrDocumentInvalid = errors.New("stored document is invalid")
)

// DocumentError wraps document storage errors with operation context.
type DocumentError struct {
	Op         string // Operation being performed (e.g., "DocumentByID", "Save")
	DocumentID string
	Err        error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s operation failed for document %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a document error with context.
func NewDocumentError(op, documentID string, err error) *DocumentError {
	return &DocumentError{Op: op, DocumentID: documentID, Err: err}
}

// IsDocumentNotFound checks if an error indicates a missing document.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}
