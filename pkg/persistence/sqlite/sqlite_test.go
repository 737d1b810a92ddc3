package sqlite

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BriefyHQ/docflow/pkg/document"
	"github.com/BriefyHQ/docflow/pkg/persistence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.Context(), path.Join(t.TempDir(), "docflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSQLiteStoreCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.HealthCheck(ctx))

	doc := document.NewMapDocument("lead-1", map[string]any{
		"state": "created",
		"name":  "Acme Corp",
	})

	require.NoError(t, store.SaveDocument(ctx, doc))

	loaded, err := store.DocumentByID(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", loaded.GUID())

	state, _ := loaded.Get("state")
	assert.Equal(t, "created", state)

	// Upsert replaces the body.
	require.NoError(t, doc.Set("state", "pending"))
	require.NoError(t, store.SaveDocument(ctx, doc))

	loaded, err = store.DocumentByID(ctx, "lead-1")
	require.NoError(t, err)
	state, _ = loaded.Get("state")
	assert.Equal(t, "pending", state)

	require.NoError(t, store.DeleteDocument(ctx, "lead-1"))
	assert.True(t, persistence.IsDocumentNotFound(store.DeleteDocument(ctx, "lead-1")))
}

func TestSQLiteStoreDocumentsOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.SaveDocument(ctx, document.NewMapDocument("b", nil)))
	require.NoError(t, store.SaveDocument(ctx, document.NewMapDocument("a", nil)))

	docs, err := store.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].GUID())
	assert.Equal(t, "b", docs[1].GUID())
}

func TestSQLiteStoreNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.DocumentByID(t.Context(), "missing")
	assert.True(t, persistence.IsDocumentNotFound(err))
}
