package postgresql

import (
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BriefyHQ/docflow/pkg/document"
	"github.com/BriefyHQ/docflow/pkg/persistence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set, skipping PostgreSQL integration tests")
	}

	store, err := NewStore(t.Context(), slog.Default(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestPostgresStoreCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.HealthCheck(ctx))

	id := "lead-" + uuid.New().String()
	doc := document.NewMapDocument(id, map[string]any{"state": "created"})

	require.NoError(t, store.SaveDocument(ctx, doc))
	t.Cleanup(func() { _ = store.DeleteDocument(ctx, id) })

	loaded, err := store.DocumentByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.GUID())

	state, _ := loaded.Get("state")
	assert.Equal(t, "created", state)

	require.NoError(t, doc.Set("state", "pending"))
	require.NoError(t, store.SaveDocument(ctx, doc))

	loaded, err = store.DocumentByID(ctx, id)
	require.NoError(t, err)
	state, _ = loaded.Get("state")
	assert.Equal(t, "pending", state)

	require.NoError(t, store.DeleteDocument(ctx, id))
	assert.True(t, persistence.IsDocumentNotFound(store.DeleteDocument(ctx, id)))
}

func TestPostgresStoreNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.DocumentByID(t.Context(), "missing-"+uuid.New().String())
	assert.True(t, persistence.IsDocumentNotFound(err))
}
