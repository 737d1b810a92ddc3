package cmd

import (
	"log/slog"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BriefyHQ/docflow/pkg/persistence/file"
	"github.com/BriefyHQ/docflow/pkg/persistence/sqlite"
)

func TestNewStoreDispatchesByScheme(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()

	fileStore, err := NewStore(ctx, logger, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, fileStore)

	prefixed, err := NewStore(ctx, logger, "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, prefixed)

	sqliteStore, err := NewStore(ctx, logger, "sqlite://"+path.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, sqliteStore)
	require.NoError(t, sqliteStore.Close())
}

func TestNewRegistryKnowsLead(t *testing.T) {
	reg := NewRegistry(slog.Default())

	assert.Equal(t, []string{"lead"}, reg.Entities())

	def, err := reg.Definition("lead")
	require.NoError(t, err)
	assert.True(t, def.Registered())
}

func TestNewEventBusGoChannel(t *testing.T) {
	bus := NewEventBus("gochannel", slog.Default())
	require.NotNil(t, bus)
	assert.NotEmpty(t, bus.GenerateID())
	require.NoError(t, bus.Close())
}

func TestNewEventBusUnsupportedProvider(t *testing.T) {
	assert.Panics(t, func() { NewEventBus("carrier-pigeon", slog.Default()) })
}

func TestNewDocumentCacheDisabled(t *testing.T) {
	c, err := NewDocumentCache(t.Context(), slog.Default(), "", nil)
	require.NoError(t, err)
	assert.Nil(t, c)
}
