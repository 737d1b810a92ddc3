package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BriefyHQ/docflow/pkg/workflow"
)

func newLeadLikeDefinition(t *testing.T, entity string) *workflow.Definition {
	t.Helper()

	d := workflow.NewDefinition(entity)
	created := d.State("created")
	pending := d.State("pending")
	created.Transition("submit", pending)
	require.NoError(t, d.Register())

	return d
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry(slog.Default())

	def := newLeadLikeDefinition(t, "lead")
	require.NoError(t, reg.Register(def))

	got, err := reg.Definition("lead")
	require.NoError(t, err)
	assert.Equal(t, def, got)

	_, err = reg.Definition("order")
	assert.Error(t, err)
}

func TestRegistryRejectsUnregisteredDefinition(t *testing.T) {
	reg := NewRegistry(slog.Default())

	d := workflow.NewDefinition("lead")
	d.State("created")

	assert.Error(t, reg.Register(d))
}

func TestRegistryRejectsDuplicateEntity(t *testing.T) {
	reg := NewRegistry(slog.Default())

	require.NoError(t, reg.Register(newLeadLikeDefinition(t, "lead")))
	assert.Error(t, reg.Register(newLeadLikeDefinition(t, "lead")))
}

func TestRegistryEntitiesSorted(t *testing.T) {
	reg := NewRegistry(slog.Default())

	require.NoError(t, reg.Register(newLeadLikeDefinition(t, "order")))
	require.NoError(t, reg.Register(newLeadLikeDefinition(t, "lead")))

	assert.Equal(t, []string{"lead", "order"}, reg.Entities())
}
