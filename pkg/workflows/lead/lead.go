// Package lead declares the approval workflow for lead documents: a lead is
// created by a customer, submitted for review and then approved or rejected
// by an editor.
package lead

import (
	"context"
	"time"

	"github.com/BriefyHQ/docflow/pkg/workflow"
)

// Entity is the entity type leads are registered under.
const Entity = "lead"

// Group granted review rights on leads.
const EditorGroup = "editor"

// NewDefinition builds and registers the lead workflow definition.
func NewDefinition() (*workflow.Definition, error) {
	d := workflow.NewDefinition(Entity)

	created := d.State("created", workflow.StateTitle("Created"))
	pending := d.State("pending", workflow.StateTitle("Pending review"))
	approved := d.State("approved", workflow.StateTitle("Approved"))
	rejected := d.State("rejected", workflow.StateTitle("Rejected"))

	// Only the creator may submit their own lead.
	d.Permission("can_submit", func(w *workflow.Workflow) bool {
		actor := w.Actor()
		if actor == nil {
			return false
		}

		creator, ok := w.Document().Get(w.Definition().CreatorAttrName())

		return ok && creator == actor.ID
	})

	d.Grant("review").ForGroups(EditorGroup)

	d.Transition("submit", created, pending,
		workflow.Guard("can_submit"),
		workflow.WithHook(stampSubmission),
	)
	d.Transition("approve", pending, approved, workflow.Guard("review"))
	d.Transition("reject", pending, rejected,
		workflow.Guard("review"),
		workflow.RequireMessage(),
		workflow.ExtraFrom(approved),
	)

	if err := d.Register(); err != nil {
		return nil, err
	}

	return d, nil
}

func stampSubmission(_ context.Context, w *workflow.Workflow, _ *workflow.Request) (map[string]any, error) {
	err := w.Document().Set("submitted_at", time.Now().UTC().Format(time.RFC3339))

	return nil, err
}
