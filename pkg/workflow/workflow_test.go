package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BriefyHQ/docflow/pkg/document"
)

func newDoc(attrs map[string]any) *document.MapDocument {
	return document.NewMapDocument("doc-1", attrs)
}

func fixedClock(t *testing.T) (func() time.Time, time.Time) {
	t.Helper()

	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	return func() time.Time { return now }, now
}

func TestNewRequiresRegisteredDefinition(t *testing.T) {
	d := NewDefinition("ticket")
	d.State("open")

	_, err := New(d, newDoc(nil), nil)
	require.ErrorIs(t, err, ErrNotRegistered)
	assert.True(t, IsRegistrationError(err))
}

func TestNewInitializesEmptyDocument(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(nil)

	clock, now := fixedClock(t)
	wf, err := New(d, doc, &Actor{ID: "u1"}, WithClock(clock))
	require.NoError(t, err)

	assert.Equal(t, "open", wf.StateValue())

	history := wf.History()
	require.Len(t, history, 1)
	assert.Equal(t, "", history[0].From)
	assert.Equal(t, "open", history[0].To)
	assert.Equal(t, "create", history[0].Transition)
	assert.Equal(t, "u1", history[0].Actor)
	assert.Equal(t, now, history[0].Date)

	contextValue, ok := doc.Get("workflow_context")
	require.True(t, ok)
	assert.Equal(t, "u1", contextValue)
}

func TestNewInitializationFallsBackToCreator(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"creator": "author-7"})

	wf, err := New(d, doc, nil)
	require.NoError(t, err)

	history := wf.History()
	require.Len(t, history, 1)
	assert.Equal(t, "author-7", history[0].Actor)
}

func TestNewAcceptsDocumentInKnownState(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "assigned"})

	wf, err := New(d, doc, nil)
	require.NoError(t, err)

	assert.Equal(t, "assigned", wf.StateValue())
	assert.Empty(t, wf.History())
}

func TestNewRejectsUnknownState(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "limbo"})

	_, err := New(d, doc, nil)
	require.ErrorIs(t, err, ErrUnknownState)
	assert.True(t, IsStateError(err))

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "limbo", stateErr.Value)
}

func TestTransitionMovesStateAndAppendsHistory(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(nil)

	clock, now := fixedClock(t)
	wf, err := New(d, doc, &Actor{ID: "u1"}, WithClock(clock))
	require.NoError(t, err)

	err = wf.Transition(context.Background(), "assign", WithMessage("taking this one"))
	require.NoError(t, err)

	assert.Equal(t, "assigned", wf.StateValue())

	history := wf.History()
	require.Len(t, history, 2)

	last := history[1]
	assert.Equal(t, "open", last.From)
	assert.Equal(t, "assigned", last.To)
	assert.Equal(t, "assign", last.Transition)
	assert.Equal(t, "u1", last.Actor)
	assert.Equal(t, "taking this one", last.Message)
	assert.Equal(t, now, last.Date)
}

func TestTransitionAppliesFields(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(nil)

	wf, err := New(d, doc, &Actor{ID: "u1", Groups: []string{"agents"}})
	require.NoError(t, err)

	require.NoError(t, wf.Transition(context.Background(), "assign"))
	require.NoError(t, wf.Transition(context.Background(), "resolve",
		WithField("resolution", "restarted the router")))

	resolution, ok := doc.Get("resolution")
	require.True(t, ok)
	assert.Equal(t, "restarted the router", resolution)
	assert.Equal(t, "resolved", wf.StateValue())
}

func TestTransitionUnknownForCurrentState(t *testing.T) {
	d := newTicketDefinition(t)
	wf, err := New(d, newDoc(nil), nil)
	require.NoError(t, err)

	// "resolve" exists, but only out of assigned.
	err = wf.Transition(context.Background(), "resolve")
	require.ErrorIs(t, err, ErrTransitionUnknown)

	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "open", transitionErr.State)
	assert.Equal(t, "resolve", transitionErr.Transition)
}

func TestTransitionRequiredFieldMissing(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "assigned"})

	wf, err := New(d, doc, &Actor{ID: "u1", Groups: []string{"agents"}})
	require.NoError(t, err)

	err = wf.Transition(context.Background(), "resolve")
	require.ErrorIs(t, err, ErrFieldRequired)

	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "resolution", transitionErr.Field)

	// Nothing changed.
	assert.Equal(t, "assigned", wf.StateValue())
	assert.Empty(t, wf.History())
}

func TestTransitionMessageRequired(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "resolved"})

	wf, err := New(d, doc, nil)
	require.NoError(t, err)

	err = wf.Transition(context.Background(), "close")
	require.ErrorIs(t, err, ErrMessageRequired)

	require.NoError(t, wf.Transition(context.Background(), "close", WithMessage("done")))
	assert.Equal(t, "closed", wf.StateValue())
}

func TestTransitionFieldCheckPrecedesGuard(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "assigned"})

	// Actor is not an agent, and the required field is missing; the field
	// error wins.
	wf, err := New(d, doc, &Actor{ID: "u1"})
	require.NoError(t, err)

	err = wf.Transition(context.Background(), "resolve")
	assert.ErrorIs(t, err, ErrFieldRequired)
}

func TestTransitionPermissionDenied(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "assigned"})

	wf, err := New(d, doc, &Actor{ID: "u1"})
	require.NoError(t, err)

	err = wf.Transition(context.Background(), "resolve", WithField("resolution", "n/a"))
	require.ErrorIs(t, err, ErrPermissionDenied)

	var permissionErr *PermissionError
	require.ErrorAs(t, err, &permissionErr)
	assert.Equal(t, "agent", permissionErr.Permission)

	assert.Equal(t, "assigned", wf.StateValue())
}

func TestTransitionAnonymousActorDeniedGuarded(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "assigned"})

	wf, err := New(d, doc, nil)
	require.NoError(t, err)

	err = wf.Transition(context.Background(), "resolve", WithField("resolution", "n/a"))
	assert.True(t, IsPermissionError(err))
}

func TestSharedTransitionDispatchesByCurrentState(t *testing.T) {
	d := newTicketDefinition(t)

	for _, from := range []string{"resolved", "closed"} {
		doc := newDoc(map[string]any{"state": from})

		wf, err := New(d, doc, nil)
		require.NoError(t, err)

		require.NoError(t, wf.Transition(context.Background(), "reopen"))
		assert.Equal(t, "open", wf.StateValue())

		history := wf.History()
		require.Len(t, history, 1)
		assert.Equal(t, from, history[0].From)
	}
}

func TestSharedTransitionRefusedElsewhere(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "assigned"})

	wf, err := New(d, doc, nil)
	require.NoError(t, err)

	err = wf.Transition(context.Background(), "reopen")
	assert.ErrorIs(t, err, ErrTransitionUnknown)
}

func TestHookReceivesExtrasAndMutates(t *testing.T) {
	d := NewDefinition("ticket")
	open := d.State("open")
	closed := d.State("closed")

	var gotExtra any

	open.Transition("close", closed).Hook(func(ctx context.Context, w *Workflow, req *Request) (map[string]any, error) {
		gotExtra = req.Extra["reason"]

		return nil, w.Document().Set("closed_by", "hook")
	})

	require.NoError(t, d.Register())

	doc := newDoc(nil)
	wf, err := New(d, doc, nil)
	require.NoError(t, err)

	require.NoError(t, wf.Transition(context.Background(), "close", WithExtra("reason", "stale")))

	assert.Equal(t, "stale", gotExtra)

	closedBy, _ := doc.Get("closed_by")
	assert.Equal(t, "hook", closedBy)
}

func TestHookErrorAbortsTransition(t *testing.T) {
	d := NewDefinition("ticket")
	open := d.State("open")
	closed := d.State("closed")

	hookErr := errors.New("downstream unavailable")
	open.Transition("close", closed, WithHook(func(context.Context, *Workflow, *Request) (map[string]any, error) {
		return nil, hookErr
	}))

	require.NoError(t, d.Register())

	wf, err := New(d, newDoc(nil), nil)
	require.NoError(t, err)

	err = wf.Transition(context.Background(), "close")
	require.ErrorIs(t, err, hookErr)

	assert.Equal(t, "open", wf.StateValue())
	assert.Len(t, wf.History(), 1)
}

func TestHookReplacesAuditMessage(t *testing.T) {
	d := NewDefinition("ticket")
	open := d.State("open")
	closed := d.State("closed")

	open.Transition("close", closed, WithHook(func(context.Context, *Workflow, *Request) (map[string]any, error) {
		return map[string]any{"message": "closed automatically"}, nil
	}))

	require.NoError(t, d.Register())

	wf, err := New(d, newDoc(nil), nil)
	require.NoError(t, err)

	require.NoError(t, wf.Transition(context.Background(), "close", WithMessage("manual")))

	history := wf.History()
	require.Len(t, history, 2)
	assert.Equal(t, "closed automatically", history[1].Message)
}

func TestTransitionsFilteredByPermission(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "assigned"})

	wf, err := New(d, doc, &Actor{ID: "u1"})
	require.NoError(t, err)

	// "resolve" is guarded by the agent permission and hidden from a plain
	// actor.
	assert.Empty(t, wf.Transitions())

	agent, err := New(d, newDoc(map[string]any{"state": "assigned"}), &Actor{ID: "a1", Groups: []string{"agents"}})
	require.NoError(t, err)

	transitions := agent.Transitions()
	require.Len(t, transitions, 1)
	assert.Equal(t, "resolve", transitions[0].Name())
}

func TestTransitionsDeclarationOrder(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "resolved"})

	wf, err := New(d, doc, nil)
	require.NoError(t, err)

	transitions := wf.Transitions()
	require.Len(t, transitions, 2)
	assert.Equal(t, "reopen", transitions[0].Name())
	assert.Equal(t, "close", transitions[1].Name())
}

func TestPermissionsEvaluated(t *testing.T) {
	d := newTicketDefinition(t)

	agent, err := New(d, newDoc(nil), &Actor{ID: "a1", Groups: []string{"agents"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"agent"}, agent.Permissions())

	plain, err := New(d, newDoc(nil), &Actor{ID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, plain.Permissions())
}

func TestAttachedStateActive(t *testing.T) {
	d := newTicketDefinition(t)

	wf, err := New(d, newDoc(nil), nil)
	require.NoError(t, err)

	current := wf.State()
	require.NotNil(t, current)
	assert.Equal(t, "open", current.Name())
	assert.True(t, current.Active())

	closed, err := wf.StateOf("closed")
	require.NoError(t, err)
	assert.False(t, closed.Active())

	_, err = wf.StateOf("limbo")
	assert.True(t, IsStateError(err))
}

func TestAttachedTransitionExecuteRoutesByCurrentState(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(map[string]any{"state": "closed"})

	wf, err := New(d, doc, nil)
	require.NoError(t, err)

	reopen, err := wf.TransitionOf("reopen")
	require.NoError(t, err)
	assert.Equal(t, "closed", reopen.From())

	require.NoError(t, reopen.Execute(context.Background()))
	assert.Equal(t, "open", wf.StateValue())

	_, err = wf.TransitionOf("escalate")
	assert.ErrorIs(t, err, ErrTransitionUnknown)
}

func TestHistorySurvivesJSONRoundTrip(t *testing.T) {
	d := newTicketDefinition(t)
	doc := newDoc(nil)

	clock, now := fixedClock(t)
	wf, err := New(d, doc, &Actor{ID: "u1"}, WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, wf.Transition(context.Background(), "assign", WithMessage("mine")))

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	restored := &document.MapDocument{}
	require.NoError(t, json.Unmarshal(raw, restored))

	wf2, err := New(d, restored, nil)
	require.NoError(t, err)

	history := wf2.History()
	require.Len(t, history, 2)
	assert.Equal(t, "assign", history[1].Transition)
	assert.Equal(t, "mine", history[1].Message)
	assert.True(t, now.Equal(history[1].Date))

	// Another transition appends to the normalized list.
	agent, err := New(d, restored, &Actor{ID: "a1", Groups: []string{"agents"}})
	require.NoError(t, err)
	require.NoError(t, agent.Transition(context.Background(), "resolve", WithField("resolution", "ok")))
	assert.Len(t, agent.History(), 3)
}

func TestStateEqual(t *testing.T) {
	d := newTicketDefinition(t)

	wf, err := New(d, newDoc(nil), nil)
	require.NoError(t, err)

	open, _ := d.StateByName("open")
	closed, _ := d.StateByName("closed")

	assert.True(t, open.Equal(wf.State()))
	assert.False(t, closed.Equal(wf.State()))
	assert.True(t, open.Matches("open"))

	assert.False(t, open.Equal(nil))

	var detached *AttachedState
	assert.False(t, open.Equal(detached))
}
