package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BriefyHQ/docflow/pkg/document"
	"github.com/BriefyHQ/docflow/pkg/events"
)

// Workflow binds a registered definition to a (document, actor) pair.
// Instances are transient: obtain a fresh one per logical operation and do
// not share across goroutines. All mutable state lives on the document.
type Workflow struct {
	def     *Definition
	doc     document.Document
	actor   *Actor
	emitter *events.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes a workflow instance.
type Option func(*Workflow)

// WithEmitter attaches the event emitter used after successful transitions.
func WithEmitter(emitter *events.Emitter) Option {
	return func(w *Workflow) { w.emitter = emitter }
}

// WithLogger overrides the instance logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

// WithClock overrides the history timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// New binds def to a document and actor. If the document carries no state
// yet, the initial state is written together with a synthetic history entry
// attributed to the actor or, failing that, to the document's creator. A
// persisted state value unknown to the definition is a StateError.
func New(def *Definition, doc document.Document, actor *Actor, opts ...Option) (*Workflow, error) {
	if !def.registered {
		return nil, &RegistrationError{Entity: def.entity, Err: ErrNotRegistered}
	}

	w := &Workflow{
		def:    def,
		doc:    doc,
		actor:  actor,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(w)
	}

	if actor != nil {
		if err := doc.Set(def.contextAttr, actor.ID); err != nil {
			return nil, fmt.Errorf("setting workflow context: %w", err)
		}
	}

	value := w.StateValue()
	if value == "" {
		if err := w.initialize(); err != nil {
			return nil, err
		}

		return w, nil
	}

	if _, ok := def.stateValues[value]; !ok {
		return nil, &StateError{Entity: def.entity, Value: value, Err: ErrUnknownState}
	}

	return w, nil
}

func (w *Workflow) initialize() error {
	initial := w.def.initial

	if err := w.doc.Set(w.def.stateAttr, initial.value); err != nil {
		return fmt.Errorf("setting initial state: %w", err)
	}

	actor := w.actorID()
	if actor == "" {
		if creator, ok := w.doc.Get(w.def.creatorAttr); ok {
			actor = stringify(creator)
		}
	}

	entry := HistoryEntry{
		From:       "",
		To:         initial.value,
		Date:       w.now(),
		Actor:      actor,
		Transition: w.def.initialTransition,
		Message:    "",
	}

	if err := appendHistory(w.doc, w.def.historyAttr, entry); err != nil {
		return fmt.Errorf("writing initial history entry: %w", err)
	}

	return nil
}

// Definition returns the bound definition.
func (w *Workflow) Definition() *Definition { return w.def }

// Document returns the bound document.
func (w *Workflow) Document() document.Document { return w.doc }

// Actor returns the bound actor, nil when acting anonymously.
func (w *Workflow) Actor() *Actor { return w.actor }

// StateValue reads the persisted state value off the document.
func (w *Workflow) StateValue() string {
	raw, ok := w.doc.Get(w.def.stateAttr)
	if !ok || raw == nil {
		return ""
	}

	if s, ok := raw.(string); ok {
		return s
	}

	return stringify(raw)
}

// State returns the current state attached to this instance, nil when the
// document state was mutated out from under the definition.
func (w *Workflow) State() *AttachedState {
	s, ok := w.def.stateValues[w.StateValue()]
	if !ok {
		return nil
	}

	return &AttachedState{state: s, wf: w}
}

// States returns all definition states in declaration order.
func (w *Workflow) States() []*State { return w.def.States() }

// History returns the document's audit history, oldest first.
func (w *Workflow) History() []HistoryEntry {
	return historyOf(w.doc, w.def.historyAttr)
}

// Transitions returns the outbound transitions of the current state the
// bound actor may perform, in declaration order. Transitions without a
// guard are always included.
func (w *Workflow) Transitions() []*AttachedTransition {
	current, ok := w.def.stateValues[w.StateValue()]
	if !ok {
		return nil
	}

	out := make([]*AttachedTransition, 0, len(current.transitionOrder))

	for _, name := range current.transitionOrder {
		t := current.transitions[name]
		if w.allowed(t) {
			out = append(out, &AttachedTransition{transition: t, wf: w})
		}
	}

	return out
}

// Permissions returns the names of the permissions that currently evaluate
// true for this instance, in declaration order.
func (w *Workflow) Permissions() []string {
	out := make([]string, 0, len(w.def.permissionOrder))

	for _, name := range w.def.permissionOrder {
		if w.def.permissions[name].Allows(w) {
			out = append(out, name)
		}
	}

	return out
}

// StateOf returns an attached handle for the named state.
func (w *Workflow) StateOf(name string) (*AttachedState, error) {
	s, ok := w.def.states[name]
	if !ok {
		return nil, &StateError{Entity: w.def.entity, Value: name, Err: ErrUnknownState}
	}

	return &AttachedState{state: s, wf: w}, nil
}

// TransitionOf returns an attached handle for the named transition,
// resolved against the current state first so shared names land on the
// right edge.
func (w *Workflow) TransitionOf(name string) (*AttachedTransition, error) {
	if current, ok := w.def.stateValues[w.StateValue()]; ok {
		if t, ok := current.transitions[name]; ok {
			return &AttachedTransition{transition: t, wf: w}, nil
		}
	}

	chain := w.def.transitionsByName[name]
	if len(chain) == 0 {
		return nil, &TransitionError{
			Entity:     w.def.entity,
			Transition: name,
			State:      w.StateValue(),
			Err:        ErrTransitionUnknown,
		}
	}

	return &AttachedTransition{transition: chain[0], wf: w}, nil
}

// Transition executes the named transition with the given call options.
// Execution order: dispatch by current state, field check, message check,
// guard, hook, document mutation, history append, event emission.
func (w *Workflow) Transition(ctx context.Context, name string, opts ...CallOption) error {
	return w.execute(ctx, name, newRequest(opts))
}

func (w *Workflow) execute(ctx context.Context, name string, req *Request) error {
	fromValue := w.StateValue()

	current, ok := w.def.stateValues[fromValue]
	if !ok {
		return &StateError{Entity: w.def.entity, Value: fromValue, Err: ErrUnknownState}
	}

	t, ok := current.transitions[name]
	if !ok {
		return &TransitionError{
			Entity:     w.def.entity,
			Transition: name,
			State:      fromValue,
			Err:        ErrTransitionUnknown,
		}
	}

	for _, field := range t.requiredFields {
		if _, ok := req.Fields[field]; !ok {
			return &TransitionError{
				Entity:     w.def.entity,
				Transition: name,
				State:      fromValue,
				Field:      field,
				Err:        ErrFieldRequired,
			}
		}
	}

	if t.requireMessage && req.Message == "" {
		return &TransitionError{
			Entity:     w.def.entity,
			Transition: name,
			State:      fromValue,
			Err:        ErrMessageRequired,
		}
	}

	if !w.allowed(t) {
		return &PermissionError{Entity: w.def.entity, Transition: name, Permission: t.permission}
	}

	message := req.Message

	if t.hook != nil {
		result, err := t.hook(ctx, w, req)
		if err != nil {
			return err
		}

		if replacement, ok := result["message"].(string); ok {
			message = replacement
		}
	}

	if err := document.Apply(w.doc, req.Fields); err != nil {
		return &TransitionError{
			Entity:     w.def.entity,
			Transition: name,
			State:      fromValue,
			Err:        fmt.Errorf("%w: %w", ErrDocumentUpdate, err),
		}
	}

	toValue := w.def.states[t.to].value
	if err := w.doc.Set(w.def.stateAttr, toValue); err != nil {
		return &TransitionError{
			Entity:     w.def.entity,
			Transition: name,
			State:      fromValue,
			Err:        fmt.Errorf("%w: %w", ErrDocumentUpdate, err),
		}
	}

	entry := HistoryEntry{
		From:       fromValue,
		To:         toValue,
		Date:       w.now(),
		Actor:      w.actorID(),
		Transition: name,
		Message:    message,
	}

	if err := appendHistory(w.doc, w.def.historyAttr, entry); err != nil {
		return &TransitionError{
			Entity:     w.def.entity,
			Transition: name,
			State:      fromValue,
			Err:        fmt.Errorf("%w: %w", ErrDocumentUpdate, err),
		}
	}

	if req.FireEvent && w.emitter != nil {
		w.emitter.EmitTransition(ctx, w.transitionRecord(name))
	}

	return nil
}

func (w *Workflow) transitionRecord(transition string) events.TransitionRecord {
	createdAt := document.CreatedAtOf(w.doc)
	if createdAt.IsZero() {
		createdAt = w.now()
	}

	return events.TransitionRecord{
		EventName:  events.TransitionEventName(w.def.entity, transition),
		Actor:      w.actorID(),
		GUID:       document.GUIDOf(w.doc),
		CreatedAt:  createdAt,
		RequestID:  document.RequestIDOf(w.doc),
		Data:       document.SnapshotOf(w.doc),
		Transition: transition,
	}
}

func (w *Workflow) allowed(t *Transition) bool {
	if t.permission == "" {
		return true
	}

	p, ok := w.def.permissions[t.permission]
	if !ok {
		return false
	}

	return p.Allows(w)
}

func (w *Workflow) actorID() string {
	if w.actor == nil {
		return ""
	}

	return w.actor.ID
}

// AttachedState pairs a state with a workflow instance, allowing the
// membership predicate to be evaluated without passing the instance.
type AttachedState struct {
	state *State
	wf    *Workflow
}

// Name returns the state's declaration name.
func (a *AttachedState) Name() string { return a.state.name }

// Value returns the persisted state value.
func (a *AttachedState) Value() string { return a.state.value }

// Title returns the human-readable title.
func (a *AttachedState) Title() string { return a.state.title }

// State returns the underlying definition state.
func (a *AttachedState) State() *State { return a.state }

// Active reports whether the bound document currently sits in this state.
func (a *AttachedState) Active() bool {
	return a.state.Matches(a.wf.StateValue())
}

// AttachedTransition pairs a transition with a workflow instance; Execute
// runs it against the bound document.
type AttachedTransition struct {
	transition *Transition
	wf         *Workflow
}

// Name returns the transition name.
func (a *AttachedTransition) Name() string { return a.transition.name }

// From returns the source state name.
func (a *AttachedTransition) From() string { return a.transition.from }

// To returns the destination state name.
func (a *AttachedTransition) To() string { return a.transition.to }

// Transition returns the underlying definition transition.
func (a *AttachedTransition) Transition() *Transition { return a.transition }

// Execute runs the transition. Dispatch goes through the current state, so
// executing a handle obtained for one source state of a shared transition
// routes to the sibling bound to the document's actual state.
func (a *AttachedTransition) Execute(ctx context.Context, opts ...CallOption) error {
	return a.wf.execute(ctx, a.transition.name, newRequest(opts))
}
