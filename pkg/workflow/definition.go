package workflow

import "fmt"

// Default document attribute names, configurable per definition.
const (
	DefaultStateAttr   = "state"
	DefaultHistoryAttr = "state_history"
	DefaultContextAttr = "workflow_context"
	DefaultCreatorAttr = "creator"

	// DefaultInitialTransition names the synthetic history entry written
	// when a document enters the workflow.
	DefaultInitialTransition = "create"
)

// Definition is the static declaration of a document workflow: its states,
// transitions and permissions. Declare everything first, then call Register
// exactly once; registration assigns declaration order, synthesizes shared
// transitions, resolves late-bound references and freezes the tables.
// Registered definitions are read-only and safe for concurrent use.
type Definition struct {
	entity string

	stateAttr         string
	historyAttr       string
	contextAttr       string
	creatorAttr       string
	initialTransition string

	initial     *State
	stateOrder  []string
	states      map[string]*State
	stateValues map[string]*State

	groupOrder  []string
	stateGroups map[string]*StateGroup

	permissionOrder []string
	permissions     map[string]*Permission

	declared          []*Transition
	transitionsByName map[string][]*Transition

	registered bool
	declErr    error
}

// DefinitionOption customizes a definition.
type DefinitionOption func(*Definition)

// StateAttr overrides the document attribute holding the state value.
func StateAttr(name string) DefinitionOption {
	return func(d *Definition) { d.stateAttr = name }
}

// HistoryAttr overrides the document attribute holding the audit history.
func HistoryAttr(name string) DefinitionOption {
	return func(d *Definition) { d.historyAttr = name }
}

// ContextAttr overrides the document attribute holding the acting user.
func ContextAttr(name string) DefinitionOption {
	return func(d *Definition) { d.contextAttr = name }
}

// CreatorAttr overrides the read-only document attribute holding the
// creator id.
func CreatorAttr(name string) DefinitionOption {
	return func(d *Definition) { d.creatorAttr = name }
}

// InitialTransition overrides the transition name recorded in the synthetic
// first history entry.
func InitialTransition(name string) DefinitionOption {
	return func(d *Definition) { d.initialTransition = name }
}

// NewDefinition creates an empty definition for the given entity type. The
// entity name prefixes emitted event names ("<entity>.workflow.<transition>").
func NewDefinition(entity string, opts ...DefinitionOption) *Definition {
	d := &Definition{
		entity:            entity,
		stateAttr:         DefaultStateAttr,
		historyAttr:       DefaultHistoryAttr,
		contextAttr:       DefaultContextAttr,
		creatorAttr:       DefaultCreatorAttr,
		initialTransition: DefaultInitialTransition,
		states:            make(map[string]*State),
		stateValues:       make(map[string]*State),
		stateGroups:       make(map[string]*StateGroup),
		permissions:       make(map[string]*Permission),
		transitionsByName: make(map[string][]*Transition),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Extend creates a definition inheriting every state, state group and
// permission of base. The base must already be registered. Transitions are
// not inherited; the derived definition declares its own.
func Extend(base *Definition, entity string, opts ...DefinitionOption) *Definition {
	d := NewDefinition(entity, opts...)

	if base == nil || !base.registered {
		d.fail("", fmt.Errorf("extend: base definition: %w", ErrNotRegistered))

		return d
	}

	for _, name := range base.stateOrder {
		src := base.states[name]
		s := d.State(name, StateValue(src.value), StateTitle(src.title), StateDescription(src.description))

		if base.initial == src {
			d.Initial(s)
		}
	}

	for _, name := range base.groupOrder {
		src := base.stateGroups[name]

		members := make([]*State, 0, len(src.members))
		for _, m := range src.members {
			members = append(members, d.states[m.name])
		}

		d.Group(name, members...)
	}

	for _, name := range base.permissionOrder {
		src := base.permissions[name]

		p := &Permission{name: src.name, desc: src.desc, predicate: src.predicate}
		p.groups = append(p.groups, src.groups...)

		// Base refs are already resolved; carry them as value references so
		// the derived registration re-resolves against the derived state set.
		for value := range src.states {
			p.stateRefs = append(p.stateRefs, Value(value))
		}

		d.addPermission(p)
	}

	return d
}

// StateOption customizes a state declaration.
type StateOption func(*State)

// StateValue overrides the persisted value (defaults to the state name).
func StateValue(value string) StateOption {
	return func(s *State) { s.value = value }
}

// StateTitle sets the human-readable title.
func StateTitle(title string) StateOption {
	return func(s *State) { s.title = title }
}

// StateDescription sets the human-readable description.
func StateDescription(desc string) StateOption {
	return func(s *State) { s.description = desc }
}

// State declares a state. The first declared state is the initial state
// unless Initial is called.
func (d *Definition) State(name string, opts ...StateOption) *State {
	d.checkMutable()

	s := &State{
		name:        name,
		value:       name,
		order:       len(d.stateOrder) + len(d.groupOrder),
		transitions: make(map[string]*Transition),
		def:         d,
	}

	for _, opt := range opts {
		opt(s)
	}

	if _, exists := d.states[name]; exists {
		d.fail(name, fmt.Errorf("state: %w", ErrDuplicateName))

		return s
	}

	if _, exists := d.stateValues[s.value]; exists {
		d.fail(name, fmt.Errorf("state value %q: %w", s.value, ErrDuplicateName))

		return s
	}

	d.states[name] = s
	d.stateValues[s.value] = s
	d.stateOrder = append(d.stateOrder, name)

	return s
}

// Group declares a named state group.
func (d *Definition) Group(name string, members ...*State) *StateGroup {
	d.checkMutable()

	g := &StateGroup{name: name, members: members}

	if _, exists := d.stateGroups[name]; exists {
		d.fail(name, fmt.Errorf("state group: %w", ErrDuplicateName))

		return g
	}

	d.stateGroups[name] = g
	d.groupOrder = append(d.groupOrder, name)

	return g
}

// Initial marks the initial state, overriding the declaration-order default.
func (d *Definition) Initial(s *State) {
	d.checkMutable()
	d.initial = s
}

// Permission declares a named permission with a guard predicate.
func (d *Definition) Permission(name string, predicate Predicate) *Permission {
	d.checkMutable()

	p := &Permission{name: name, predicate: predicate}
	d.addPermission(p)

	return p
}

// Grant declares a filter-only permission: it grants whenever its group and
// state filters pass. Chain ForGroups and ForStates on the result.
func (d *Definition) Grant(name string) *Permission {
	d.checkMutable()

	p := &Permission{name: name}
	d.addPermission(p)

	return p
}

func (d *Definition) addPermission(p *Permission) {
	p.def = d

	if _, exists := d.permissions[p.name]; exists {
		d.fail(p.name, fmt.Errorf("permission: %w", ErrDuplicateName))

		return
	}

	d.permissions[p.name] = p
	d.permissionOrder = append(d.permissionOrder, p.name)
}

// Transition declares a transition between two states. The source must be
// a State; passing a StateGroup fails at registration.
func (d *Definition) Transition(name string, from Source, to *State, opts ...TransitionOption) *Transition {
	d.checkMutable()

	t := &Transition{name: name, source: from, def: d}

	if from == nil {
		d.fail(name, fmt.Errorf("transition: nil source: %w", ErrUnresolvedReference))
	}

	if to != nil {
		t.to = to.name
	} else {
		d.fail(name, fmt.Errorf("transition: nil destination: %w", ErrUnresolvedReference))
	}

	for _, opt := range opts {
		opt(t)
	}

	d.declared = append(d.declared, t)

	return t
}

// Register performs the one-shot build step: it binds transitions to their
// source states in declaration order, synthesizes siblings for extra source
// states, verifies guard references and resolves permission state filters.
// Register is idempotent; calling it on a registered definition is a no-op.
func (d *Definition) Register() error {
	if d.registered {
		return nil
	}

	if d.declErr != nil {
		return d.declErr
	}

	for _, t := range d.declared {
		if err := d.bindTransition(t); err != nil {
			return err
		}
	}

	for name, chain := range d.transitionsByName {
		for _, t := range chain {
			if t.permission == "" {
				continue
			}

			if _, ok := d.permissions[t.permission]; !ok {
				return &RegistrationError{
					Entity: d.entity,
					Name:   name,
					Err:    fmt.Errorf("guard %q: %w", t.permission, ErrUnresolvedReference),
				}
			}
		}
	}

	for _, name := range d.permissionOrder {
		if err := d.permissions[name].resolve(d); err != nil {
			return &RegistrationError{Entity: d.entity, Name: name, Err: err}
		}
	}

	if d.initial == nil {
		if len(d.stateOrder) == 0 {
			return &RegistrationError{Entity: d.entity, Err: fmt.Errorf("no states declared")}
		}

		d.initial = d.states[d.stateOrder[0]]
	}

	d.registered = true

	return nil
}

// MustRegister is Register, panicking on error. Intended for package-level
// definitions built at startup.
func (d *Definition) MustRegister() *Definition {
	if err := d.Register(); err != nil {
		panic(err)
	}

	return d
}

func (d *Definition) bindTransition(t *Transition) error {
	sources := make([]*State, 0, 1+len(t.extraFrom))

	primary, err := t.source.sourceStates()
	if err != nil {
		return &RegistrationError{Entity: d.entity, Name: t.name, Err: err}
	}

	sources = append(sources, primary...)

	for _, extra := range t.extraFrom {
		states, err := extra.sourceStates()
		if err != nil {
			return &RegistrationError{Entity: d.entity, Name: t.name, Err: err}
		}

		sources = append(sources, states...)
	}

	if _, ok := d.states[t.to]; !ok {
		return &RegistrationError{
			Entity: d.entity,
			Name:   t.name,
			Err:    fmt.Errorf("destination %q: %w", t.to, ErrUnresolvedReference),
		}
	}

	for i, src := range sources {
		if src == nil {
			return &RegistrationError{
				Entity: d.entity,
				Name:   t.name,
				Err:    fmt.Errorf("nil source state: %w", ErrUnresolvedReference),
			}
		}

		if owned, ok := d.states[src.name]; !ok || owned != src {
			return &RegistrationError{
				Entity: d.entity,
				Name:   t.name,
				Err:    fmt.Errorf("source %q: %w", src.name, ErrUnresolvedReference),
			}
		}

		bound := t
		if i > 0 {
			// Sibling for an extra source state: same name, guard and hook.
			bound = &Transition{
				name:           t.name,
				to:             t.to,
				permission:     t.permission,
				requiredFields: t.requiredFields,
				optionalFields: t.optionalFields,
				requireMessage: t.requireMessage,
				hook:           t.hook,
				synthetic:      true,
				def:            d,
			}
		}

		bound.from = src.name

		if err := src.bind(bound); err != nil {
			return &RegistrationError{
				Entity: d.entity,
				Name:   t.name,
				Err:    fmt.Errorf("state %q: %w", src.name, err),
			}
		}

		d.transitionsByName[t.name] = append(d.transitionsByName[t.name], bound)
	}

	return nil
}

// Entity returns the entity type the definition applies to.
func (d *Definition) Entity() string { return d.entity }

// Registered reports whether Register completed.
func (d *Definition) Registered() bool { return d.registered }

// InitialState returns the state assigned to fresh documents.
func (d *Definition) InitialState() *State { return d.initial }

// InitialTransitionName returns the transition name of the synthetic first
// history entry.
func (d *Definition) InitialTransitionName() string { return d.initialTransition }

// States returns all states in declaration order.
func (d *Definition) States() []*State {
	out := make([]*State, 0, len(d.stateOrder))
	for _, name := range d.stateOrder {
		out = append(out, d.states[name])
	}

	return out
}

// StateByName looks a state up by declaration name.
func (d *Definition) StateByName(name string) (*State, bool) {
	s, ok := d.states[name]

	return s, ok
}

// StateByValue looks a state up by persisted value.
func (d *Definition) StateByValue(value string) (*State, bool) {
	s, ok := d.stateValues[value]

	return s, ok
}

// GroupByName looks a state group up by name.
func (d *Definition) GroupByName(name string) (*StateGroup, bool) {
	g, ok := d.stateGroups[name]

	return g, ok
}

// Permissions returns all permissions in declaration order.
func (d *Definition) Permissions() []*Permission {
	out := make([]*Permission, 0, len(d.permissionOrder))
	for _, name := range d.permissionOrder {
		out = append(out, d.permissions[name])
	}

	return out
}

// PermissionByName looks a permission up by name.
func (d *Definition) PermissionByName(name string) (*Permission, bool) {
	p, ok := d.permissions[name]

	return p, ok
}

// TransitionsByName returns every bound transition carrying the given name,
// one per source state.
func (d *Definition) TransitionsByName(name string) []*Transition {
	return d.transitionsByName[name]
}

// StateAttrName returns the document attribute holding the state value.
func (d *Definition) StateAttrName() string { return d.stateAttr }

// HistoryAttrName returns the document attribute holding the audit history.
func (d *Definition) HistoryAttrName() string { return d.historyAttr }

// ContextAttrName returns the document attribute holding the acting user.
func (d *Definition) ContextAttrName() string { return d.contextAttr }

// CreatorAttrName returns the document attribute holding the creator id.
func (d *Definition) CreatorAttrName() string { return d.creatorAttr }

func (d *Definition) fail(name string, err error) {
	if d.declErr == nil {
		d.declErr = &RegistrationError{Entity: d.entity, Name: name, Err: err}
	}
}

// checkMutable panics when a declaration is attempted on a registered
// definition. Misdeclaring a frozen workflow is a programming error, not a
// runtime condition.
func (d *Definition) checkMutable() {
	if d.registered {
		panic(&RegistrationError{Entity: d.entity, Err: ErrFrozen})
	}
}
