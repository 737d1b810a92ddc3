package workflow

import "reflect"

// State is a named, valued member of a workflow's finite state set. The
// value is what gets persisted on the document; the name is how the state
// is addressed in the definition. States hold their outbound transitions in
// declaration order, populated during registration.
type State struct {
	name        string
	value       string
	title       string
	description string
	order       int

	transitionOrder []string
	transitions     map[string]*Transition

	def *Definition
}

// Name returns the state's declaration name.
func (s *State) Name() string { return s.name }

// Value returns the string persisted on documents in this state.
func (s *State) Value() string { return s.value }

// Title returns the human-readable title.
func (s *State) Title() string { return s.title }

// Description returns the human-readable description.
func (s *State) Description() string { return s.description }

// Matches reports whether a persisted state value belongs to this state.
func (s *State) Matches(value string) bool { return s.value == value }

// Equal reports whether other denotes the same state. Attached handles
// compare equal to the state they wrap. A nil reference, typed or not,
// never compares equal.
func (s *State) Equal(other interface{ Value() string }) bool {
	if other == nil {
		return false
	}

	if v := reflect.ValueOf(other); v.Kind() == reflect.Pointer && v.IsNil() {
		return false
	}

	return s.value == other.Value()
}

// Transitions returns the outbound transitions in declaration order. The
// slice is rebuilt on each call; the transitions themselves are shared.
func (s *State) Transitions() []*Transition {
	out := make([]*Transition, 0, len(s.transitionOrder))
	for _, name := range s.transitionOrder {
		out = append(out, s.transitions[name])
	}

	return out
}

// TransitionByName returns the outbound transition with the given name.
func (s *State) TransitionByName(name string) (*Transition, bool) {
	t, ok := s.transitions[name]

	return t, ok
}

// Permission declares a filter-only permission on the owning definition,
// pre-restricted to this state. The returned permission can be chained
// further with ForGroups and ForStates.
func (s *State) Permission(name string) *Permission {
	return s.def.Grant(name).ForStates(s)
}

// Transition declares a transition out of this state on the owning
// definition. Shorthand for Definition.Transition with this state as source.
func (s *State) Transition(name string, to *State, opts ...TransitionOption) *Transition {
	return s.def.Transition(name, s, to, opts...)
}

func (s *State) bind(t *Transition) error {
	if _, exists := s.transitions[t.name]; exists {
		return ErrDuplicateName
	}

	s.transitions[t.name] = t
	s.transitionOrder = append(s.transitionOrder, t.name)

	return nil
}

// sourceStates makes State usable as a transition source.
func (s *State) sourceStates() ([]*State, error) {
	return []*State{s}, nil
}

func (s *State) stateValues() []string { return []string{s.value} }

// StateGroup is a named subset of states used for membership tests. Groups
// cannot declare outbound transitions.
type StateGroup struct {
	name    string
	title   string
	members []*State
}

// Name returns the group's declaration name.
func (g *StateGroup) Name() string { return g.name }

// Title returns the human-readable title.
func (g *StateGroup) Title() string { return g.title }

// Values returns the member state values in declaration order.
func (g *StateGroup) Values() []string {
	values := make([]string, 0, len(g.members))
	for _, s := range g.members {
		values = append(values, s.value)
	}

	return values
}

// Contains reports whether a persisted state value belongs to the group.
func (g *StateGroup) Contains(value string) bool {
	for _, s := range g.members {
		if s.value == value {
			return true
		}
	}

	return false
}

// sourceStates always fails: groups have no outbound transitions.
func (g *StateGroup) sourceStates() ([]*State, error) {
	return nil, ErrGroupTransition
}

func (g *StateGroup) stateValues() []string { return g.Values() }

// Source is anything usable as a transition source. State yields itself;
// StateGroup always fails at registration.
type Source interface {
	sourceStates() ([]*State, error)
}

// StateRef is a late-bound reference to one or more states, resolved to
// value strings exactly once during registration. State, StateGroup and
// Value all qualify.
type StateRef interface {
	stateValues() []string
}

// Value references a state by its persisted value string. Useful when the
// state object is declared elsewhere, e.g. in a base definition.
type Value string

func (v Value) stateValues() []string { return []string{string(v)} }
