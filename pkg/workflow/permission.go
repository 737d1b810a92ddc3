package workflow

// Predicate is a custom guard evaluated against a workflow instance.
type Predicate func(w *Workflow) bool

// Permission is a named predicate over a workflow instance, optionally
// filtered by actor groups and by states. Evaluation order: groups filter,
// states filter, predicate; a permission with no filters and no predicate
// always grants.
//
// Filters may be extended with ForGroups and ForStates until the owning
// definition is registered; registration resolves state references to value
// strings and freezes the permission. Mutating a frozen permission panics
// with a RegistrationError.
type Permission struct {
	name      string
	desc      string
	predicate Predicate

	groups    []string
	stateRefs []StateRef
	states    map[string]struct{}

	def *Definition
}

// Name returns the permission name used by transition guards.
func (p *Permission) Name() string { return p.name }

// Description returns the human-readable description.
func (p *Permission) Description() string { return p.desc }

// ForGroups extends the group filter. Chainable.
func (p *Permission) ForGroups(groups ...string) *Permission {
	p.checkMutable()
	p.groups = append(p.groups, groups...)

	return p
}

// ForStates extends the state filter with late-bound state references.
// Chainable.
func (p *Permission) ForStates(states ...StateRef) *Permission {
	p.checkMutable()
	p.stateRefs = append(p.stateRefs, states...)

	return p
}

// Describe sets the human-readable description. Chainable.
func (p *Permission) Describe(desc string) *Permission {
	p.checkMutable()
	p.desc = desc

	return p
}

func (p *Permission) checkMutable() {
	if p.def != nil && p.def.registered {
		panic(&RegistrationError{Entity: p.def.entity, Name: p.name, Err: ErrFrozen})
	}
}

// Allows evaluates the permission for the given workflow instance.
func (p *Permission) Allows(w *Workflow) bool {
	if len(p.groups) > 0 {
		if w.actor == nil || !w.actor.InAnyGroup(p.groups) {
			return false
		}
	}

	if len(p.states) > 0 {
		if _, ok := p.states[w.StateValue()]; !ok {
			return false
		}
	}

	if p.predicate != nil {
		return p.predicate(w)
	}

	return true
}

// resolve interns the late-bound state references as value strings. Called
// exactly once, from Definition.Register.
func (p *Permission) resolve(d *Definition) error {
	if len(p.stateRefs) == 0 {
		return nil
	}

	p.states = make(map[string]struct{}, len(p.stateRefs))

	for _, ref := range p.stateRefs {
		for _, value := range ref.stateValues() {
			if _, ok := d.stateValues[value]; !ok {
				return ErrUnresolvedReference
			}

			p.states[value] = struct{}{}
		}
	}

	return nil
}
