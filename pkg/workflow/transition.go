package workflow

import "context"

// Hook is user code run inside a transition, after the guard passed and
// before the document is mutated. A hook error aborts the transition. If
// the returned map contains a "message" string it replaces the audit
// message.
type Hook func(ctx context.Context, w *Workflow, req *Request) (map[string]any, error)

// Request carries the caller-supplied arguments of one transition call.
type Request struct {
	// Message is the audit message recorded in the history entry.
	Message string

	// Fields maps document attribute names to new values applied on success.
	Fields map[string]any

	// Extra holds arbitrary extras forwarded to the hook.
	Extra map[string]any

	// FireEvent controls event emission after a successful transition.
	FireEvent bool
}

func newRequest(opts []CallOption) *Request {
	req := &Request{FireEvent: true}
	for _, opt := range opts {
		opt(req)
	}

	return req
}

// CallOption customizes a single transition call.
type CallOption func(*Request)

// WithMessage sets the audit message.
func WithMessage(message string) CallOption {
	return func(r *Request) { r.Message = message }
}

// WithFields merges document field updates into the call.
func WithFields(fields map[string]any) CallOption {
	return func(r *Request) {
		if r.Fields == nil {
			r.Fields = make(map[string]any, len(fields))
		}

		for k, v := range fields {
			r.Fields[k] = v
		}
	}
}

// WithField sets a single document field update.
func WithField(name string, value any) CallOption {
	return func(r *Request) {
		if r.Fields == nil {
			r.Fields = make(map[string]any, 1)
		}

		r.Fields[name] = value
	}
}

// WithExtra forwards an extra value to the transition hook.
func WithExtra(name string, value any) CallOption {
	return func(r *Request) {
		if r.Extra == nil {
			r.Extra = make(map[string]any, 1)
		}

		r.Extra[name] = value
	}
}

// WithoutEvent suppresses event emission for this call.
func WithoutEvent() CallOption {
	return func(r *Request) { r.FireEvent = false }
}

// Transition is a named, guarded directed edge between two states. State
// references are held by name so the definition graph has no pointer
// cycles. A transition declared with ExtraFrom produces synthesized sibling
// transitions at registration, one per extra source state, all sharing this
// transition's name and hook; calls are disambiguated by the document's
// current state.
type Transition struct {
	name string
	from string
	to   string

	permission     string
	requiredFields []string
	optionalFields []string
	requireMessage bool
	hook           Hook

	source    Source
	extraFrom []Source
	synthetic bool

	def *Definition
}

// Name returns the transition name, unique per source state.
func (t *Transition) Name() string { return t.name }

// From returns the source state name.
func (t *Transition) From() string { return t.from }

// To returns the destination state name.
func (t *Transition) To() string { return t.to }

// PermissionName returns the guard permission name; empty means always
// allowed.
func (t *Transition) PermissionName() string { return t.permission }

// RequiredFields returns the document attributes the caller must supply.
func (t *Transition) RequiredFields() []string { return t.requiredFields }

// OptionalFields returns the advisory optional attribute names.
func (t *Transition) OptionalFields() []string { return t.optionalFields }

// RequiresMessage reports whether the call must carry a non-empty message.
func (t *Transition) RequiresMessage() bool { return t.requireMessage }

// Synthetic reports whether the transition is a sibling synthesized for an
// extra source state rather than a declared edge.
func (t *Transition) Synthetic() bool { return t.synthetic }

// Hook attaches user code to the transition, covering the decorator form of
// declaration: the transition value and the hooked transition are the same
// object. Chainable; calling it after registration panics with a
// RegistrationError.
func (t *Transition) Hook(hook Hook) *Transition {
	t.checkMutable()
	t.hook = hook

	return t
}

func (t *Transition) checkMutable() {
	if t.def != nil && t.def.registered {
		panic(&RegistrationError{Entity: t.def.entity, Name: t.name, Err: ErrFrozen})
	}
}

// TransitionOption customizes a transition declaration.
type TransitionOption func(*Transition)

// Guard names the permission that must evaluate true for the transition.
func Guard(permission string) TransitionOption {
	return func(t *Transition) { t.permission = permission }
}

// GuardedBy is Guard for an already-declared permission value.
func GuardedBy(p *Permission) TransitionOption {
	return func(t *Transition) { t.permission = p.name }
}

// RequireFields lists document attributes the caller must supply.
func RequireFields(fields ...string) TransitionOption {
	return func(t *Transition) { t.requiredFields = append(t.requiredFields, fields...) }
}

// OptionalFields lists advisory attribute names.
func OptionalFields(fields ...string) TransitionOption {
	return func(t *Transition) { t.optionalFields = append(t.optionalFields, fields...) }
}

// RequireMessage makes the transition refuse calls with an empty message.
func RequireMessage() TransitionOption {
	return func(t *Transition) { t.requireMessage = true }
}

// ExtraFrom registers additional source states sharing this transition's
// name and hook.
func ExtraFrom(states ...Source) TransitionOption {
	return func(t *Transition) { t.extraFrom = append(t.extraFrom, states...) }
}

// WithHook attaches user code at declaration time.
func WithHook(hook Hook) TransitionOption {
	return func(t *Transition) { t.hook = hook }
}
