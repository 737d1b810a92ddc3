package workflow

import (
	"errors"
	"fmt"
)

// Standard engine error conditions. The typed wrappers below carry context
// and unwrap to one of these sentinels.
var (
	// ErrUnknownState indicates the document carries a state value the
	// definition does not know about.
	ErrUnknownState = errors.New("unknown state value")

	// ErrTransitionUnknown indicates the transition is not valid for the
	// document's current state.
	ErrTransitionUnknown = errors.New("transition not valid for current state")

	// ErrFieldRequired indicates a required field was not supplied by the caller.
	ErrFieldRequired = errors.New("required field missing")

	// ErrMessageRequired indicates the transition requires a non-empty message.
	ErrMessageRequired = errors.New("message required")

	// ErrDocumentUpdate indicates applying the caller-supplied fields failed.
	ErrDocumentUpdate = errors.New("document update failed")

	// ErrPermissionDenied indicates the transition guard evaluated false.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDuplicateName indicates two declarations share a name or state value.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrGroupTransition indicates a state group was used as a transition source.
	ErrGroupTransition = errors.New("state group cannot declare transitions")

	// ErrUnresolvedReference indicates a state or permission reference could
	// not be resolved during registration.
	ErrUnresolvedReference = errors.New("unresolvable reference")

	// ErrNotRegistered indicates the definition was used before Register.
	ErrNotRegistered = errors.New("definition not registered")

	// ErrFrozen indicates a declaration was attempted after Register.
	ErrFrozen = errors.New("definition already registered")
)

// StateError reports an unknown or unusable state value.
type StateError struct {
	Entity string
	Value  string
	Err    error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("workflow %s: state %q: %v", e.Entity, e.Value, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// TransitionError reports a transition refused before execution: wrong
// source state, missing required field or message, or a failed document
// update.
type TransitionError struct {
	Entity     string
	Transition string
	State      string
	Field      string
	Err        error
}

func (e *TransitionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("workflow %s: transition %q from %q: field %q: %v",
			e.Entity, e.Transition, e.State, e.Field, e.Err)
	}

	return fmt.Sprintf("workflow %s: transition %q from %q: %v", e.Entity, e.Transition, e.State, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// PermissionError reports a transition guard that evaluated false.
type PermissionError struct {
	Entity     string
	Transition string
	Permission string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("workflow %s: transition %q: permission %q denied", e.Entity, e.Transition, e.Permission)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// RegistrationError reports an invalid declaration detected while building
// a definition.
type RegistrationError struct {
	Entity string
	Name   string
	Err    error
}

func (e *RegistrationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("workflow %s: register %q: %v", e.Entity, e.Name, e.Err)
	}

	return fmt.Sprintf("workflow %s: register: %v", e.Entity, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// IsStateError checks whether err is a state error.
func IsStateError(err error) bool {
	var target *StateError

	return errors.As(err, &target)
}

// IsTransitionError checks whether err is a transition error.
func IsTransitionError(err error) bool {
	var target *TransitionError

	return errors.As(err, &target)
}

// IsPermissionError checks whether err is a permission error.
func IsPermissionError(err error) bool {
	var target *PermissionError

	return errors.As(err, &target)
}

// IsRegistrationError checks whether err is a registration error.
func IsRegistrationError(err error) bool {
	var target *RegistrationError

	return errors.As(err, &target)
}
