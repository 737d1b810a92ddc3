package workflow

import (
	"fmt"

	"github.com/google/uuid"
)

// Actor is the entity on whose behalf a transition is attempted.
type Actor struct {
	ID     string
	Groups []string
}

// InGroup reports whether the actor belongs to the given group.
func (a *Actor) InGroup(group string) bool {
	if a == nil {
		return false
	}

	for _, g := range a.Groups {
		if g == group {
			return true
		}
	}

	return false
}

// InAnyGroup reports whether the actor's group set intersects groups.
func (a *Actor) InAnyGroup(groups []string) bool {
	for _, g := range groups {
		if a.InGroup(g) {
			return true
		}
	}

	return false
}

// Identified is implemented by actor-shaped values that expose their id.
type Identified interface {
	ActorID() string
}

// Grouped is implemented by actor-shaped values that expose their groups.
type Grouped interface {
	ActorGroups() []string
}

// NormalizeActor accepts the actor shapes allowed at the engine boundary
// and normalizes them to an *Actor with a string id. Accepted shapes:
// *Actor, Actor, string, uuid.UUID, a map with an "id" key, and any value
// implementing Identified. A nil input yields a nil actor, meaning no
// permissions beyond unguarded ones.
func NormalizeActor(value any) (*Actor, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *Actor:
		return v, nil
	case Actor:
		return &v, nil
	case string:
		return &Actor{ID: v}, nil
	case uuid.UUID:
		return &Actor{ID: v.String()}, nil
	case map[string]any:
		id, ok := v["id"]
		if !ok {
			return nil, fmt.Errorf("actor map has no id key")
		}

		actor := &Actor{ID: stringify(id)}
		if groups, ok := v["groups"]; ok {
			actor.Groups = stringSlice(groups)
		}

		return actor, nil
	}

	if identified, ok := value.(Identified); ok {
		actor := &Actor{ID: identified.ActorID()}
		if grouped, ok := value.(Grouped); ok {
			actor.Groups = grouped.ActorGroups()
		}

		return actor, nil
	}

	return nil, fmt.Errorf("unsupported actor shape %T", value)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case uuid.UUID:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		groups := make([]string, 0, len(v))
		for _, item := range v {
			groups = append(groups, stringify(item))
		}

		return groups
	default:
		return nil
	}
}
