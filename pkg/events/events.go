// Package events defines the transition event records published after
// successful workflow transitions, and the emitter that delivers them to
// in-process subscribers and the external message bus.
package events

import (
	"fmt"
	"regexp"
	"time"
)

type EventType string

// Bus topic and message metadata keys.
const Topic = "docflow.documents"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// DocumentTransitionedEvent is published once per committed transition.
	DocumentTransitionedEvent EventType = "document.transitioned"

	// DocumentUpdatedEvent is the pre-event dispatched before the transition
	// record when a request handle is available, so caches can invalidate
	// against the pre-event view.
	DocumentUpdatedEvent EventType = "document.updated"
)

// Event is anything the bus can carry.
type Event interface {
	GetType() EventType
}

// eventNameRe is the wire contract for event names; event names, state
// values and transition names are persisted identifiers, so this is a
// breaking-change boundary.
var eventNameRe = regexp.MustCompile(`^([a-z]+\.)+[a-z]+$`)

// TransitionEventName builds the event name for an entity transition:
// "<entity>.workflow.<transition>".
func TransitionEventName(entity, transition string) string {
	return entity + ".workflow." + transition
}

// ValidateEventName checks the event name against the wire contract.
func ValidateEventName(name string) error {
	if !eventNameRe.MatchString(name) {
		return fmt.Errorf("event name %q does not match %s", name, eventNameRe.String())
	}

	return nil
}

// TransitionRecord is the fixed-schema record published to the message bus
// after each transition.
type TransitionRecord struct {
	EventName  string         `json:"event_name" validate:"required"`
	Actor      string         `json:"actor"`
	GUID       string         `json:"guid"       validate:"required"`
	CreatedAt  time.Time      `json:"created_at"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       map[string]any `json:"data"`
	Transition string         `json:"transition" validate:"required"`
}

func (r TransitionRecord) GetType() EventType {
	return DocumentTransitionedEvent
}

// DocumentUpdated is the pre-event view of a document about to change.
type DocumentUpdated struct {
	GUID      string         `json:"guid" validate:"required"`
	RequestID string         `json:"request_id,omitempty"`
	Data      map[string]any `json:"data"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (d DocumentUpdated) GetType() EventType {
	return DocumentUpdatedEvent
}
