package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Publisher is the injectable message-bus collaborator.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// Notifier fans an event out to in-process subscribers, synchronously and
// in subscription order. Subscriber errors are reported to the caller's
// logger but never stop delivery.
type Notifier struct {
	mu       sync.RWMutex
	handlers []func(ctx context.Context, event Event) error
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers an in-process handler.
func (n *Notifier) Subscribe(handler func(ctx context.Context, event Event) error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.handlers = append(n.handlers, handler)
}

// Notify delivers the event to every subscriber and returns the errors they
// produced.
func (n *Notifier) Notify(ctx context.Context, event Event) []error {
	n.mu.RLock()
	handlers := make([]func(ctx context.Context, event Event) error, len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.RUnlock()

	var errs []error

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// Emitter delivers transition records after a committed transition: the
// optional document-update pre-event first, then the in-process notifier,
// then the external bus. Bus failures are logged and swallowed; the
// transition stays committed, at-least-once delivery is acceptable.
type Emitter struct {
	bus          Publisher
	notifier     *Notifier
	updateEvents bool
	schema       *SchemaValidator
	validate     *validator.Validate
	logger       *slog.Logger
}

// EmitterOption customizes an emitter.
type EmitterOption func(*Emitter)

// WithUpdateEvents enables the document-update pre-event for records that
// carry a request id.
func WithUpdateEvents() EmitterOption {
	return func(e *Emitter) { e.updateEvents = true }
}

// WithSchema validates the record's data snapshot against a JSON schema
// before publishing.
func WithSchema(schema map[string]any) EmitterOption {
	return func(e *Emitter) { e.schema = NewSchemaValidator(schema) }
}

// WithLogger overrides the emitter logger.
func WithLogger(logger *slog.Logger) EmitterOption {
	return func(e *Emitter) { e.logger = logger }
}

// NewEmitter creates an emitter publishing to bus. A nil bus keeps
// in-process notification working with no external delivery.
func NewEmitter(bus Publisher, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		bus:      bus,
		notifier: NewNotifier(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Notifier returns the in-process notifier for subscribers such as cache
// invalidators.
func (e *Emitter) Notifier() *Notifier {
	return e.notifier
}

// EmitTransition delivers a transition record. It never fails the caller:
// every problem is logged and the already-applied state change stands.
func (e *Emitter) EmitTransition(ctx context.Context, record TransitionRecord) {
	logger := e.logger.With("event_name", record.EventName, "guid", record.GUID)

	if err := ValidateEventName(record.EventName); err != nil {
		logger.ErrorContext(ctx, "Dropping transition event with invalid name", "error", err)

		return
	}

	if err := e.validate.Struct(record); err != nil {
		logger.ErrorContext(ctx, "Dropping invalid transition event", "error", err)

		return
	}

	if e.schema != nil {
		if err := e.schema.Validate(record.Data); err != nil {
			logger.ErrorContext(ctx, "Transition event data failed schema validation", "error", err)

			return
		}
	}

	if e.updateEvents && record.RequestID != "" {
		update := DocumentUpdated{
			GUID:      record.GUID,
			RequestID: record.RequestID,
			Data:      record.Data,
			UpdatedAt: time.Now().UTC(),
		}

		e.deliver(ctx, logger, record.GUID, update)
	}

	e.deliver(ctx, logger, record.GUID, record)
}

func (e *Emitter) deliver(ctx context.Context, logger *slog.Logger, key string, event Event) {
	for _, err := range e.notifier.Notify(ctx, event) {
		logger.WarnContext(ctx, "In-process subscriber failed", "event_type", event.GetType(), "error", err)
	}

	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event to bus", "event_type", event.GetType(), "error", err)
	}
}
