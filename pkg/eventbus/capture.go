package eventbus

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/BriefyHQ/docflow/pkg/events"
)

// CaptureBus is a synchronous, capture-only bus for tests: every published
// event is recorded and no I/O happens. An optional error makes publishes
// fail, for exercising the bus-failure path.
type CaptureBus struct {
	mu        sync.Mutex
	published []events.Event
	keys      []string

	// PublishErr, when set, is returned by every Publish call.
	PublishErr error
}

// NewCaptureBus creates an empty capture bus.
func NewCaptureBus() *CaptureBus {
	return &CaptureBus{}
}

func (b *CaptureBus) Publish(_ context.Context, key string, event events.Event) error {
	if b.PublishErr != nil {
		return b.PublishErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.published = append(b.published, event)
	b.keys = append(b.keys, key)

	return nil
}

// Published returns the captured events in publish order.
func (b *CaptureBus) Published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]events.Event, len(b.published))
	copy(out, b.published)

	return out
}

// Keys returns the partition keys in publish order.
func (b *CaptureBus) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.keys))
	copy(out, b.keys)

	return out
}

// Records returns only the captured transition records, in publish order.
func (b *CaptureBus) Records() []events.TransitionRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	var records []events.TransitionRecord

	for _, event := range b.published {
		if record, ok := event.(events.TransitionRecord); ok {
			records = append(records, record)
		}
	}

	return records
}

func (b *CaptureBus) GenerateID() string {
	return uuid.New().String()
}

func (b *CaptureBus) Close() error { return nil }
