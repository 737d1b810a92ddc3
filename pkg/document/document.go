// Package document defines the contract between the workflow engine and the
// business documents whose state it manages. The engine treats documents as
// opaque attribute holders; capabilities beyond Get/Set are discovered
// through optional interfaces.
package document

import (
	"encoding/json"
	"time"
)

// Document is the minimal surface the engine reads and writes.
type Document interface {
	// Get returns the attribute value and whether it is set.
	Get(attr string) (any, bool)
	// Set writes the attribute value.
	Set(attr string, value any) error
}

// Updater applies a batch of field updates in one call. Documents without
// it get per-attribute writes.
type Updater interface {
	Update(fields map[string]any) error
}

// Identified exposes the document identity used in event records.
type Identified interface {
	GUID() string
	CreatedAt() time.Time
}

// RequestCarrier exposes the request handle of the operation that loaded
// the document, if any.
type RequestCarrier interface {
	RequestID() string
}

// Snapshotter exposes a JSON-serializable view of the document, used as the
// data payload of transition events.
type Snapshotter interface {
	Snapshot() map[string]any
}

// Apply writes fields onto the document, preferring a single Update call
// and falling back to per-attribute writes.
func Apply(doc Document, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	if updater, ok := doc.(Updater); ok {
		return updater.Update(fields)
	}

	for name, value := range fields {
		if err := doc.Set(name, value); err != nil {
			return err
		}
	}

	return nil
}

// GUIDOf returns the document id for event records: Identified when
// available, else the "id" or "guid" attribute, else empty.
func GUIDOf(doc Document) string {
	if identified, ok := doc.(Identified); ok {
		return identified.GUID()
	}

	for _, attr := range []string{"id", "guid"} {
		if v, ok := doc.Get(attr); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}

	return ""
}

// CreatedAtOf returns the document creation timestamp, zero when unknown.
func CreatedAtOf(doc Document) time.Time {
	if identified, ok := doc.(Identified); ok {
		return identified.CreatedAt()
	}

	return time.Time{}
}

// RequestIDOf returns the request handle carried by the document, if any.
func RequestIDOf(doc Document) string {
	if carrier, ok := doc.(RequestCarrier); ok {
		return carrier.RequestID()
	}

	return ""
}

// SnapshotOf returns the JSON-serializable view of the document, nil when
// the document cannot produce one.
func SnapshotOf(doc Document) map[string]any {
	if snapshotter, ok := doc.(Snapshotter); ok {
		return snapshotter.Snapshot()
	}

	return nil
}

// MapDocument is a map-backed Document used by the stores, the HTTP API and
// tests. It satisfies every optional capability.
type MapDocument struct {
	id        string
	createdAt time.Time
	requestID string
	attrs     map[string]any
}

// NewMapDocument creates a document with the given id and initial
// attributes. A nil attrs map is allowed.
func NewMapDocument(id string, attrs map[string]any) *MapDocument {
	if attrs == nil {
		attrs = make(map[string]any)
	}

	return &MapDocument{id: id, createdAt: time.Now().UTC(), attrs: attrs}
}

// Get returns the attribute value and whether it is set.
func (d *MapDocument) Get(attr string) (any, bool) {
	v, ok := d.attrs[attr]

	return v, ok
}

// Set writes the attribute value.
func (d *MapDocument) Set(attr string, value any) error {
	d.attrs[attr] = value

	return nil
}

// Update applies a batch of field updates.
func (d *MapDocument) Update(fields map[string]any) error {
	for name, value := range fields {
		d.attrs[name] = value
	}

	return nil
}

// GUID returns the document id.
func (d *MapDocument) GUID() string { return d.id }

// CreatedAt returns the creation timestamp.
func (d *MapDocument) CreatedAt() time.Time { return d.createdAt }

// RequestID returns the request handle, empty unless set.
func (d *MapDocument) RequestID() string { return d.requestID }

// SetRequestID attaches the request handle of the current operation.
func (d *MapDocument) SetRequestID(requestID string) { d.requestID = requestID }

// Snapshot returns a copy of the attributes plus the document id.
func (d *MapDocument) Snapshot() map[string]any {
	snapshot := make(map[string]any, len(d.attrs)+2)
	for k, v := range d.attrs {
		snapshot[k] = v
	}

	snapshot["id"] = d.id
	snapshot["created_at"] = d.createdAt.Format(time.RFC3339Nano)

	return snapshot
}

type mapDocumentJSON struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Attrs     map[string]any `json:"attrs"`
}

// MarshalJSON serializes the document for storage.
func (d *MapDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(mapDocumentJSON{ID: d.id, CreatedAt: d.createdAt, Attrs: d.attrs})
}

// UnmarshalJSON restores a stored document.
func (d *MapDocument) UnmarshalJSON(data []byte) error {
	var stored mapDocumentJSON
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}

	d.id = stored.ID
	d.createdAt = stored.CreatedAt
	d.attrs = stored.Attrs

	if d.attrs == nil {
		d.attrs = make(map[string]any)
	}

	return nil
}
