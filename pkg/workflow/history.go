package workflow

import (
	"time"

	"github.com/BriefyHQ/docflow/pkg/document"
)

// HistoryEntry is the immutable audit record appended on every transition.
type HistoryEntry struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Date       time.Time `json:"date"`
	Actor      string    `json:"actor"`
	Transition string    `json:"transition"`
	Message    string    `json:"message"`
}

// historyOf reads and normalizes the document's history list. Documents
// freshly decoded from JSON hold []any of maps; live documents hold
// []HistoryEntry.
func historyOf(doc document.Document, attr string) []HistoryEntry {
	raw, ok := doc.Get(attr)
	if !ok || raw == nil {
		return nil
	}

	switch v := raw.(type) {
	case []HistoryEntry:
		return v
	case []any:
		entries := make([]HistoryEntry, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}

			entries = append(entries, historyEntryFromMap(m))
		}

		return entries
	default:
		return nil
	}
}

func historyEntryFromMap(m map[string]any) HistoryEntry {
	entry := HistoryEntry{
		From:       stringAttr(m, "from"),
		To:         stringAttr(m, "to"),
		Actor:      stringAttr(m, "actor"),
		Transition: stringAttr(m, "transition"),
		Message:    stringAttr(m, "message"),
	}

	if date := stringAttr(m, "date"); date != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, date); err == nil {
			entry.Date = parsed
		}
	}

	return entry
}

func stringAttr(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

// appendHistory appends the entry, replacing the stored list so persistence
// layers observe the mutation even when the backing slice is reused.
func appendHistory(doc document.Document, attr string, entry HistoryEntry) error {
	entries := historyOf(doc, attr)
	entries = append(entries, entry)

	return doc.Set(attr, entries)
}
