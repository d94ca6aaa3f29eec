package history

import (
	"encoding/json"
	"time"
)

type exportEntry[T any] struct {
	SubjectID    string `json:"subjectId"`
	SubjectLabel string `json:"subjectLabel"`
	Before       T      `json:"before"`
	After        T      `json:"after"`
	Timestamp    string `json:"timestamp"`
}

type exportDocument[T any] struct {
	ExportedAt string           `json:"exportedAt"`
	Entries    []exportEntry[T] `json:"entries"`
}

// Export renders the full log as JSON for diagnostics and support
// tooling. Timestamps are RFC 3339. The format is write-only; there is
// no import path.
func (l *Log[T]) Export() ([]byte, error) {
	doc := exportDocument[T]{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:    make([]exportEntry[T], len(l.entries)),
	}
	for i, rec := range l.entries {
		doc.Entries[i] = exportEntry[T]{
			SubjectID:    rec.SubjectID,
			SubjectLabel: rec.SubjectLabel,
			Before:       rec.Before,
			After:        rec.After,
			Timestamp:    rec.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}
