package history

import "time"

// DefaultCapacity bounds the log when the caller does not choose a size.
const DefaultCapacity = 50

// Record is one entry in the log: a single change to the document,
// captured as opaque before/after snapshots.
type Record[T any] struct {
	// SubjectID identifies the changed element. Empty means the change
	// was document-wide rather than tied to one element.
	SubjectID string

	// SubjectLabel is a display name for history panels. It is never
	// used for lookups or equality.
	SubjectLabel string

	// Before and After are snapshots of the subject around the change.
	// The log stores them verbatim and never inspects them.
	Before T
	After  T

	// Timestamp records when the change happened. The zero value is
	// replaced at record time.
	Timestamp time.Time
}

// Log is a bounded undo/redo log. Entries are kept in insertion order;
// the cursor indexes the most recent applied entry, or -1 when every
// entry has been undone (or the log is empty).
//
// A Log is not safe for concurrent use. The owning session must
// serialize access.
type Log[T any] struct {
	entries  []Record[T]
	cursor   int
	capacity int
}

// Summary describes the log's shape for status lines and panels.
type Summary struct {
	Entries   int
	UndoDepth int
	RedoDepth int
}

// New creates a log bounded at capacity entries. Non-positive values
// fall back to DefaultCapacity.
func New[T any](capacity int) *Log[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log[T]{
		cursor:   -1,
		capacity: capacity,
	}
}

// Record appends rec as the newest entry and makes it current. Entries
// above the cursor (the redo branch) are discarded first; if the log is
// full the oldest entry is evicted. Recording never fails.
func (l *Log[T]) Record(rec Record[T]) {
	l.entries = l.entries[:l.cursor+1]

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	// Keep timestamps non-decreasing even if the wall clock steps back.
	if n := len(l.entries); n > 0 && rec.Timestamp.Before(l.entries[n-1].Timestamp) {
		rec.Timestamp = l.entries[n-1].Timestamp
	}

	l.entries = append(l.entries, rec)
	if len(l.entries) > l.capacity {
		excess := len(l.entries) - l.capacity
		l.entries = l.entries[excess:]
	}
	l.cursor = len(l.entries) - 1
}

// Undo steps the cursor back one entry and returns the record that was
// current, whose Before state the caller should restore. It reports
// false, with no state change, when there is nothing to undo.
func (l *Log[T]) Undo() (Record[T], bool) {
	if l.cursor < 0 {
		var zero Record[T]
		return zero, false
	}
	rec := l.entries[l.cursor]
	l.cursor--
	return rec, true
}

// Redo steps the cursor forward one entry and returns the record that
// became current, whose After state the caller should re-apply. It
// reports false, with no state change, when there is nothing to redo.
func (l *Log[T]) Redo() (Record[T], bool) {
	if l.cursor >= len(l.entries)-1 {
		var zero Record[T]
		return zero, false
	}
	l.cursor++
	return l.entries[l.cursor], true
}

// CanUndo reports whether Undo would return an entry.
func (l *Log[T]) CanUndo() bool {
	return l.cursor >= 0
}

// CanRedo reports whether Redo would return an entry.
func (l *Log[T]) CanRedo() bool {
	return l.cursor < len(l.entries)-1
}

// History returns a copy of all entries in insertion order, including
// undone (redo-branch) entries.
func (l *Log[T]) History() []Record[T] {
	out := make([]Record[T], len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns a copy of the last count entries in chronological
// order. It returns fewer when the log is shorter, and nil when count
// is non-positive.
func (l *Log[T]) Recent(count int) []Record[T] {
	if count <= 0 {
		return nil
	}
	if count > len(l.entries) {
		count = len(l.entries)
	}
	out := make([]Record[T], count)
	copy(out, l.entries[len(l.entries)-count:])
	return out
}

// BySubject returns every entry whose SubjectID matches, in insertion
// order.
func (l *Log[T]) BySubject(subjectID string) []Record[T] {
	var out []Record[T]
	for _, rec := range l.entries {
		if rec.SubjectID == subjectID {
			out = append(out, rec)
		}
	}
	return out
}

// Clear discards every entry and resets the cursor.
func (l *Log[T]) Clear() {
	l.entries = nil
	l.cursor = -1
}

// Len returns the number of entries currently held, including undone
// ones.
func (l *Log[T]) Len() int { return len(l.entries) }

// Capacity returns the maximum number of entries the log retains.
func (l *Log[T]) Capacity() int { return l.capacity }

// Cursor returns the index of the current entry, or -1 when everything
// has been undone.
func (l *Log[T]) Cursor() int { return l.cursor }

// Summary reports entry count and undo/redo depths in one call.
func (l *Log[T]) Summary() Summary {
	return Summary{
		Entries:   len(l.entries),
		UndoDepth: l.cursor + 1,
		RedoDepth: len(l.entries) - 1 - l.cursor,
	}
}
