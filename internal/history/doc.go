// Package history provides the bounded undo/redo log behind the
// workbench's property editor.
//
// The log is position-based: one slice of change records plus a cursor
// marking the most recent applied change. Undo moves the cursor
// backwards, redo moves it forwards, and recording a new change while
// the cursor sits mid-log discards the abandoned redo branch.
//
// # Records
//
// A Record captures one mutation as opaque before/after snapshots. The
// log never interprets the payloads; restoring them into the document
// is the caller's job.
//
// # Bounded capacity
//
// The log holds at most Capacity entries (DefaultCapacity when the
// caller does not choose). Recording beyond capacity silently evicts
// the oldest entry, so memory stays flat during long editing sessions:
//
//	log := history.New[*canvas.Snapshot](50)
//	log.Record(history.Record[*canvas.Snapshot]{SubjectID: id, Before: b, After: a})
//
//	rec, ok := log.Undo() // caller restores rec.Before
//	rec, ok = log.Redo()  // caller re-applies rec.After
//
// # Ownership
//
// A Log is not synchronized. It belongs to a single editor session,
// which serializes all access; see the editor package.
package history
