// Package editor provides the session facade that owns a document, its
// history log, and the event bus wiring between them.
//
// # Sessions
//
// A Session combines the canvas document, the bounded history log, a
// selection, and an event bus into a unified, thread-safe API. The
// subcomponents are not synchronized themselves; the session holds the
// lock:
//
//	sess := editor.NewSession(
//		editor.WithCapacity(100),
//		editor.WithLogger(log),
//	)
//	sess.LoadDocument(data)
//
// # Recording
//
// Every mutating operation captures a snapshot of the subject before
// and after the change, applies it, and records the pair:
//
//	sess.SetAttr("hero", "style.background", "#fff") // recorded
//	sess.Undo()                                      // restores the before snapshot
//	sess.Redo()                                      // re-applies the after snapshot
//
// A nil before snapshot marks a creation, a nil after snapshot marks a
// removal; undo and redo re-insert or remove accordingly. Selection
// changes are not recorded.
//
// # Events
//
// Mutations publish element.* topics, and every history transition
// publishes its history.* topic. Handlers run synchronously on the
// mutating goroutine, after the session lock is released, so they may
// call back into the session.
package editor
