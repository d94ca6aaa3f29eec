package event

// Topic routes events to subscribers.
type Topic string

// Topics published by the workbench.
const (
	// TopicDocumentLoaded fires when a document is loaded into a session.
	TopicDocumentLoaded Topic = "document.loaded"

	// TopicElementSelected fires when the selection moves.
	TopicElementSelected Topic = "element.selected"

	// TopicElementChanged fires after any element mutation.
	TopicElementChanged Topic = "element.changed"

	// TopicElementCreated fires after an element is inserted.
	TopicElementCreated Topic = "element.created"

	// TopicElementRemoved fires after an element is removed.
	TopicElementRemoved Topic = "element.removed"

	// TopicHistoryRecorded fires when a change enters the history log.
	TopicHistoryRecorded Topic = "history.recorded"

	// TopicHistoryUndone fires after a successful undo.
	TopicHistoryUndone Topic = "history.undone"

	// TopicHistoryRedone fires after a successful redo.
	TopicHistoryRedone Topic = "history.redone"

	// TopicHistoryCleared fires when the history log is emptied.
	TopicHistoryCleared Topic = "history.cleared"
)
