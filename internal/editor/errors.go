package editor

import "errors"

// Errors returned by session operations.
var (
	// ErrNothingToUndo indicates the undo side of the history is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates the redo side of the history is empty.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrNoSelection indicates an operation that needs a selected
	// element was called with nothing selected.
	ErrNoSelection = errors.New("no element selected")
)
