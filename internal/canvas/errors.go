package canvas

import "errors"

// Errors returned by document operations.
var (
	// ErrElementNotFound indicates the requested element ID is not in the document.
	ErrElementNotFound = errors.New("element not found")

	// ErrDuplicateID indicates an element ID already exists in the document.
	ErrDuplicateID = errors.New("duplicate element id")

	// ErrInvalidPath indicates an empty or malformed attribute path.
	ErrInvalidPath = errors.New("invalid attribute path")

	// ErrNilElement indicates a nil element was passed to a mutating operation.
	ErrNilElement = errors.New("nil element")

	// ErrNilSnapshot indicates a nil snapshot was passed to a restore operation.
	ErrNilSnapshot = errors.New("nil snapshot")

	// ErrRemoveRoot indicates an attempt to remove the document root.
	ErrRemoveRoot = errors.New("cannot remove document root")

	// ErrEmptyDocument indicates document data with no root element.
	ErrEmptyDocument = errors.New("empty document")

	// ErrTooManyElements indicates the document element limit was reached.
	ErrTooManyElements = errors.New("too many elements")
)
