package extension

import "errors"

// Extension host errors.
var (
	// ErrHostClosed is returned when using a closed host.
	ErrHostClosed = errors.New("extension host is closed")

	// ErrExtensionNotFound is returned when no extension with the given
	// name is loaded.
	ErrExtensionNotFound = errors.New("extension not found")

	// ErrAlreadyLoaded is returned when loading an extension whose name
	// is already taken.
	ErrAlreadyLoaded = errors.New("extension is already loaded")

	// ErrNilSession is returned when constructing a host without a
	// session.
	ErrNilSession = errors.New("session is nil")
)
