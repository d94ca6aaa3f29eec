package event

import "errors"

// Sentinel errors for the event bus.
var (
	// ErrBusClosed is returned when subscribing to a closed bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidTopic is returned when a topic is empty.
	ErrInvalidTopic = errors.New("invalid topic")
)
