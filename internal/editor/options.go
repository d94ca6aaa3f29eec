package editor

import (
	"time"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/event"
	"github.com/easelhq/easel/internal/logging"
)

// Option configures a Session during creation.
type Option func(*Session)

// WithCapacity bounds the session's history log. Non-positive values
// keep the default.
func WithCapacity(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithDocument starts the session on an existing document instead of
// an empty page.
func WithDocument(doc *canvas.Document) Option {
	return func(s *Session) {
		if doc != nil {
			s.doc = doc
		}
	}
}

// WithBus attaches a shared event bus. Without it the session creates
// its own.
func WithBus(bus *event.Bus) Option {
	return func(s *Session) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithLogger attaches a logger. Without it the session stays silent.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock used to stamp history records.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
