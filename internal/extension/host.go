package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/easelhq/easel/internal/editor"
	"github.com/easelhq/easel/internal/event"
	"github.com/easelhq/easel/internal/logging"
)

// DefaultScriptTimeout bounds a single script call. Pure Lua loops are
// aborted between instructions once it elapses.
const DefaultScriptTimeout = 5 * time.Second

// maxCascade bounds handler feedback within one flush: a handler that
// mutates the document queues further events, which are delivered in
// later rounds of the same flush until the queues drain or the cap is
// hit.
const maxCascade = 16

// Info describes a loaded extension.
type Info struct {
	Name    string
	Version string
	Path    string
}

// extension is one loaded script with its own Lua state.
type extension struct {
	name     string
	version  string
	path     string
	state    *luaState
	handlers *lua.LTable       // pins Lua handler functions against GC
	subs     map[string]string // bus subscription ID -> handler key
	nextKey  int

	pmu     sync.Mutex
	pending []pendingEvent
}

type pendingEvent struct {
	key string
	ev  event.Event
}

// enqueue records an event for later delivery. It is called from bus
// dispatch and must not touch the Lua state.
func (e *extension) enqueue(key string, ev event.Event) {
	e.pmu.Lock()
	e.pending = append(e.pending, pendingEvent{key: key, ev: ev})
	e.pmu.Unlock()
}

func (e *extension) takePending() []pendingEvent {
	e.pmu.Lock()
	defer e.pmu.Unlock()
	out := e.pending
	e.pending = nil
	return out
}

// Host runs designer extensions against one editor session, with one
// sandboxed Lua state per extension.
type Host struct {
	mu      sync.Mutex
	session *editor.Session
	logger  *logging.Logger
	timeout time.Duration
	exts    map[string]*extension
	order   []string
	closed  bool
}

// Option configures a Host.
type Option func(*Host)

// WithTimeout bounds each script call. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(h *Host) {
		if d >= 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the host logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHost creates an extension host bound to session.
func NewHost(session *editor.Session, opts ...Option) (*Host, error) {
	if session == nil {
		return nil, ErrNilSession
	}
	h := &Host{
		session: session,
		logger:  logging.Null,
		timeout: DefaultScriptTimeout,
		exts:    make(map[string]*extension),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// LoadDir loads every .lua file in dir, in name order. Loading stops at
// the first failure.
func (h *Host) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read extensions dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		if err := h.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads a single extension script. The extension's name
// defaults to the file name without its suffix; easel.register can
// override it. Script errors are wrapped with the extension name.
func (h *Host) LoadFile(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}

	name := strings.TrimSuffix(filepath.Base(path), ".lua")
	ext := &extension{
		name:  name,
		path:  path,
		state: newLuaState(h.timeout),
		subs:  make(map[string]string),
	}
	h.installAPI(ext)

	if err := ext.state.doFile(path); err != nil {
		h.release(ext)
		return fmt.Errorf("extension %s: %w", name, err)
	}
	if _, exists := h.exts[ext.name]; exists {
		h.release(ext)
		return fmt.Errorf("extension %s: %w", ext.name, ErrAlreadyLoaded)
	}

	h.exts[ext.name] = ext
	h.order = append(h.order, ext.name)
	h.logger.WithField("extension", ext.name).Info("extension loaded")
	h.flushLocked()
	return nil
}

// RunString executes code inside a loaded extension's state. Queued
// events are delivered afterwards.
func (h *Host) RunString(name, code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	ext, ok := h.exts[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrExtensionNotFound)
	}
	if err := ext.state.doString(code); err != nil {
		return fmt.Errorf("extension %s: %w", name, err)
	}
	h.flushLocked()
	return nil
}

// Unload removes one extension, dropping its subscriptions and state.
func (h *Host) Unload(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	ext, ok := h.exts[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrExtensionNotFound)
	}
	h.release(ext)
	delete(h.exts, name)
	for i, n := range h.order {
		if n == name {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.logger.WithField("extension", name).Info("extension unloaded")
	return nil
}

// Extensions lists loaded extensions in load order.
func (h *Host) Extensions() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Info, 0, len(h.order))
	for _, name := range h.order {
		ext := h.exts[name]
		out = append(out, Info{Name: ext.name, Version: ext.version, Path: ext.path})
	}
	return out
}

// Extension returns one loaded extension's description.
func (h *Host) Extension(name string) (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ext, ok := h.exts[name]
	if !ok {
		return Info{}, false
	}
	return Info{Name: ext.name, Version: ext.version, Path: ext.path}, true
}

// Flush delivers queued bus events to Lua handlers. Delivery always
// happens on the goroutine calling into the host, never on the
// publisher's.
func (h *Host) Flush() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.flushLocked()
}

func (h *Host) flushLocked() {
	for round := 0; round < maxCascade; round++ {
		delivered := false
		for _, name := range h.order {
			ext := h.exts[name]
			for _, p := range ext.takePending() {
				delivered = true
				h.dispatch(ext, p)
			}
		}
		if !delivered {
			return
		}
	}
	h.logger.Warn("event cascade still active after %d rounds", maxCascade)
}

// dispatch invokes one queued handler. Handler errors are logged, not
// propagated; an event handler must not take down the host.
func (h *Host) dispatch(ext *extension, p pendingEvent) {
	fn := ext.handlers.RawGetString(p.key)
	if fn.Type() != lua.LTFunction {
		return // handler removed since the event was queued
	}
	tbl := eventToTable(ext.state.L, p.ev)
	if err := ext.state.call(fn, tbl); err != nil {
		h.logger.WithField("extension", ext.name).Error("event handler failed: %v", err)
	}
}

// release tears down an extension's subscriptions and Lua state.
func (h *Host) release(ext *extension) {
	for subID := range ext.subs {
		h.session.Bus().Unsubscribe(subID)
	}
	ext.subs = nil
	ext.state.close()
}

// Close unloads every extension and marks the host closed. It is safe
// to call more than once.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	for _, name := range h.order {
		h.release(h.exts[name])
	}
	h.exts = make(map[string]*extension)
	h.order = nil
	h.closed = true
	return nil
}
