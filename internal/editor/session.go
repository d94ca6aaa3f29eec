package editor

import (
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/event"
	"github.com/easelhq/easel/internal/history"
	"github.com/easelhq/easel/internal/logging"
)

// ElementInfo is a read-only view of one element, safe to hand to
// panels and scripts.
type ElementInfo struct {
	ID    string
	Tag   string
	Label string
	Text  string
}

// Session is the owning facade over a document, its history log, and
// the selection. All operations are safe for concurrent use; the
// unsynchronized subcomponents are only touched under the session
// lock. Event handlers run after the lock is released and may call
// back into the session.
type Session struct {
	mu sync.RWMutex

	doc      *canvas.Document
	log      *history.Log[*canvas.Snapshot]
	bus      *event.Bus
	logger   *logging.Logger
	now      func() time.Time
	selected string

	capacity int
}

// NewSession creates a session over an empty page unless WithDocument
// provides one.
func NewSession(opts ...Option) *Session {
	s := &Session{
		capacity: history.DefaultCapacity,
		logger:   logging.Null,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.doc == nil {
		s.doc = canvas.NewDocument()
	}
	if s.bus == nil {
		s.bus = event.NewBus()
	}
	s.log = history.New[*canvas.Snapshot](s.capacity)
	return s
}

// Bus returns the session's event bus.
func (s *Session) Bus() *event.Bus { return s.bus }

// LoadDocument replaces the session's document and clears selection
// and history.
func (s *Session) LoadDocument(data []byte) error {
	doc, err := canvas.Load(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.doc = doc
	s.selected = ""
	s.log.Clear()
	n := doc.Len()
	s.mu.Unlock()

	s.logger.Info("document loaded: %d elements", n)
	s.publish(event.TopicDocumentLoaded, "", nil)
	return nil
}

// SetDocumentLimit caps how many elements the document may grow to.
func (s *Session) SetDocumentLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SetLimit(n)
}

// Select makes the element current. Selection is not recorded in
// history.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	if _, ok := s.doc.Find(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", canvas.ErrElementNotFound, id)
	}
	s.selected = id
	s.mu.Unlock()

	s.publish(event.TopicElementSelected, id, nil)
	return nil
}

// Selected returns the current element ID, or empty when nothing is
// selected.
func (s *Session) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SelectedElement returns a view of the selected element. It returns
// ErrNoSelection when nothing is selected.
func (s *Session) SelectedElement() (ElementInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return ElementInfo{}, ErrNoSelection
	}
	el, ok := s.doc.Find(s.selected)
	if !ok {
		return ElementInfo{}, fmt.Errorf("%w: %s", canvas.ErrElementNotFound, s.selected)
	}
	return ElementInfo{ID: el.ID, Tag: el.Tag, Label: el.Label, Text: el.Text}, nil
}

// SetAttr writes an attribute at a dotted path and records the change.
func (s *Session) SetAttr(id, path string, value any) error {
	return s.mutate(id, event.TopicElementChanged, map[string]any{"path": path}, func() error {
		return s.doc.SetAttr(id, path, value)
	})
}

// DeleteAttr removes an attribute at a dotted path and records the
// change.
func (s *Session) DeleteAttr(id, path string) error {
	return s.mutate(id, event.TopicElementChanged, map[string]any{"path": path}, func() error {
		return s.doc.DeleteAttr(id, path)
	})
}

// SetText sets an element's text content and records the change.
func (s *Session) SetText(id, text string) error {
	return s.mutate(id, event.TopicElementChanged, map[string]any{"field": "text"}, func() error {
		return s.doc.SetText(id, text)
	})
}

// SetLabel sets an element's label and records the change.
func (s *Session) SetLabel(id, label string) error {
	return s.mutate(id, event.TopicElementChanged, map[string]any{"field": "label"}, func() error {
		return s.doc.SetLabel(id, label)
	})
}

// InsertElement appends el under parentID and records the creation
// (nil before snapshot). It returns the element's ID, generating one
// when el carries none.
func (s *Session) InsertElement(parentID string, el *canvas.Element) (string, error) {
	s.mu.Lock()
	if err := s.doc.Insert(parentID, el); err != nil {
		s.mu.Unlock()
		return "", err
	}
	id := el.ID
	after := s.doc.Snapshot(id)
	label := subjectLabel(nil, after)
	s.record(id, label, nil, after)
	s.mu.Unlock()

	s.logger.Debug("inserted %s under %s", id, parentID)
	s.publish(event.TopicElementCreated, id, nil)
	s.publish(event.TopicHistoryRecorded, id, map[string]any{"label": label})
	return id, nil
}

// RemoveElement removes the element and records the removal (nil after
// snapshot). Removing the selected element clears the selection.
func (s *Session) RemoveElement(id string) error {
	s.mu.Lock()
	before := s.doc.Snapshot(id)
	if before == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", canvas.ErrElementNotFound, id)
	}
	if err := s.doc.Remove(id); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.selected == id {
		s.selected = ""
	}
	label := subjectLabel(before, nil)
	s.record(id, label, before, nil)
	s.mu.Unlock()

	s.logger.Debug("removed %s", id)
	s.publish(event.TopicElementRemoved, id, nil)
	s.publish(event.TopicHistoryRecorded, id, map[string]any{"label": label})
	return nil
}

// Undo reverts the most recent change by restoring its before
// snapshot. It returns ErrNothingToUndo when the history is exhausted.
func (s *Session) Undo() error {
	s.mu.Lock()
	rec, ok := s.log.Undo()
	if !ok {
		s.mu.Unlock()
		return ErrNothingToUndo
	}
	if err := s.applySnapshot(rec.SubjectID, rec.Before); err != nil {
		// Put the cursor back so the entry stays current.
		s.log.Redo()
		s.mu.Unlock()
		return fmt.Errorf("undo %q: %w", rec.SubjectLabel, err)
	}
	s.mu.Unlock()

	s.logger.Debug("undid change on %s", rec.SubjectID)
	s.publish(event.TopicHistoryUndone, rec.SubjectID, map[string]any{"label": rec.SubjectLabel})
	s.publish(event.TopicElementChanged, rec.SubjectID, nil)
	return nil
}

// Redo re-applies the most recently undone change by restoring its
// after snapshot. It returns ErrNothingToRedo at the head of history.
func (s *Session) Redo() error {
	s.mu.Lock()
	rec, ok := s.log.Redo()
	if !ok {
		s.mu.Unlock()
		return ErrNothingToRedo
	}
	if err := s.applySnapshot(rec.SubjectID, rec.After); err != nil {
		s.log.Undo()
		s.mu.Unlock()
		return fmt.Errorf("redo %q: %w", rec.SubjectLabel, err)
	}
	s.mu.Unlock()

	s.logger.Debug("redid change on %s", rec.SubjectID)
	s.publish(event.TopicHistoryRedone, rec.SubjectID, map[string]any{"label": rec.SubjectLabel})
	s.publish(event.TopicElementChanged, rec.SubjectID, nil)
	return nil
}

// CanUndo reports whether Undo would apply a change.
func (s *Session) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.CanUndo()
}

// CanRedo reports whether Redo would apply a change.
func (s *Session) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.CanRedo()
}

// History returns all recorded changes in insertion order.
func (s *Session) History() []history.Record[*canvas.Snapshot] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.History()
}

// Recent returns the last count changes in chronological order.
func (s *Session) Recent(count int) []history.Record[*canvas.Snapshot] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Recent(count)
}

// HistoryFor returns the changes recorded against one element.
func (s *Session) HistoryFor(subjectID string) []history.Record[*canvas.Snapshot] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.BySubject(subjectID)
}

// HistorySummary reports the log's entry count and undo/redo depths.
func (s *Session) HistorySummary() history.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Summary()
}

// ClearHistory empties the history log.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	s.log.Clear()
	s.mu.Unlock()

	s.publish(event.TopicHistoryCleared, "", nil)
}

// ExportHistory renders the history log as diagnostic JSON.
func (s *Session) ExportHistory() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Export()
}

// Attr reads an attribute at a dotted path.
func (s *Session) Attr(id, path string) (gjson.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Attr(id, path)
}

// Element returns a read-only view of one element.
func (s *Session) Element(id string) (ElementInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	el, ok := s.doc.Find(id)
	if !ok {
		return ElementInfo{}, false
	}
	return ElementInfo{ID: el.ID, Tag: el.Tag, Label: el.Label, Text: el.Text}, true
}

// Elements lists every element in document order.
func (s *Session) Elements() []ElementInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ElementInfo
	s.doc.Walk(func(el *canvas.Element) bool {
		out = append(out, ElementInfo{ID: el.ID, Tag: el.Tag, Label: el.Label, Text: el.Text})
		return true
	})
	return out
}

// DocumentBytes renders the document as indented JSON.
func (s *Session) DocumentBytes() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Bytes()
}

// mutate captures before/after snapshots around apply, records the
// change, and publishes topic. The mutation is not recorded when apply
// fails.
func (s *Session) mutate(id string, topic event.Topic, data map[string]any, apply func() error) error {
	s.mu.Lock()
	before := s.doc.Snapshot(id)
	if err := apply(); err != nil {
		s.mu.Unlock()
		return err
	}
	after := s.doc.Snapshot(id)
	label := subjectLabel(before, after)
	s.record(id, label, before, after)
	s.mu.Unlock()

	s.publish(topic, id, data)
	s.publish(event.TopicHistoryRecorded, id, map[string]any{"label": label})
	return nil
}

// record appends to the history log. Callers hold the write lock.
func (s *Session) record(id, label string, before, after *canvas.Snapshot) {
	s.log.Record(history.Record[*canvas.Snapshot]{
		SubjectID:    id,
		SubjectLabel: label,
		Before:       before,
		After:        after,
		Timestamp:    s.now(),
	})
}

// applySnapshot moves the subject to the target state: replace when it
// exists, re-insert at its recorded place when it does not, remove when
// the target is nil. Callers hold the write lock.
func (s *Session) applySnapshot(id string, target *canvas.Snapshot) error {
	if target == nil {
		if s.selected == id {
			s.selected = ""
		}
		return s.doc.Remove(id)
	}
	if _, ok := s.doc.Find(id); ok {
		return s.doc.Replace(id, target)
	}
	return s.doc.InsertAt(target.ParentID, target.Index, target.Element.Clone())
}

func (s *Session) publish(topic event.Topic, subjectID string, data map[string]any) {
	s.bus.Publish(event.Event{
		Topic:     topic,
		SubjectID: subjectID,
		Data:      data,
		Time:      s.now(),
	})
}

func subjectLabel(before, after *canvas.Snapshot) string {
	switch {
	case after != nil:
		return after.Element.DisplayName()
	case before != nil:
		return before.Element.DisplayName()
	default:
		return ""
	}
}
