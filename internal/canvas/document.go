// Package canvas models the document tree the workbench edits: a
// hierarchy of elements carrying JSON attribute documents addressed by
// dotted paths. A Document is not synchronized; the owning editor
// session serializes access.
package canvas

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document is an element tree plus an ID index for O(1) lookups.
type Document struct {
	root    *Element
	index   map[string]*Element
	parents map[string]*Element
	limit   int
}

// NewDocument creates an empty document with a fresh page root.
func NewDocument() *Document {
	d := &Document{
		root: &Element{ID: uuid.New().String(), Tag: "page"},
	}
	d.index = map[string]*Element{d.root.ID: d.root}
	d.parents = map[string]*Element{}
	return d
}

// Load parses a document from its JSON form (the root element).
// Elements without IDs are assigned fresh ones.
func Load(data []byte) (*Document, error) {
	var root Element
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if root.ID == "" && root.Tag == "" && len(root.Children) == 0 {
		return nil, ErrEmptyDocument
	}
	root.ensureIDs()
	d := &Document{root: &root}
	if err := d.reindex(); err != nil {
		return nil, err
	}
	return d, nil
}

// Root returns the document's root element.
func (d *Document) Root() *Element { return d.root }

// Len returns the number of elements in the document.
func (d *Document) Len() int { return len(d.index) }

// SetLimit caps how many elements the document may grow to. It guards
// against runaway scripts and is enforced on insert, not on load.
// Non-positive means unlimited.
func (d *Document) SetLimit(n int) { d.limit = n }

// Find returns the element with the given ID.
func (d *Document) Find(id string) (*Element, bool) {
	el, ok := d.index[id]
	return el, ok
}

// Walk visits every element depth-first, root first. The walk stops
// when fn returns false.
func (d *Document) Walk(fn func(*Element) bool) {
	var walk func(el *Element) bool
	walk = func(el *Element) bool {
		if !fn(el) {
			return false
		}
		for _, c := range el.Children {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(d.root)
}

// Insert appends el as the last child of parentID. Empty IDs anywhere
// in el's subtree are assigned fresh ones. The document is unchanged
// when an error is returned.
func (d *Document) Insert(parentID string, el *Element) error {
	return d.insertAt(parentID, -1, el)
}

// InsertAt inserts el among parentID's children at index, clamped to
// the valid range. Undo replay uses it to restore removed elements in
// place.
func (d *Document) InsertAt(parentID string, index int, el *Element) error {
	return d.insertAt(parentID, index, el)
}

func (d *Document) insertAt(parentID string, index int, el *Element) error {
	if el == nil {
		return ErrNilElement
	}
	parent, ok := d.index[parentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, parentID)
	}
	el.ensureIDs()
	if err := d.checkNewIDs(el, map[string]bool{}, nil); err != nil {
		return err
	}
	if d.limit > 0 && len(d.index)+el.size() > d.limit {
		return fmt.Errorf("%w: limit %d", ErrTooManyElements, d.limit)
	}
	if index < 0 || index > len(parent.Children) {
		index = len(parent.Children)
	}
	children := make([]*Element, 0, len(parent.Children)+1)
	children = append(children, parent.Children[:index]...)
	children = append(children, el)
	children = append(children, parent.Children[index:]...)
	parent.Children = children
	return d.reindex()
}

// Remove detaches the element and its subtree. The root cannot be
// removed.
func (d *Document) Remove(id string) error {
	el, ok := d.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	parent, ok := d.parents[id]
	if !ok {
		return ErrRemoveRoot
	}
	for i, c := range parent.Children {
		if c == el {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			break
		}
	}
	return d.reindex()
}

// Replace restores the element's recorded state in place: tag, label,
// text, attrs, and subtree all come from the snapshot. The element
// keeps its position in the tree.
func (d *Document) Replace(id string, snap *Snapshot) error {
	if snap == nil || snap.Element == nil {
		return ErrNilSnapshot
	}
	el, ok := d.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	// IDs in the restored subtree may only collide with IDs the
	// replaced subtree already owns.
	owned := map[string]bool{}
	collectIDs(el, owned)
	restored := snap.Element.Clone()
	if err := d.checkNewIDs(restored, map[string]bool{}, owned); err != nil {
		return err
	}
	*el = *restored
	return d.reindex()
}

// SetText sets the element's text content.
func (d *Document) SetText(id, text string) error {
	el, ok := d.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	el.Text = text
	return nil
}

// SetLabel sets the element's designer-facing label.
func (d *Document) SetLabel(id, label string) error {
	el, ok := d.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	el.Label = label
	return nil
}

// Attr reads the attribute at a gjson path. A missing element is an
// error; a missing attribute is a non-existent Result.
func (d *Document) Attr(id, path string) (gjson.Result, error) {
	el, ok := d.index[id]
	if !ok {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	if path == "" {
		return gjson.Result{}, ErrInvalidPath
	}
	return gjson.GetBytes(el.Attrs, path), nil
}

// SetAttr writes value at an sjson path, creating intermediate objects
// as needed.
func (d *Document) SetAttr(id, path string, value any) error {
	el, ok := d.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	if path == "" {
		return ErrInvalidPath
	}
	updated, err := sjson.SetBytes(el.Attrs, path, value)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidPath, path, err)
	}
	el.Attrs = updated
	return nil
}

// DeleteAttr removes the attribute at path. Deleting a path that does
// not exist is not an error.
func (d *Document) DeleteAttr(id, path string) error {
	el, ok := d.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	if path == "" {
		return ErrInvalidPath
	}
	updated, err := sjson.DeleteBytes(el.Attrs, path)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidPath, path, err)
	}
	el.Attrs = updated
	return nil
}

// Snapshot captures the element's current state and placement, or nil
// when the element does not exist.
func (d *Document) Snapshot(id string) *Snapshot {
	el, ok := d.index[id]
	if !ok {
		return nil
	}
	snap := &Snapshot{Element: el.Clone()}
	if parent, ok := d.parents[id]; ok {
		snap.ParentID = parent.ID
		for i, c := range parent.Children {
			if c == el {
				snap.Index = i
				break
			}
		}
	}
	return snap
}

// MarshalJSON renders the document as its root element.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.root)
}

// Bytes renders the document as indented JSON, the on-disk format.
func (d *Document) Bytes() ([]byte, error) {
	return json.MarshalIndent(d.root, "", "  ")
}

// reindex rebuilds the ID and parent maps from the tree. On duplicate
// IDs the existing maps are left in place.
func (d *Document) reindex() error {
	index := make(map[string]*Element, len(d.index))
	parents := make(map[string]*Element, len(d.parents))
	var walk func(el, parent *Element) error
	walk = func(el, parent *Element) error {
		if _, exists := index[el.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
		}
		index[el.ID] = el
		if parent != nil {
			parents[el.ID] = parent
		}
		for _, c := range el.Children {
			if err := walk(c, el); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(d.root, nil); err != nil {
		return err
	}
	d.index = index
	d.parents = parents
	return nil
}

// checkNewIDs verifies that no ID in el's subtree is already taken,
// except those in allowed, and that the subtree itself has no internal
// duplicates.
func (d *Document) checkNewIDs(el *Element, seen, allowed map[string]bool) error {
	if seen[el.ID] {
		return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
	}
	seen[el.ID] = true
	if _, exists := d.index[el.ID]; exists && !allowed[el.ID] {
		return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
	}
	for _, c := range el.Children {
		if err := d.checkNewIDs(c, seen, allowed); err != nil {
			return err
		}
	}
	return nil
}

func collectIDs(el *Element, into map[string]bool) {
	into[el.ID] = true
	for _, c := range el.Children {
		collectIDs(c, into)
	}
}
