package canvas

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Element is one node in the document tree: a tagged, optionally
// labeled node with a JSON attribute document and child elements.
type Element struct {
	// ID uniquely identifies the element within its document. Empty IDs
	// are assigned on load or insert.
	ID string `json:"id"`

	// Tag is the element kind ("section", "heading", "image", ...).
	Tag string `json:"tag"`

	// Label is the designer-facing name shown in panels.
	Label string `json:"label,omitempty"`

	// Text is the element's text content, if any.
	Text string `json:"text,omitempty"`

	// Attrs holds the element's attributes as a JSON object, addressed
	// by dotted paths ("style.color", "data.href").
	Attrs json.RawMessage `json:"attrs,omitempty"`

	Children []*Element `json:"children,omitempty"`
}

// Clone returns a deep copy of the element and its subtree.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	out := &Element{
		ID:    e.ID,
		Tag:   e.Tag,
		Label: e.Label,
		Text:  e.Text,
	}
	if len(e.Attrs) > 0 {
		out.Attrs = append(json.RawMessage(nil), e.Attrs...)
	}
	for _, c := range e.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// DisplayName returns the label when set, otherwise the tag.
func (e *Element) DisplayName() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Tag
}

// ensureIDs assigns a fresh ID to every element in the subtree that
// lacks one.
func (e *Element) ensureIDs() {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	for _, c := range e.Children {
		c.ensureIDs()
	}
}

// size returns the number of elements in the subtree, including e.
func (e *Element) size() int {
	n := 1
	for _, c := range e.Children {
		n += c.size()
	}
	return n
}
