package canvas

// Snapshot captures one element's full state and placement at a point
// in time: a deep copy of the element (subtree included) plus where it
// sat in the tree. Snapshots are what the editor session stores in its
// history log; a nil *Snapshot means the element did not exist.
type Snapshot struct {
	// Element is a deep copy; mutating the document afterwards does not
	// affect it.
	Element *Element

	// ParentID is the ID of the element's parent, or empty for the root.
	ParentID string

	// Index is the element's position among its parent's children.
	Index int
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		Element:  s.Element.Clone(),
		ParentID: s.ParentID,
		Index:    s.Index,
	}
}
