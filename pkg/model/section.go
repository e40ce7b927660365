package model

// LoadState tracks whether a Section has been populated.
type LoadState int

const (
	// StateEmpty is the session-start state: never loaded.
	StateEmpty LoadState = iota
	// StateLoaded means the last load replaced the items successfully.
	StateLoaded
	// StateFailed means the last visible load failed and items were cleared.
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Section pairs a kind with its currently loaded items in load order.
type Section struct {
	Kind     Kind
	IDField  string
	Items    []Item
	State    LoadState
	Error    string
	Revision uint64
}

// Loaded reports whether at least one load completed successfully. Silent
// loads count.
func (s Section) Loaded() bool {
	return s.State == StateLoaded
}

// Len returns the number of items.
func (s Section) Len() int {
	return len(s.Items)
}

// Find locates the item whose identifier matches id.
func (s Section) Find(id ID) (Item, int, bool) {
	if id.IsZero() {
		return nil, -1, false
	}
	for idx, item := range s.Items {
		if itemID, ok := item.ID(s.IDField); ok && itemID == id {
			return item, idx, true
		}
	}
	return nil, -1, false
}

// IDs returns the canonical ids in item order.
func (s Section) IDs() []ID {
	out := make([]ID, 0, len(s.Items))
	for _, item := range s.Items {
		if id, ok := item.ID(s.IDField); ok {
			out = append(out, id)
		}
	}
	return out
}

// Clone copies the section and its items so callers cannot mutate shared
// state.
func (s Section) Clone() Section {
	out := s
	if s.Items != nil {
		out.Items = make([]Item, len(s.Items))
		for idx, item := range s.Items {
			out.Items[idx] = item.Clone()
		}
	}
	return out
}
