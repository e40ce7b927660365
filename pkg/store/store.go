// Package store owns the Section state of one workspace session. Sections are
// replaced atomically and readers always receive copies. Each Section carries
// an in-flight flag that serialises mutations and a load ticket counter that
// lets the newest completed load win.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-artefacts/pkg/model"
)

// ErrInFlight is matched by StateError.
var ErrInFlight = errors.New("store: mutation already in flight")

// StateError rejects a mutation while another is running on the same
// Section.
type StateError struct {
	Kind model.Kind
}

func (e *StateError) Error() string {
	return fmt.Sprintf("store: %s: mutation already in flight", e.Kind)
}

// Is reports ErrInFlight equivalence.
func (e *StateError) Is(target error) bool {
	return target == ErrInFlight
}

// Ticket orders loads of one Section.
type Ticket uint64

type entry struct {
	section  model.Section
	inFlight bool
	issued   Ticket
	applied  Ticket
}

// Store holds one Section per declared kind.
type Store struct {
	mu       sync.RWMutex
	sections map[model.Kind]*entry
	order    []model.Kind
}

// Declaration names a kind and its identifier field.
type Declaration struct {
	Kind    model.Kind
	IDField string
}

// New creates empty Sections for every declared kind.
func New(decls ...Declaration) *Store {
	s := &Store{sections: make(map[model.Kind]*entry, len(decls))}
	for _, decl := range decls {
		if _, exists := s.sections[decl.Kind]; exists {
			continue
		}
		s.sections[decl.Kind] = &entry{section: model.Section{Kind: decl.Kind, IDField: decl.IDField}}
		s.order = append(s.order, decl.Kind)
	}
	return s
}

// Kinds lists the kinds in declaration order.
func (s *Store) Kinds() []model.Kind {
	return append([]model.Kind(nil), s.order...)
}

// Section returns a copy of the Section for kind.
func (s *Store) Section(kind model.Kind) (model.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sections[kind]
	if !ok {
		return model.Section{}, false
	}
	return e.section.Clone(), true
}

// Sections returns copies of every Section in declaration order.
func (s *Store) Sections() []model.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Section, 0, len(s.order))
	for _, kind := range s.order {
		out = append(out, s.sections[kind].section.Clone())
	}
	return out
}

// Acquire sets the in-flight flag for kind. The returned release func must be
// called exactly once; further calls are no-ops.
func (s *Store) Acquire(kind model.Kind) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sections[kind]
	if !ok {
		return nil, fmt.Errorf("store: acquire %q: unknown section", kind)
	}
	if e.inFlight {
		return nil, &StateError{Kind: kind}
	}
	e.inFlight = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			e.inFlight = false
			s.mu.Unlock()
		})
	}, nil
}

// InFlight reports whether a mutation holds kind.
func (s *Store) InFlight(kind model.Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sections[kind]
	return ok && e.inFlight
}

// Begin issues a load ticket for kind.
func (s *Store) Begin(kind model.Kind) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sections[kind]
	if !ok {
		return 0, fmt.Errorf("store: begin %q: unknown section", kind)
	}
	e.issued++
	return e.issued, nil
}

// Replace installs items for kind when ticket is not older than the last
// applied load. It reports whether the replacement happened and returns the
// resulting Section.
func (s *Store) Replace(kind model.Kind, ticket Ticket, items []model.Item, state model.LoadState, reason string) (model.Section, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sections[kind]
	if !ok || ticket < e.applied {
		if ok {
			return e.section.Clone(), false
		}
		return model.Section{}, false
	}
	e.applied = ticket
	e.section.Items = cloneItems(items)
	e.section.State = state
	e.section.Error = reason
	e.section.Revision++
	return e.section.Clone(), true
}

// Upsert replaces the item sharing item's id or appends it.
func (s *Store) Upsert(kind model.Kind, item model.Item) (model.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sections[kind]
	if !ok {
		return model.Section{}, fmt.Errorf("store: upsert %q: unknown section", kind)
	}
	id, ok := item.ID(e.section.IDField)
	if !ok {
		return model.Section{}, fmt.Errorf("store: upsert %s: item has no %q", kind, e.section.IDField)
	}
	if _, idx, found := e.section.Find(id); found {
		e.section.Items[idx] = item.Clone()
	} else {
		e.section.Items = append(e.section.Items, item.Clone())
	}
	e.section.Revision++
	return e.section.Clone(), nil
}

// Remove deletes the item with id. Missing ids are not an error.
func (s *Store) Remove(kind model.Kind, id model.ID) (model.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sections[kind]
	if !ok {
		return model.Section{}, fmt.Errorf("store: remove %q: unknown section", kind)
	}
	if _, idx, found := e.section.Find(id); found {
		items := make([]model.Item, 0, len(e.section.Items)-1)
		items = append(items, e.section.Items[:idx]...)
		items = append(items, e.section.Items[idx+1:]...)
		e.section.Items = items
		e.section.Revision++
	}
	return e.section.Clone(), nil
}

func cloneItems(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	for idx, item := range items {
		out[idx] = item.Clone()
	}
	return out
}
