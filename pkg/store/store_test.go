package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-artefacts/pkg/model"
)

func newTestStore() *Store {
	return New(
		Declaration{Kind: "requisitos", IDField: "id"},
		Declaration{Kind: "casos_uso", IDField: "id"},
	)
}

func TestSectionsStartEmpty(t *testing.T) {
	s := newTestStore()
	sections := s.Sections()
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	for _, section := range sections {
		if section.State != model.StateEmpty || section.Len() != 0 {
			t.Fatalf("section %s not empty: %+v", section.Kind, section)
		}
	}
	if _, ok := s.Section("actores"); ok {
		t.Fatalf("undeclared section should be absent")
	}
}

func TestAcquireRejectsSecondMutation(t *testing.T) {
	s := newTestStore()
	release, err := s.Acquire("requisitos")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	_, err = s.Acquire("requisitos")
	var stateErr *StateError
	if !errors.As(err, &stateErr) || !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if _, err := s.Acquire("casos_uso"); err != nil {
		t.Fatalf("other sections stay available: %v", err)
	}

	release()
	release()
	if s.InFlight("requisitos") {
		t.Fatalf("flag not released")
	}
	if _, err := s.Acquire("requisitos"); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestReplaceIsLastWriterWins(t *testing.T) {
	s := newTestStore()
	older, _ := s.Begin("requisitos")
	newer, _ := s.Begin("requisitos")

	if _, ok := s.Replace("requisitos", newer, []model.Item{{"id": "2"}}, model.StateLoaded, ""); !ok {
		t.Fatalf("newer load should apply")
	}
	section, ok := s.Replace("requisitos", older, []model.Item{{"id": "1"}}, model.StateLoaded, "")
	if ok {
		t.Fatalf("older load must be discarded")
	}
	if diff := cmp.Diff([]model.ID{"2"}, section.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if section.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", section.Revision)
	}
}

func TestReplaceCopiesItems(t *testing.T) {
	s := newTestStore()
	ticket, _ := s.Begin("requisitos")
	items := []model.Item{{"id": "1", "nombre": "a"}}
	s.Replace("requisitos", ticket, items, model.StateLoaded, "")
	items[0]["nombre"] = "mutated"

	section, _ := s.Section("requisitos")
	if section.Items[0].Text("nombre") != "a" {
		t.Fatalf("store shares caller slices")
	}
	section.Items[0]["nombre"] = "mutated"
	again, _ := s.Section("requisitos")
	if again.Items[0].Text("nombre") != "a" {
		t.Fatalf("store leaks internal items")
	}
}

func TestUpsertAndRemove(t *testing.T) {
	s := newTestStore()
	ticket, _ := s.Begin("requisitos")
	s.Replace("requisitos", ticket, []model.Item{{"id": 1, "nombre": "a"}, {"id": 2, "nombre": "b"}}, model.StateLoaded, "")

	section, err := s.Upsert("requisitos", model.Item{"id": "1", "nombre": "A"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if section.Len() != 2 || section.Items[0].Text("nombre") != "A" {
		t.Fatalf("upsert should replace in place: %+v", section.Items)
	}

	section, _ = s.Upsert("requisitos", model.Item{"id": 3, "nombre": "c"})
	if diff := cmp.Diff([]model.ID{"1", "2", "3"}, section.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	section, _ = s.Remove("requisitos", "2")
	if diff := cmp.Diff([]model.ID{"1", "3"}, section.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if _, err := s.Upsert("requisitos", model.Item{"nombre": "no id"}); err == nil {
		t.Fatalf("expected error for item without id")
	}
}

func TestConcurrentAcquireAdmitsOne(t *testing.T) {
	s := newTestStore()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Acquire("casos_uso"); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if granted != 1 {
		t.Fatalf("expected exactly one acquisition, got %d", granted)
	}
}
