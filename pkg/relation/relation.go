// Package relation resolves foreign-key values to the title of the referenced
// item. Misses never fail: they render as a placeholder that embeds the raw
// id.
package relation

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

// Sections exposes loaded Sections by kind. *store.Store satisfies it.
type Sections interface {
	Section(kind model.Kind) (model.Section, bool)
}

// Snapshot is a fixed set of Sections, useful when resolving many labels
// against one consistent view.
type Snapshot map[model.Kind]model.Section

// Section implements Sections.
func (s Snapshot) Section(kind model.Kind) (model.Section, bool) {
	section, ok := s[kind]
	return section, ok
}

// Take copies every listed kind from src into a Snapshot.
func Take(src Sections, kinds ...model.Kind) Snapshot {
	out := make(Snapshot, len(kinds))
	for _, kind := range kinds {
		if section, ok := src.Section(kind); ok {
			out[kind] = section
		}
	}
	return out
}

// Option is one selectable relation target.
type Option struct {
	ID       model.ID `json:"id"`
	Label    string   `json:"label"`
	Disabled bool     `json:"disabled,omitempty"`
}

// Resolver looks labels up in the Sections it was given.
type Resolver struct {
	registry *schema.Registry
	sections Sections
}

// New builds a resolver.
func New(registry *schema.Registry, sections Sections) *Resolver {
	return &Resolver{registry: registry, sections: sections}
}

// Placeholder is the label of a reference that cannot be resolved.
func Placeholder(raw any) string {
	return fmt.Sprintf("unresolved reference: %s", model.FormatValue(raw))
}

// LabelFor returns the title of the kind item identified by value. Null and
// blank values return "".
func (r *Resolver) LabelFor(kind model.Kind, value any) string {
	if model.IsBlank(value) {
		return ""
	}
	id, ok := model.NormalizeID(value)
	if !ok {
		return Placeholder(value)
	}
	def, ok := r.registry.Lookup(kind)
	if !ok || r.sections == nil {
		return Placeholder(id)
	}
	section, ok := r.sections.Section(kind)
	if !ok || !section.Loaded() {
		return Placeholder(id)
	}
	item, _, found := section.Find(id)
	if !found {
		return Placeholder(id)
	}
	title := strings.TrimSpace(item.Text(def.TitleField()))
	if title == "" {
		return Placeholder(id)
	}
	return title
}

// Label renders field of owner for display, resolving relation fields and
// passing other values through as text.
func (r *Resolver) Label(owner model.Kind, field string, value any) string {
	desc := r.registry.Resolve(field, owner)
	if desc.IsRelation() {
		return r.LabelFor(desc.Target, value)
	}
	return model.FormatValue(value)
}

// Options lists kind items as (id, title) pairs in Section order. Items whose
// id is in exclude are kept but disabled.
func (r *Resolver) Options(kind model.Kind, exclude ...model.ID) []Option {
	if r.sections == nil {
		return nil
	}
	section, ok := r.sections.Section(kind)
	if !ok {
		return nil
	}
	def, ok := r.registry.Lookup(kind)
	if !ok {
		return nil
	}
	out := make([]Option, 0, section.Len())
	for _, item := range section.Items {
		id, ok := item.ID(def.IDField)
		if !ok {
			continue
		}
		label := strings.TrimSpace(item.Text(def.TitleField()))
		if label == "" {
			label = "ID: " + id.String()
		}
		out = append(out, Option{ID: id, Label: label, Disabled: containsID(exclude, id)})
	}
	return out
}

func containsID(ids []model.ID, id model.ID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
