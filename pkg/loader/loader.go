// Package loader fetches Sections from the backend. Loads are either silent
// (refresh state used for label resolution, no renderer calls) or visible
// (the renderer is told about the new Section or the failure). Scenario-style
// kinds that declare a parent field pointing at a project-scoped kind are
// filtered against the loaded parent Section.
package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/store"
	"github.com/goliatone/go-artefacts/pkg/transport"
)

// Options controls one load.
type Options struct {
	Silent bool
}

// Silent is shorthand for Options{Silent: true}.
var Silent = Options{Silent: true}

// Visible is shorthand for Options{}.
var Visible = Options{}

// Loader populates a store from a transport.
type Loader struct {
	registry  *schema.Registry
	store     *store.Store
	transport transport.Transport
	project   string
	renderer  render.SectionRenderer
	logger    zerolog.Logger
}

// Option customises a Loader.
type Option func(*Loader)

// WithRenderer sets the collaborator notified by visible loads.
func WithRenderer(renderer render.SectionRenderer) Option {
	return func(l *Loader) {
		if renderer != nil {
			l.renderer = renderer
		}
	}
}

// WithLogger sets the logger used for silent failures and filtering notes.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New builds a loader for project.
func New(registry *schema.Registry, st *store.Store, tr transport.Transport, project string, options ...Option) *Loader {
	l := &Loader{
		registry:  registry,
		store:     st,
		transport: tr,
		project:   project,
		renderer:  render.Nop{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load fetches kind and replaces its Section.
//
// A failed silent load keeps the previous Section and only logs. A failed
// visible load clears the Section, marks it failed and notifies the renderer.
// Either way the error is returned.
func (l *Loader) Load(ctx context.Context, kind model.Kind, opts Options) (model.Section, error) {
	def, ok := l.registry.Lookup(kind)
	if !ok {
		return model.Section{}, fmt.Errorf("loader: %q: %w", kind, schema.ErrUnknownKind)
	}
	ticket, err := l.store.Begin(kind)
	if err != nil {
		return model.Section{}, fmt.Errorf("loader: %w", err)
	}

	items, err := l.fetch(ctx, def)
	if err != nil {
		return l.fail(kind, ticket, opts, err)
	}
	items = l.filter(def, items)

	section, applied := l.store.Replace(kind, ticket, items, model.StateLoaded, "")
	if !applied {
		l.logger.Debug().Str("kind", string(kind)).Uint64("ticket", uint64(ticket)).Msg("stale load discarded")
		return section, nil
	}
	l.logger.Debug().
		Str("kind", string(kind)).
		Bool("silent", opts.Silent).
		Int("items", section.Len()).
		Msg("section loaded")
	if !opts.Silent {
		l.renderer.SectionLoaded(kind, section)
	}
	return section, nil
}

func (l *Loader) fetch(ctx context.Context, def schema.EntityKind) ([]model.Item, error) {
	target, err := l.registry.Target(def.Key, l.project, "")
	if err != nil {
		return nil, err
	}
	payload, err := l.transport.Do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	items, err := model.DecodeItems(payload)
	if err != nil {
		return nil, err
	}
	return l.dedupe(def, items)
}

// dedupe enforces unique ids: a repeated id replaces the earlier item in
// place.
func (l *Loader) dedupe(def schema.EntityKind, items []model.Item) ([]model.Item, error) {
	out := make([]model.Item, 0, len(items))
	index := make(map[model.ID]int, len(items))
	for idx, item := range items {
		id, ok := item.ID(def.IDField)
		if !ok {
			return nil, fmt.Errorf("%w: item %d has no %q", model.ErrMalformedPayload, idx, def.IDField)
		}
		if prev, dup := index[id]; dup {
			l.logger.Warn().Str("kind", string(def.Key)).Str("id", id.String()).Msg("duplicate id in payload, keeping the last one")
			out[prev] = item
			continue
		}
		index[id] = len(out)
		out = append(out, item)
	}
	return out, nil
}

// filter drops items whose parent does not resolve in the loaded parent
// Section when that parent kind is project scoped.
func (l *Loader) filter(def schema.EntityKind, items []model.Item) []model.Item {
	if def.ParentField == "" {
		return items
	}
	desc := l.registry.Resolve(def.ParentField, def.Key)
	parentDef, ok := l.registry.Lookup(desc.Target)
	if !desc.IsRelation() || !ok || !parentDef.ProjectScoped {
		return items
	}
	parent, _ := l.store.Section(desc.Target)
	if !parent.Loaded() {
		l.logger.Warn().
			Str("kind", string(def.Key)).
			Str("parent", string(desc.Target)).
			Msg("parent section not loaded, filtering drops every item")
	}

	kept := items[:0:0]
	for _, item := range items {
		id, ok := model.NormalizeID(item[def.ParentField])
		if !ok {
			continue
		}
		if _, _, found := parent.Find(id); found {
			kept = append(kept, item)
		}
	}
	if dropped := len(items) - len(kept); dropped > 0 {
		l.logger.Debug().Str("kind", string(def.Key)).Int("dropped", dropped).Msg("items outside the active project dropped")
	}
	return kept
}

func (l *Loader) fail(kind model.Kind, ticket store.Ticket, opts Options, cause error) (model.Section, error) {
	err := fmt.Errorf("loader: %s: %w", kind, cause)
	if opts.Silent {
		l.logger.Warn().Err(cause).Str("kind", string(kind)).Msg("silent load failed, keeping previous state")
		section, _ := l.store.Section(kind)
		return section, err
	}
	section, applied := l.store.Replace(kind, ticket, nil, model.StateFailed, cause.Error())
	if applied {
		l.renderer.SectionFailed(kind, err)
	}
	l.logger.Error().Err(cause).Str("kind", string(kind)).Msg("load failed")
	return section, err
}

// Redraw notifies the renderer with the current Section without fetching.
func (l *Loader) Redraw(kind model.Kind) {
	if section, ok := l.store.Section(kind); ok {
		l.renderer.SectionLoaded(kind, section)
	}
}

// Bootstrap silently loads every prerequisite kind in load order, then makes
// every kind visible: kinds already loaded silently are redrawn, the rest are
// fetched. Failures are joined; each only affects its own Section.
func (l *Loader) Bootstrap(ctx context.Context) error {
	ready := make(map[model.Kind]bool)
	for _, kind := range l.registry.LoadOrder() {
		if !l.registry.IsPrerequisite(kind) {
			continue
		}
		if _, err := l.Load(ctx, kind, Silent); err == nil {
			ready[kind] = true
		}
	}

	var errs []error
	for _, kind := range l.registry.LoadOrder() {
		if ready[kind] {
			l.Redraw(kind)
			continue
		}
		if _, err := l.Load(ctx, kind, Visible); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Project returns the active project id.
func (l *Loader) Project() string {
	return l.project
}
