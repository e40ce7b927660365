package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/export"
	"github.com/goliatone/go-artefacts/pkg/form"
	"github.com/goliatone/go-artefacts/pkg/loader"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/mutation"
	"github.com/goliatone/go-artefacts/pkg/relation"
	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/store"
	"github.com/goliatone/go-artefacts/pkg/transport"
)

// ErrNoProjectKind is returned when the registry declares no catalog kind for
// projects.
var ErrNoProjectKind = errors.New("workspace: registry declares no project kind")

// ErrUnknownState is returned for a project state filter outside the declared
// values.
var ErrUnknownState = errors.New("workspace: unknown project state")

// Projects manages the project list of the signed-in account. It shares the
// Section machinery of a Workspace but is bound to no project.
type Projects struct {
	kind      model.Kind
	registry  *schema.Registry
	store     *store.Store
	loader    *loader.Loader
	mutations *mutation.Orchestrator
	forms     *form.Builder
	cards     *render.CardBuilder
	logger    zerolog.Logger
}

// OpenProjects assembles the project list for session. session.Project is
// ignored. Workspace options that concern documents and contracts have no
// effect here.
func OpenProjects(session Session, options ...Option) (*Projects, error) {
	w := &Workspace{
		session:  session,
		location: time.Local,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	if w.registry == nil {
		w.registry = schema.Default()
	}
	kind, ok := w.registry.ProjectKind()
	if !ok {
		return nil, ErrNoProjectKind
	}
	if w.session.Project == transport.DemoProject {
		w.session.Offline = true
	}
	if w.transport == nil {
		tr, err := w.newTransport()
		if err != nil {
			return nil, err
		}
		w.transport = tr
	}

	p := &Projects{
		kind:     kind,
		registry: w.registry,
		store:    store.New(store.Declaration{Kind: kind, IDField: w.registry.Describe(kind).IDField}),
		logger:   w.logger,
	}
	p.loader = loader.New(w.registry, p.store, w.transport, "",
		loader.WithRenderer(render.Multi(w.renderers)),
		loader.WithLogger(w.logger),
	)
	p.mutations = mutation.New(w.registry, p.store, w.transport, p.loader, mutation.WithLogger(w.logger))
	p.forms = form.NewBuilder(w.registry, p.store, form.WithLocation(w.location))
	dates := export.NewDateFormatter(w.session.Locale, w.location)
	p.cards = render.NewCardBuilder(w.registry, relation.New(w.registry, p.store), dates)
	return p, nil
}

// Kind returns the catalog kind holding projects.
func (p *Projects) Kind() model.Kind {
	return p.kind
}

// Registry returns the schema registry in use.
func (p *Projects) Registry() *schema.Registry {
	return p.registry
}

// Load visibly fetches the project list.
func (p *Projects) Load(ctx context.Context) (model.Section, error) {
	return p.loader.Load(ctx, p.kind, loader.Visible)
}

// Section returns a copy of the loaded project list.
func (p *Projects) Section() model.Section {
	section, _ := p.store.Section(p.kind)
	return section
}

// States lists the declared project states.
func (p *Projects) States() []string {
	return append([]string(nil), p.registry.Resolve("estado", p.kind).Values...)
}

// List returns the loaded projects whose state matches estado, compared case
// insensitively. An empty estado matches every project.
func (p *Projects) List(estado string) ([]model.Item, error) {
	estado = strings.TrimSpace(estado)
	if estado != "" {
		known := false
		for _, state := range p.States() {
			if strings.EqualFold(state, estado) {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownState, estado, strings.Join(p.States(), ", "))
		}
	}

	section := p.Section()
	out := make([]model.Item, 0, section.Len())
	for _, item := range section.Items {
		if estado == "" || strings.EqualFold(item.Text("estado"), estado) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Cards projects the projects matching estado into list cards.
func (p *Projects) Cards(estado string) ([]render.Card, error) {
	items, err := p.List(estado)
	if err != nil {
		return nil, err
	}
	section := p.Section()
	section.Items = items
	return p.cards.Cards(section), nil
}

// CardBuilder exposes the card projection for section renderers.
func (p *Projects) CardBuilder() *render.CardBuilder {
	return p.cards
}

// Item looks a loaded project up by id.
func (p *Projects) Item(id model.ID) (model.Item, error) {
	item, _, ok := p.Section().Find(id)
	if !ok {
		return nil, fmt.Errorf("workspace: %s %s: %w", p.kind, id, ErrNotFound)
	}
	return item, nil
}

// Form builds the creation form when id is zero and the edit form otherwise.
func (p *Projects) Form(id model.ID) (form.Form, error) {
	if id.IsZero() {
		return p.forms.Build(p.kind, nil)
	}
	item, err := p.Item(id)
	if err != nil {
		return form.Form{}, err
	}
	return p.forms.Build(p.kind, &item)
}

// Create submits a new project.
func (p *Projects) Create(ctx context.Context, values map[string]any) (model.Item, error) {
	return p.mutations.Create(ctx, p.kind, values)
}

// Update submits changes to a project.
func (p *Projects) Update(ctx context.Context, id model.ID, values map[string]any) (model.Item, error) {
	return p.mutations.Update(ctx, p.kind, id, values)
}

// Delete removes a project.
func (p *Projects) Delete(ctx context.Context, id model.ID) error {
	return p.mutations.Delete(ctx, p.kind, id)
}
