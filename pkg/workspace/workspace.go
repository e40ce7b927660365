// Package workspace assembles one project session: the Section store, the
// loader, the mutation orchestrator, the form builder and the export
// projector, all bound to a single transport. A Workspace is built when a
// session starts and discarded when it ends.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/contract"
	"github.com/goliatone/go-artefacts/pkg/export"
	"github.com/goliatone/go-artefacts/pkg/form"
	"github.com/goliatone/go-artefacts/pkg/loader"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/mutation"
	"github.com/goliatone/go-artefacts/pkg/relation"
	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/renderers/document"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/store"
	"github.com/goliatone/go-artefacts/pkg/transport"
)

// ErrNotFound is returned when an id is not present in its loaded Section.
var ErrNotFound = errors.New("workspace: item not found")

// Session identifies the backend and project of a workspace.
type Session struct {
	Project string
	BaseURL string
	Token   string
	Offline bool
	Locale  string
}

// Export is a rendered document ready to be written or served.
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Workspace is the single owner of a session's state.
type Workspace struct {
	session   Session
	registry  *schema.Registry
	transport transport.Transport
	store     *store.Store
	loader    *loader.Loader
	mutations *mutation.Orchestrator
	forms     *form.Builder
	projector *export.Projector
	cards     *render.CardBuilder
	documents []render.DocumentRenderer
	exporters *render.Registry
	renderers []render.SectionRenderer
	contract  *contract.Contract
	header    export.Project

	themeName      string
	themeVariant   string
	location       *time.Location
	now            func() time.Time
	logger         zerolog.Logger
	onUnauthorized func()
}

// Open assembles a workspace for session. Nothing is fetched until Start.
func Open(session Session, options ...Option) (*Workspace, error) {
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
	if w.session.Project == "" {
		return nil, fmt.Errorf("workspace: project id is required")
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

	var decls []store.Declaration
	for _, kind := range w.registry.Kinds() {
		decls = append(decls, store.Declaration{Kind: kind, IDField: w.registry.Describe(kind).IDField})
	}
	w.store = store.New(decls...)

	w.loader = loader.New(w.registry, w.store, w.transport, w.session.Project,
		loader.WithRenderer(render.Multi(w.renderers)),
		loader.WithLogger(w.logger),
	)

	mutationOpts := []mutation.Option{mutation.WithLogger(w.logger)}
	formOpts := []form.BuilderOption{form.WithLocation(w.location)}
	if w.contract != nil {
		for _, kind := range w.contract.Kinds() {
			required, err := w.contract.Required(kind)
			if err != nil {
				continue
			}
			mutationOpts = append(mutationOpts, mutation.WithRequired(kind, required...))
			formOpts = append(formOpts, form.WithRequired(kind, required...))
		}
	}
	w.mutations = mutation.New(w.registry, w.store, w.transport, w.loader, mutationOpts...)
	w.forms = form.NewBuilder(w.registry, w.store, formOpts...)
	w.projector = export.NewProjector(w.registry, w.store,
		export.WithLocale(w.session.Locale),
		export.WithLocation(w.location),
	)
	w.cards = render.NewCardBuilder(w.registry, relation.New(w.registry, w.store), w.projector.Dates())

	styled, err := document.NewStyled(document.WithTheme(w.themeName, w.themeVariant))
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	documents := append([]render.DocumentRenderer{document.NewPaginated(), styled}, w.documents...)
	if w.exporters, err = render.NewRegistry(documents...); err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}

	w.header = export.Project{ID: w.session.Project, Name: w.session.Project}
	return w, nil
}

func (w *Workspace) newTransport() (transport.Transport, error) {
	if w.session.Offline {
		demo, err := transport.Demo(w.registry, w.now())
		if err != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
		return demo, nil
	}
	options := []transport.Option{transport.WithLogger(w.logger)}
	if w.session.Token != "" {
		options = append(options, transport.WithToken(w.session.Token))
	}
	if w.onUnauthorized != nil {
		options = append(options, transport.WithOnUnauthorized(w.onUnauthorized))
	}
	tr, err := transport.NewHTTP(w.session.BaseURL, options...)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	return tr, nil
}

// Start fetches the project header and bootstraps every Section. A failed
// header fetch is logged and the project id stands in for its name.
func (w *Workspace) Start(ctx context.Context) error {
	if err := w.RefreshProject(ctx); err != nil {
		w.logger.Warn().Err(err).Str("project", w.session.Project).Msg("project header unavailable")
	}
	if err := w.loader.Bootstrap(ctx); err != nil {
		return fmt.Errorf("workspace: bootstrap: %w", err)
	}
	return nil
}

// RefreshProject reloads the project header used by exports.
func (w *Workspace) RefreshProject(ctx context.Context) error {
	target, err := w.registry.ProjectTarget(w.session.Project)
	if err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	payload, err := w.transport.Do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("workspace: project header: %w", err)
	}
	item, err := model.DecodeItem(payload)
	if err != nil {
		return fmt.Errorf("workspace: project header: %w", err)
	}
	header := export.ProjectFromItem(item, w.registry.Project().TitleField)
	if header.ID == "" {
		header.ID = w.session.Project
	}
	if header.Name == "" {
		header.Name = w.session.Project
	}
	w.header = header
	return nil
}

// Registry returns the schema registry in use.
func (w *Workspace) Registry() *schema.Registry {
	return w.registry
}

// Transport returns the transport every request of the session goes
// through.
func (w *Workspace) Transport() transport.Transport {
	return w.transport
}

// Session returns the normalised session settings.
func (w *Workspace) Session() Session {
	return w.session
}

// Project returns the project header.
func (w *Workspace) Project() export.Project {
	return w.header
}

// Kinds lists the kinds in load order.
func (w *Workspace) Kinds() []model.Kind {
	return w.registry.LoadOrder()
}

// Section returns a copy of the Section of kind.
func (w *Workspace) Section(kind model.Kind) (model.Section, error) {
	section, ok := w.store.Section(kind)
	if !ok {
		return model.Section{}, fmt.Errorf("workspace: %q: %w", kind, schema.ErrUnknownKind)
	}
	return section, nil
}

// Sections returns a copy of every Section.
func (w *Workspace) Sections() []model.Section {
	return w.store.Sections()
}

// Cards projects the Section of kind into list cards.
func (w *Workspace) Cards(kind model.Kind) ([]render.Card, error) {
	section, err := w.Section(kind)
	if err != nil {
		return nil, err
	}
	return w.cards.Cards(section), nil
}

// CardBuilder exposes the card projection for section renderers.
func (w *Workspace) CardBuilder() *render.CardBuilder {
	return w.cards
}

// Reload visibly refetches kind.
func (w *Workspace) Reload(ctx context.Context, kind model.Kind) (model.Section, error) {
	return w.loader.Load(ctx, kind, loader.Visible)
}

// Item looks id up in the loaded Section of kind.
func (w *Workspace) Item(kind model.Kind, id model.ID) (model.Item, error) {
	section, err := w.Section(kind)
	if err != nil {
		return nil, err
	}
	item, _, ok := section.Find(id)
	if !ok {
		return nil, fmt.Errorf("workspace: %s %s: %w", kind, id, ErrNotFound)
	}
	return item, nil
}

// Form builds the creation form of kind when id is zero and the edit form of
// the loaded item otherwise.
func (w *Workspace) Form(kind model.Kind, id model.ID) (form.Form, error) {
	if id.IsZero() {
		return w.forms.Build(kind, nil)
	}
	item, err := w.Item(kind, id)
	if err != nil {
		return form.Form{}, err
	}
	return w.forms.Build(kind, &item)
}

// Create submits a new item of kind.
func (w *Workspace) Create(ctx context.Context, kind model.Kind, values map[string]any) (model.Item, error) {
	return w.mutations.Create(ctx, kind, values)
}

// Update submits changes to an existing item.
func (w *Workspace) Update(ctx context.Context, kind model.Kind, id model.ID, values map[string]any) (model.Item, error) {
	return w.mutations.Update(ctx, kind, id, values)
}

// Delete removes an item.
func (w *Workspace) Delete(ctx context.Context, kind model.Kind, id model.ID) error {
	return w.mutations.Delete(ctx, kind, id)
}

// Required returns the required field names enforced for kind.
func (w *Workspace) Required(kind model.Kind) []string {
	return w.mutations.Required(kind)
}

// Formats lists the registered document formats.
func (w *Workspace) Formats() []string {
	return w.exporters.List()
}

// Export renders every non-empty Section with the named document renderer.
func (w *Workspace) Export(ctx context.Context, format string) (Export, error) {
	renderer, err := w.exporters.Get(format)
	if err != nil {
		return Export{}, fmt.Errorf("workspace: export: %w", err)
	}
	doc := render.Document{
		Project:     w.header,
		Tables:      w.projector.ProjectAll(),
		GeneratedAt: w.now().In(w.location),
	}
	data, err := renderer.Render(ctx, doc)
	if err != nil {
		return Export{}, fmt.Errorf("workspace: export %s: %w", format, err)
	}
	return Export{
		FileName:    export.FileName(w.header.Name, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}
