package workspace

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/contract"
	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/transport"
)

// Option customises a Workspace.
type Option func(*Workspace)

// WithRegistry replaces the embedded registry.
func WithRegistry(registry *schema.Registry) Option {
	return func(w *Workspace) {
		if registry != nil {
			w.registry = registry
		}
	}
}

// WithTransport bypasses the transport chosen from the Session.
func WithTransport(tr transport.Transport) Option {
	return func(w *Workspace) {
		if tr != nil {
			w.transport = tr
		}
	}
}

// WithRenderer adds a section renderer. Renderers are notified in the order
// they were added.
func WithRenderer(renderer render.SectionRenderer) Option {
	return func(w *Workspace) {
		if renderer != nil {
			w.renderers = append(w.renderers, renderer)
		}
	}
}

// WithDocumentRenderer registers an extra document renderer next to the
// built-in paginated and styled ones.
func WithDocumentRenderer(renderer render.DocumentRenderer) Option {
	return func(w *Workspace) {
		if renderer != nil {
			w.documents = append(w.documents, renderer)
		}
	}
}

// WithTheme selects the styled document theme and variant.
func WithTheme(name, variant string) Option {
	return func(w *Workspace) {
		w.themeName = name
		w.themeVariant = variant
	}
}

// WithContract applies the backend's required field lists to validation and
// forms.
func WithContract(c *contract.Contract) Option {
	return func(w *Workspace) {
		w.contract = c
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithClock overrides the time source used for export stamps and demo data.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLocation sets the zone dates are displayed in.
func WithLocation(loc *time.Location) Option {
	return func(w *Workspace) {
		if loc != nil {
			w.location = loc
		}
	}
}

// WithOnUnauthorized installs the hook run when the backend rejects the
// configured credential.
func WithOnUnauthorized(fn func()) Option {
	return func(w *Workspace) {
		w.onUnauthorized = fn
	}
}
