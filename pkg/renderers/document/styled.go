package document

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/render/template"
	"github.com/goliatone/go-artefacts/pkg/render/template/gotemplate"
)

//go:embed templates/*.tpl
var templateFS embed.FS

const (
	styledTemplate = "styled"
	sanitizeFilter = "artefacts_sanitize"
	wordBOM        = "\ufeff"
)

// Cells come from backend data; markup is stripped and the text escaped.
var cellPolicy = bluemonday.StrictPolicy()

// StyledOption customises the styled renderer.
type StyledOption func(*Styled)

// WithThemeSelector resolves themes through selector.
func WithThemeSelector(selector theme.ThemeSelector) StyledOption {
	return func(s *Styled) {
		if selector != nil {
			s.selector = selector
		}
	}
}

// WithTheme picks the theme and variant used for every document.
func WithTheme(name, variant string) StyledOption {
	return func(s *Styled) {
		s.themeName = name
		s.variant = variant
	}
}

// WithTemplateRenderer replaces the embedded pongo2 engine. The renderer
// must provide a "styled" template and the sanitize filter.
func WithTemplateRenderer(engine template.TemplateRenderer) StyledOption {
	return func(s *Styled) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// Styled renders a Word-compatible HTML document.
type Styled struct {
	engine    template.TemplateRenderer
	selector  theme.ThemeSelector
	themeName string
	variant   string
}

var _ render.DocumentRenderer = (*Styled)(nil)

// NewStyled builds the renderer around the embedded template. The theme is
// resolved eagerly so a bad name fails at construction.
func NewStyled(options ...StyledOption) (*Styled, error) {
	s := &Styled{selector: NewStaticSelector()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if _, err := s.selector.Select(s.themeName, s.variant); err != nil {
		return nil, err
	}
	if s.engine == nil {
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("document: templates: %w", err)
		}
		engine, err := gotemplate.New(
			gotemplate.WithFS(sub),
			gotemplate.WithFilter(sanitizeFilter, sanitizeCell),
		)
		if err != nil {
			return nil, fmt.Errorf("document: styled engine: %w", err)
		}
		s.engine = engine
	}
	return s, nil
}

func (s *Styled) Name() string        { return "styled" }
func (s *Styled) Extension() string   { return "doc" }
func (s *Styled) ContentType() string { return "application/msword" }

// Render executes the styled template for doc.
func (s *Styled) Render(ctx context.Context, doc render.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	selection, err := s.selector.Select(s.themeName, s.variant)
	if err != nil {
		return nil, err
	}
	cfg := rendererConfig(selection)

	data := map[string]any{
		"project": doc.Project,
		"tables":  doc.Tables,
		"theme": map[string]any{
			"name":    cfg.Theme,
			"variant": cfg.Variant,
			"tokens":  cfg.Tokens,
		},
	}
	if !doc.GeneratedAt.IsZero() {
		data["generated"] = doc.GeneratedAt.Format("2006-01-02 15:04")
	}
	out, err := s.engine.RenderTemplate(styledTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("document: styled: %w", err)
	}
	return []byte(wordBOM + out), nil
}

func sanitizeCell(input any, _ any) (any, error) {
	if input == nil {
		return "", nil
	}
	return cellPolicy.Sanitize(fmt.Sprint(input)), nil
}
