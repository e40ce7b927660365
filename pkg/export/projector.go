// Package export flattens Sections into tables whose relation cells carry
// resolved labels and whose dates are locale-formatted. Document renderers
// consume these tables; nothing here produces document bytes.
package export

import (
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-artefacts/pkg/fields"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/relation"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

// Table is the flat projection of one Section.
type Table struct {
	Kind    model.Kind `json:"kind"`
	Title   string     `json:"title"`
	Fields  []string   `json:"fields"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Project is the header of the exported project.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Option customises a Projector.
type Option func(*Projector)

// WithLocale selects the date format locale.
func WithLocale(locale string) Option {
	return func(p *Projector) {
		p.locale = locale
	}
}

// WithLocation sets the zone dates are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(p *Projector) {
		p.location = loc
	}
}

// WithLabeler overrides header generation.
func WithLabeler(labeler func(string) string) Option {
	return func(p *Projector) {
		if labeler != nil {
			p.labeler = labeler
		}
	}
}

// Projector projects Sections read from a Sections source.
type Projector struct {
	registry *schema.Registry
	sections relation.Sections
	labeler  func(string) string
	locale   string
	location *time.Location
	dates    DateFormatter
}

// NewProjector builds a projector over sections.
func NewProjector(registry *schema.Registry, sections relation.Sections, options ...Option) *Projector {
	p := &Projector{
		registry: registry,
		sections: sections,
		labeler:  model.DefaultLabeler,
		locale:   DefaultLocale,
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	p.dates = NewDateFormatter(p.locale, p.location)
	return p
}

// Dates exposes the formatter used for datetime cells.
func (p *Projector) Dates() DateFormatter {
	return p.dates
}

// Project flattens the Section of kind using its full field list.
func (p *Projector) Project(kind model.Kind) Table {
	snapshot := relation.Take(p.sections, p.registry.Kinds()...)
	return p.project(kind, snapshot)
}

// ProjectAll flattens every non-empty Section in registry order against one
// consistent snapshot.
func (p *Projector) ProjectAll() []Table {
	snapshot := relation.Take(p.sections, p.registry.Kinds()...)
	var out []Table
	for _, kind := range p.registry.Kinds() {
		if section, ok := snapshot[kind]; !ok || section.Len() == 0 {
			continue
		}
		out = append(out, p.project(kind, snapshot))
	}
	return out
}

func (p *Projector) project(kind model.Kind, snapshot relation.Snapshot) Table {
	def := p.registry.Describe(kind)
	resolver := relation.New(p.registry, snapshot)

	table := Table{
		Kind:    kind,
		Title:   def.Title,
		Fields:  append([]string(nil), def.Fields...),
		Headers: make([]string, 0, len(def.Fields)),
	}
	for _, name := range def.Fields {
		table.Headers = append(table.Headers, p.labeler(name))
	}

	descriptors := make([]fields.Descriptor, len(def.Fields))
	for idx, name := range def.Fields {
		descriptors[idx] = p.registry.Resolve(name, kind)
	}

	section := snapshot[kind]
	table.Rows = make([][]string, 0, section.Len())
	for _, item := range section.Items {
		row := make([]string, len(def.Fields))
		for idx, name := range def.Fields {
			row[idx] = p.cell(resolver, descriptors[idx], item, name)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func (p *Projector) cell(resolver *relation.Resolver, desc fields.Descriptor, item model.Item, name string) string {
	value, ok := item.Get(name)
	if !ok || value == nil {
		return ""
	}
	switch desc.Widget {
	case fields.WidgetRelation:
		return resolver.LabelFor(desc.Target, value)
	case fields.WidgetDatetime:
		return p.dates.Format(model.FormatValue(value))
	default:
		return model.FormatValue(value)
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FileName builds "<name>_detalle.<ext>" with whitespace runs replaced by
// underscores. A blank name becomes "proyecto".
func FileName(projectName, ext string) string {
	name := whitespaceRun.ReplaceAllString(strings.TrimSpace(projectName), "_")
	if name == "" {
		name = "proyecto"
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return name + "_detalle"
	}
	return name + "_detalle." + ext
}

// ProjectFromItem reads the project header fields returned by the backend.
func ProjectFromItem(item model.Item, titleField string) Project {
	if titleField == "" {
		titleField = "nombre"
	}
	id, _ := item.ID("id")
	return Project{
		ID:          id.String(),
		Name:        item.Text(titleField),
		Description: item.Text("descripcion"),
		Status:      item.Text("estado"),
	}
}
