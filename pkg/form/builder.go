package form

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-artefacts/pkg/export"
	"github.com/goliatone/go-artefacts/pkg/fields"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/relation"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

// InputLayout is the value format of datetime fields in edit forms.
const InputLayout = "2006-01-02T15:04"

// Fields that exist only once an item has been stored.
var auditFields = map[string]struct{}{
	"fecha_creacion":      {},
	"fecha_actualizacion": {},
	"version":             {},
}

// Fields owned by the backend that never reach a form.
var hiddenFields = map[string]struct{}{
	"proyecto_id": {},
}

// ErrMissingID is returned when an edit form is requested for an item
// without an identifier.
var ErrMissingID = errors.New("form: item has no identifier")

// BuilderOption customises the builder.
type BuilderOption func(*Builder)

// WithLocation sets the zone datetime values are shown in.
func WithLocation(loc *time.Location) BuilderOption {
	return func(b *Builder) {
		if loc != nil {
			b.loc = loc
		}
	}
}

// WithRequired replaces the required field list of kind.
func WithRequired(kind model.Kind, names ...string) BuilderOption {
	return func(b *Builder) {
		if b.required == nil {
			b.required = make(map[model.Kind][]string)
		}
		b.required[kind] = append([]string(nil), names...)
	}
}

// Builder produces forms from registry metadata and loaded Sections.
type Builder struct {
	registry  *schema.Registry
	relations *relation.Resolver
	required  map[model.Kind][]string
	loc       *time.Location
}

// NewBuilder creates a Builder reading relation options from sections.
func NewBuilder(registry *schema.Registry, sections relation.Sections, options ...BuilderOption) *Builder {
	b := &Builder{
		registry:  registry,
		relations: relation.New(registry, sections),
		loc:       time.Local,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(b)
	}
	return b
}

// Build returns the creation form for kind when item is nil, and the edit
// form for *item otherwise.
func (b *Builder) Build(kind model.Kind, item *model.Item) (Form, error) {
	def, ok := b.registry.Lookup(kind)
	if !ok {
		return Form{}, fmt.Errorf("form: %q: %w", kind, schema.ErrUnknownKind)
	}

	form := Form{Kind: kind, Title: def.Title, Mode: ModeCreate}
	var current model.Item
	if item != nil {
		id, ok := item.ID(def.IDField)
		if !ok {
			return Form{}, fmt.Errorf("form: %s: %w", kind, ErrMissingID)
		}
		form.Mode = ModeEdit
		form.ID = id
		current = *item
	}

	required := b.requiredSet(def)
	for _, name := range def.Fields {
		if _, hidden := hiddenFields[name]; hidden || name == def.IDField {
			continue
		}
		_, audit := auditFields[name]
		if audit && form.Mode == ModeCreate {
			continue
		}

		desc := b.registry.Resolve(name, kind)
		field := Field{
			Name:       name,
			Label:      def.FieldLabel(name),
			Descriptor: desc,
			Widget:     desc.Widget,
			Required:   required[name],
			ReadOnly:   audit && desc.Widget == fields.WidgetDatetime,
		}
		raw, present := current.Get(name)

		switch {
		case desc.IsEnum():
			field.Options, field.Value = enumOptions(desc, raw, present)
		case desc.IsRelation():
			var exclude []model.ID
			if desc.Target == kind && form.Mode == ModeEdit {
				exclude = append(exclude, form.ID)
			}
			field.Options, field.Value = b.relationOptions(desc, raw, exclude)
		case desc.Widget == fields.WidgetDatetime:
			field.Value = b.formatDatetime(raw)
		case present && raw != nil:
			field.Value = model.FormatValue(raw)
		default:
			field.Value = ""
		}
		form.Fields = append(form.Fields, field)
	}
	return form, nil
}

func (b *Builder) requiredSet(def schema.EntityKind) map[string]bool {
	names := def.Required
	if override, ok := b.required[def.Key]; ok {
		names = override
	}
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = true
	}
	return out
}

// enumOptions selects the stored value, or the first value on creation.
func enumOptions(desc fields.Descriptor, raw any, present bool) ([]Option, any) {
	value := ""
	if present && !model.IsBlank(raw) {
		value = model.FormatValue(raw)
	} else if len(desc.Values) > 0 {
		value = desc.Values[0]
	}
	options := make([]Option, 0, len(desc.Values)+1)
	for _, candidate := range desc.Values {
		options = append(options, Option{Value: candidate, Label: candidate, Selected: candidate == value})
	}
	if value != "" && !desc.Allows(value) {
		options = append(options, Option{Value: value, Label: value, Selected: true})
	}
	return options, value
}

func (b *Builder) relationOptions(desc fields.Descriptor, raw any, exclude []model.ID) ([]Option, any) {
	var value any
	selected := ""
	if id, ok := model.NormalizeID(raw); ok {
		value = id.String()
		selected = id.String()
	}

	candidates := b.relations.Options(desc.Target, exclude...)
	options := make([]Option, 0, len(candidates)+1)
	if desc.Nullable {
		options = append(options, Option{Value: "", Label: NoneLabel, Selected: selected == ""})
	}
	for _, candidate := range candidates {
		options = append(options, Option{
			Value:    candidate.ID.String(),
			Label:    candidate.Label,
			Selected: candidate.ID.String() == selected && !candidate.Disabled,
			Disabled: candidate.Disabled,
		})
	}
	return options, value
}

func (b *Builder) formatDatetime(raw any) string {
	text := model.FormatValue(raw)
	if text == "" {
		return ""
	}
	parsed, ok := export.ParseTimestamp(text, b.loc)
	if !ok {
		return text
	}
	return parsed.In(b.loc).Format(InputLayout)
}
