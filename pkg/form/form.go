package form

import (
	"github.com/goliatone/go-artefacts/pkg/fields"
	"github.com/goliatone/go-artefacts/pkg/model"
)

// Mode distinguishes blank creation forms from edit forms.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// NoneLabel captions the empty choice of a nullable relation.
const NoneLabel = "Ninguno"

// Option is one choice of an enum or relation field. Value is "" for the
// empty choice of a nullable relation.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Field is one input of a form.
type Field struct {
	Name       string            `json:"name"`
	Label      string            `json:"label"`
	Descriptor fields.Descriptor `json:"-"`
	Widget     fields.Widget     `json:"widget"`
	Value      any               `json:"value"`
	ReadOnly   bool              `json:"readOnly,omitempty"`
	Required   bool              `json:"required,omitempty"`
	Options    []Option          `json:"options,omitempty"`
}

// Selected returns the selected option, if any.
func (f Field) Selected() (Option, bool) {
	for _, opt := range f.Options {
		if opt.Selected {
			return opt, true
		}
	}
	return Option{}, false
}

// Form is the editable field set for one kind.
type Form struct {
	Kind   model.Kind `json:"kind"`
	Title  string     `json:"title"`
	Mode   Mode       `json:"mode"`
	ID     model.ID   `json:"id,omitempty"`
	Fields []Field    `json:"fields"`
}

// Field looks up a field by name.
func (f Form) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Values returns the current value of every editable field, ready to be
// submitted again. Empty relation choices become nil.
func (f Form) Values() map[string]any {
	out := make(map[string]any, len(f.Fields))
	for _, field := range f.Fields {
		if field.ReadOnly {
			continue
		}
		value := field.Value
		if field.Descriptor.IsRelation() && model.IsBlank(value) {
			value = nil
		}
		out[field.Name] = value
	}
	return out
}

// Set replaces the value of name and keeps option selection in step. It
// reports false for unknown or read-only fields.
func (f *Form) Set(name string, value any) bool {
	for idx := range f.Fields {
		field := &f.Fields[idx]
		if field.Name != name || field.ReadOnly {
			continue
		}
		field.Value = value
		if len(field.Options) > 0 {
			selectOption(field.Options, value)
		}
		return true
	}
	return false
}

func selectOption(options []Option, value any) {
	current := ""
	if id, ok := model.NormalizeID(value); ok {
		current = id.String()
	}
	for idx := range options {
		options[idx].Selected = options[idx].Value == current
	}
}
