package schema

import (
	"errors"

	"github.com/goliatone/go-artefacts/pkg/model"
)

// ErrUnknownKind reports a kind the registry does not declare.
var ErrUnknownKind = errors.New("schema: unknown kind")

// ProjectPlaceholder is substituted with the active project id in locators.
const ProjectPlaceholder = "{project}"

// EntityKind is the immutable description of one kind of artefact.
type EntityKind struct {
	Key           model.Kind
	Title         string
	Fields        []string
	DisplayFields []string
	IDField       string
	ParentField   string
	Locator       string
	ProjectScoped bool
	Required      []string
	Prerequisites []model.Kind
	Dependents    []model.Kind
	// Labels overrides the generated label of individual fields.
	Labels map[string]string
}

// HasField reports whether name is one of the declared fields.
func (k EntityKind) HasField(name string) bool {
	return contains(k.Fields, name)
}

// IsRequired reports whether name must be supplied on creation.
func (k EntityKind) IsRequired(name string) bool {
	return contains(k.Required, name)
}

// TitleField is the first display field, used as the item's label.
func (k EntityKind) TitleField() string {
	if len(k.DisplayFields) > 0 {
		return k.DisplayFields[0]
	}
	if len(k.Fields) > 0 {
		return k.Fields[0]
	}
	return k.IDField
}

// FieldLabel returns the declared label for name or the sentence-case form
// of the field name.
func (k EntityKind) FieldLabel(name string) string {
	if label, ok := k.Labels[name]; ok && label != "" {
		return label
	}
	return model.DefaultLabeler(name)
}

func (k EntityKind) clone() EntityKind {
	out := k
	out.Fields = append([]string(nil), k.Fields...)
	out.DisplayFields = append([]string(nil), k.DisplayFields...)
	out.Required = append([]string(nil), k.Required...)
	out.Prerequisites = append([]model.Kind(nil), k.Prerequisites...)
	out.Dependents = append([]model.Kind(nil), k.Dependents...)
	if k.Labels != nil {
		out.Labels = make(map[string]string, len(k.Labels))
		for name, label := range k.Labels {
			out.Labels[name] = label
		}
	}
	return out
}

func contains(values []string, name string) bool {
	for _, value := range values {
		if value == name {
			return true
		}
	}
	return false
}
