package fields

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-artefacts/pkg/model"
)

// Widget is the descriptor tag.
type Widget string

const (
	WidgetText     Widget = "text"
	WidgetNumber   Widget = "number"
	WidgetTextarea Widget = "textarea"
	WidgetDatetime Widget = "datetime"
	WidgetEnum     Widget = "enum"
	WidgetRelation Widget = "relation"
)

// Descriptor describes the input widget for one field of one kind. Values is
// only set for enums; Target and Nullable only for relations.
type Descriptor struct {
	Widget   Widget     `json:"widget"`
	Values   []string   `json:"values,omitempty"`
	Target   model.Kind `json:"target,omitempty"`
	Nullable bool       `json:"nullable,omitempty"`
}

// Text returns the fallback descriptor.
func Text() Descriptor { return Descriptor{Widget: WidgetText} }

// Number returns a numeric descriptor.
func Number() Descriptor { return Descriptor{Widget: WidgetNumber} }

// Textarea returns a multi-line text descriptor.
func Textarea() Descriptor { return Descriptor{Widget: WidgetTextarea} }

// Datetime returns a date-time descriptor.
func Datetime() Descriptor { return Descriptor{Widget: WidgetDatetime} }

// Enum returns an enum descriptor over the ordered value set.
func Enum(values ...string) Descriptor {
	return Descriptor{Widget: WidgetEnum, Values: append([]string(nil), values...)}
}

// Relation returns a relation descriptor pointing at target.
func Relation(target model.Kind, nullable bool) Descriptor {
	return Descriptor{Widget: WidgetRelation, Target: target, Nullable: nullable}
}

// IsEnum reports whether d is an enum.
func (d Descriptor) IsEnum() bool { return d.Widget == WidgetEnum }

// IsRelation reports whether d is a relation.
func (d Descriptor) IsRelation() bool { return d.Widget == WidgetRelation }

// IsNumeric reports whether submissions should be coerced to numbers.
func (d Descriptor) IsNumeric() bool { return d.Widget == WidgetNumber }

// Allows reports whether value belongs to the enum set. Non-enum descriptors
// allow everything.
func (d Descriptor) Allows(value string) bool {
	if !d.IsEnum() {
		return true
	}
	for _, candidate := range d.Values {
		if candidate == value {
			return true
		}
	}
	return false
}

// Equal compares two descriptors including enum order.
func (d Descriptor) Equal(other Descriptor) bool {
	if d.Widget != other.Widget || d.Target != other.Target || d.Nullable != other.Nullable {
		return false
	}
	if len(d.Values) != len(other.Values) {
		return false
	}
	for i := range d.Values {
		if d.Values[i] != other.Values[i] {
			return false
		}
	}
	return true
}

func (d Descriptor) String() string {
	switch d.Widget {
	case WidgetEnum:
		return fmt.Sprintf("enum(%s)", strings.Join(d.Values, ", "))
	case WidgetRelation:
		if d.Nullable {
			return fmt.Sprintf("relation(%s, nullable)", d.Target)
		}
		return fmt.Sprintf("relation(%s)", d.Target)
	default:
		return string(d.Widget)
	}
}

func (d Descriptor) clone() Descriptor {
	out := d
	if d.Values != nil {
		out.Values = append([]string(nil), d.Values...)
	}
	return out
}

// IsRelationSuffix reports whether name follows the foreign-key naming
// convention. Submissions coerce these to numbers or null.
func IsRelationSuffix(name string) bool {
	return strings.HasSuffix(name, "_id")
}

// Validate reports an enum value outside the declared set. Blank values pass;
// required-field checks happen elsewhere.
func (d Descriptor) Validate(value any) error {
	if !d.IsEnum() || model.IsBlank(value) {
		return nil
	}
	text := model.FormatValue(value)
	if d.Allows(text) {
		return nil
	}
	return fmt.Errorf("fields: %q is not one of %s", text, strings.Join(d.Values, ", "))
}
