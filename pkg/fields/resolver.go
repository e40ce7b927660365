package fields

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-artefacts/pkg/model"
)

// Spec is the declarative (YAML) form of a descriptor.
type Spec struct {
	Widget   string   `json:"widget" yaml:"widget"`
	Values   []string `json:"values,omitempty" yaml:"values,omitempty"`
	Target   string   `json:"target,omitempty" yaml:"target,omitempty"`
	Nullable bool     `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// Table holds field-name defaults and per-kind overrides.
type Table struct {
	Defaults  map[string]Spec            `json:"defaults" yaml:"defaults"`
	Overrides map[string]map[string]Spec `json:"overrides" yaml:"overrides"`
}

// Resolver maps (field, kind) pairs onto descriptors. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	defaults  map[string]Descriptor
	overrides map[model.Kind]map[string]Descriptor
}

// NewResolver compiles a table. Every spec must name a known widget; enums
// need at least one value and relations need a target.
func NewResolver(table Table) (*Resolver, error) {
	r := &Resolver{
		defaults:  make(map[string]Descriptor, len(table.Defaults)),
		overrides: make(map[model.Kind]map[string]Descriptor, len(table.Overrides)),
	}
	for name, spec := range table.Defaults {
		field := strings.TrimSpace(name)
		if field == "" {
			return nil, fmt.Errorf("fields: default entry with empty field name")
		}
		desc, err := Compile(spec)
		if err != nil {
			return nil, fmt.Errorf("fields: default %q: %w", field, err)
		}
		r.defaults[field] = desc
	}
	for rawKind, entries := range table.Overrides {
		kind := model.Kind(strings.TrimSpace(rawKind))
		if kind == "" {
			return nil, fmt.Errorf("fields: override block with empty kind")
		}
		compiled := make(map[string]Descriptor, len(entries))
		for name, spec := range entries {
			field := strings.TrimSpace(name)
			if field == "" {
				return nil, fmt.Errorf("fields: override for %s with empty field name", kind)
			}
			desc, err := Compile(spec)
			if err != nil {
				return nil, fmt.Errorf("fields: override %s.%s: %w", kind, field, err)
			}
			compiled[field] = desc
		}
		r.overrides[kind] = compiled
	}
	return r, nil
}

// Compile converts a Spec into a Descriptor.
func Compile(spec Spec) (Descriptor, error) {
	switch Widget(strings.ToLower(strings.TrimSpace(spec.Widget))) {
	case WidgetText, "":
		return Text(), nil
	case WidgetNumber:
		return Number(), nil
	case WidgetTextarea:
		return Textarea(), nil
	case WidgetDatetime:
		return Datetime(), nil
	case WidgetEnum:
		values := make([]string, 0, len(spec.Values))
		seen := make(map[string]struct{}, len(spec.Values))
		for _, value := range spec.Values {
			if _, dup := seen[value]; dup {
				return Descriptor{}, fmt.Errorf("enum value %q repeated", value)
			}
			seen[value] = struct{}{}
			values = append(values, value)
		}
		if len(values) == 0 {
			return Descriptor{}, fmt.Errorf("enum without values")
		}
		return Enum(values...), nil
	case WidgetRelation:
		target := strings.TrimSpace(spec.Target)
		if target == "" {
			return Descriptor{}, fmt.Errorf("relation without target")
		}
		return Relation(model.Kind(target), spec.Nullable), nil
	default:
		return Descriptor{}, fmt.Errorf("unknown widget %q", spec.Widget)
	}
}

// Resolve returns the descriptor for field on kind. It never fails: fields
// absent from the table resolve to text.
func (r *Resolver) Resolve(field string, kind model.Kind) Descriptor {
	if r == nil {
		return Text()
	}
	if byKind, ok := r.overrides[kind]; ok {
		if desc, ok := byKind[field]; ok {
			return desc.clone()
		}
	}
	if desc, ok := r.defaults[field]; ok {
		return desc.clone()
	}
	return Text()
}

// Relations lists every relation descriptor reachable from the table, keyed
// by "kind.field" for overrides and "field" for defaults. The schema loader
// uses it to check targets against declared kinds.
func (r *Resolver) Relations() map[string]Descriptor {
	out := make(map[string]Descriptor)
	if r == nil {
		return out
	}
	for field, desc := range r.defaults {
		if desc.IsRelation() {
			out[field] = desc.clone()
		}
	}
	for kind, byField := range r.overrides {
		for field, desc := range byField {
			if desc.IsRelation() {
				out[string(kind)+"."+field] = desc.clone()
			}
		}
	}
	return out
}
