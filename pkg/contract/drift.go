package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

// EnumDrift lists enum values present on one side only.
type EnumDrift struct {
	OnlyRegistry []string `json:"onlyRegistry,omitempty"`
	OnlyBackend  []string `json:"onlyBackend,omitempty"`
}

// Drift describes how one kind's registry entry differs from the backend.
type Drift struct {
	Kind model.Kind `json:"kind"`
	// Unmatched is set when no create operation was found for the kind.
	Unmatched bool `json:"unmatched,omitempty"`
	// MissingInBackend lists registry fields the backend schema lacks.
	MissingInBackend []string `json:"missingInBackend,omitempty"`
	// MissingInRegistry lists backend required fields the registry lacks.
	MissingInRegistry []string `json:"missingInRegistry,omitempty"`
	// RequiredMismatch lists fields whose required flag differs.
	RequiredMismatch []string             `json:"requiredMismatch,omitempty"`
	Enums            map[string]EnumDrift `json:"enums,omitempty"`
}

// Empty reports whether the kind matches the backend.
func (d Drift) Empty() bool {
	return !d.Unmatched && len(d.MissingInBackend) == 0 && len(d.MissingInRegistry) == 0 &&
		len(d.RequiredMismatch) == 0 && len(d.Enums) == 0
}

func (d Drift) String() string {
	if d.Unmatched {
		return fmt.Sprintf("%s: no create operation", d.Kind)
	}
	var parts []string
	if len(d.MissingInBackend) > 0 {
		parts = append(parts, "missing in backend: "+strings.Join(d.MissingInBackend, ", "))
	}
	if len(d.MissingInRegistry) > 0 {
		parts = append(parts, "missing in registry: "+strings.Join(d.MissingInRegistry, ", "))
	}
	if len(d.RequiredMismatch) > 0 {
		parts = append(parts, "required differs: "+strings.Join(d.RequiredMismatch, ", "))
	}
	names := make([]string, 0, len(d.Enums))
	for name := range d.Enums {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e := d.Enums[name]
		parts = append(parts, fmt.Sprintf("enum %s: registry only [%s], backend only [%s]", name, strings.Join(e.OnlyRegistry, ", "), strings.Join(e.OnlyBackend, ", ")))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: in sync", d.Kind)
	}
	return fmt.Sprintf("%s: %s", d.Kind, strings.Join(parts, "; "))
}

// Drift compares every registry kind with the contract and returns the
// kinds that differ, in registry order.
func (c *Contract) Drift(registry *schema.Registry) []Drift {
	var out []Drift
	for _, kind := range registry.Kinds() {
		d := c.driftFor(registry, registry.Describe(kind))
		if !d.Empty() {
			out = append(out, d)
		}
	}
	return out
}

func (c *Contract) driftFor(registry *schema.Registry, def schema.EntityKind) Drift {
	d := Drift{Kind: def.Key}
	op, ok := c.Operation(def.Key)
	if !ok {
		d.Unmatched = true
		return d
	}

	backendProps := toSet(op.Properties)
	backendRequired := toSet(op.Required)
	for _, name := range def.Fields {
		if _, managed := managedFields[name]; managed {
			continue
		}
		if _, ok := backendProps[name]; !ok {
			d.MissingInBackend = append(d.MissingInBackend, name)
			continue
		}
		_, backendReq := backendRequired[name]
		if backendReq != def.IsRequired(name) {
			d.RequiredMismatch = append(d.RequiredMismatch, name)
		}
		if values, ok := op.Enums[name]; ok {
			desc := registry.Resolve(name, def.Key)
			if e := diffEnum(desc.Values, values); len(e.OnlyBackend) > 0 || len(e.OnlyRegistry) > 0 {
				if d.Enums == nil {
					d.Enums = make(map[string]EnumDrift)
				}
				d.Enums[name] = e
			}
		}
	}
	for _, name := range op.Required {
		if _, managed := managedFields[name]; managed {
			continue
		}
		if !def.HasField(name) {
			d.MissingInRegistry = append(d.MissingInRegistry, name)
		}
	}
	return d
}

func diffEnum(registry, backend []string) EnumDrift {
	var out EnumDrift
	regSet, backSet := toSet(registry), toSet(backend)
	for _, value := range registry {
		if _, ok := backSet[value]; !ok {
			out.OnlyRegistry = append(out.OnlyRegistry, value)
		}
	}
	for _, value := range backend {
		if _, ok := regSet[value]; !ok {
			out.OnlyBackend = append(out.OnlyBackend, value)
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		out[value] = struct{}{}
	}
	return out
}
