package relation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

func loaded(kind model.Kind, items ...model.Item) model.Section {
	return model.Section{Kind: kind, IDField: "id", Items: items, State: model.StateLoaded}
}

func TestLabelForResolvesAcrossIDRepresentations(t *testing.T) {
	snap := Snapshot{
		"casos_uso": loaded("casos_uso",
			model.Item{"id": json.Number("1"), "titulo": "Alta de usuario"},
			model.Item{"id": "2", "titulo": "Baja"},
		),
	}
	r := New(schema.Default(), snap)

	cases := map[string]any{
		"json number": json.Number("1"),
		"string":      "1",
		"float":       float64(1),
		"int":         1,
	}
	for name, value := range cases {
		if got := r.LabelFor("casos_uso", value); got != "Alta de usuario" {
			t.Fatalf("%s: got %q", name, got)
		}
	}
	if got := r.LabelFor("casos_uso", 2.0); got != "Baja" {
		t.Fatalf("float id against string id: got %q", got)
	}
}

func TestLabelForDegradesToPlaceholder(t *testing.T) {
	snap := Snapshot{
		"casos_uso": loaded("casos_uso", model.Item{"id": 1, "titulo": "CU"}, model.Item{"id": 4, "titulo": "  "}),
	}
	r := New(schema.Default(), snap)

	got := r.LabelFor("casos_uso", 999)
	if !strings.Contains(got, "999") || got == "" {
		t.Fatalf("placeholder must embed the id, got %q", got)
	}
	if got := r.LabelFor("casos_uso", 4); got != Placeholder(4) {
		t.Fatalf("empty title should degrade, got %q", got)
	}
	if got := r.LabelFor("requisitos", 1); got != Placeholder(1) {
		t.Fatalf("unloaded target should degrade, got %q", got)
	}
	if got := r.LabelFor("nope", 1); got != Placeholder(1) {
		t.Fatalf("unknown kind should degrade, got %q", got)
	}
	if got := r.LabelFor("casos_uso", nil); got != "" {
		t.Fatalf("null reference renders empty, got %q", got)
	}
	if got := New(schema.Default(), nil).LabelFor("casos_uso", 1); got != Placeholder(1) {
		t.Fatalf("nil sections should degrade, got %q", got)
	}
}

func TestLabelUsesFieldDescriptor(t *testing.T) {
	snap := Snapshot{"requisitos": loaded("requisitos", model.Item{"id": 1, "nombre": "Login"})}
	r := New(schema.Default(), snap)

	if got := r.Label("casos_uso", "requisito_id", 1); got != "Login" {
		t.Fatalf("relation label: %q", got)
	}
	if got := r.Label("requisitos", "prioridad", json.Number("2")); got != "2" {
		t.Fatalf("plain value: %q", got)
	}
}

func TestOptionsDisableExcluded(t *testing.T) {
	snap := Snapshot{"requisitos": loaded("requisitos",
		model.Item{"id": 1, "nombre": "Uno"},
		model.Item{"id": 2, "nombre": ""},
		model.Item{"nombre": "sin id"},
	)}
	r := New(schema.Default(), snap)

	want := []Option{
		{ID: "1", Label: "Uno", Disabled: true},
		{ID: "2", Label: "ID: 2"},
	}
	if diff := cmp.Diff(want, r.Options("requisitos", "1")); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if got := r.Options("actores"); got != nil {
		t.Fatalf("missing section yields nil, got %v", got)
	}
}
