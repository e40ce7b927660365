package form

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-artefacts/pkg/fields"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/relation"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

func requisitos() relation.Snapshot {
	return relation.Snapshot{
		"requisitos": model.Section{
			Kind:    "requisitos",
			IDField: "id",
			State:   model.StateLoaded,
			Items: []model.Item{
				{"id": json.Number("1"), "nombre": "Login", "tipo": "FUNCIONAL", "requisito_padre_id": nil},
				{"id": json.Number("2"), "nombre": "Logout", "tipo": "FUNCIONAL", "requisito_padre_id": json.Number("1")},
			},
		},
	}
}

func names(form Form) []string {
	out := make([]string, len(form.Fields))
	for idx, field := range form.Fields {
		out[idx] = field.Name
	}
	return out
}

func TestCreateFormOmitsAuditFields(t *testing.T) {
	b := NewBuilder(schema.Default(), requisitos())
	form, err := b.Build("requisitos", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []string{"nombre", "descripcion", "tipo", "estado", "prioridad", "fuente", "observaciones", "requisito_padre_id"}
	if diff := cmp.Diff(want, names(form)); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if form.Mode != ModeCreate || !form.ID.IsZero() {
		t.Fatalf("expected create mode, got %s %q", form.Mode, form.ID)
	}

	tipo, _ := form.Field("tipo")
	if tipo.Value != "FUNCIONAL" || !tipo.Required {
		t.Fatalf("enum must default to first value and be required: %+v", tipo)
	}
	parent, _ := form.Field("requisito_padre_id")
	if parent.Value != nil {
		t.Fatalf("relation must default to no selection, got %v", parent.Value)
	}
	if opt, ok := parent.Selected(); !ok || opt.Value != "" || opt.Label != NoneLabel {
		t.Fatalf("nullable relation must select the empty choice, got %+v", opt)
	}
}

func TestEditFormParentScenario(t *testing.T) {
	snap := requisitos()
	b := NewBuilder(schema.Default(), snap)
	items := snap["requisitos"].Items

	first, err := b.Build("requisitos", &items[0])
	if err != nil {
		t.Fatalf("build id=1: %v", err)
	}
	parent, _ := first.Field("requisito_padre_id")
	for _, opt := range parent.Options {
		if opt.Value == "1" && !opt.Disabled {
			t.Fatalf("own id must not be selectable: %+v", parent.Options)
		}
	}

	second, err := b.Build("requisitos", &items[1])
	if err != nil {
		t.Fatalf("build id=2: %v", err)
	}
	parent, _ = second.Field("requisito_padre_id")
	opt, ok := parent.Selected()
	if !ok || opt.Value != "1" || opt.Label != "Login" {
		t.Fatalf("expected parent 1 selected, got %+v", parent.Options)
	}
	if parent.Value != "1" {
		t.Fatalf("expected value 1, got %v", parent.Value)
	}
}

func TestSelfParentDisabledRegardlessOfSize(t *testing.T) {
	snap := requisitos()
	section := snap["requisitos"]
	for i := 3; i <= 20; i++ {
		section.Items = append(section.Items, model.Item{"id": i, "nombre": "R"})
	}
	snap["requisitos"] = section
	b := NewBuilder(schema.Default(), snap)

	item := section.Items[7]
	form, err := b.Build("requisitos", &item)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	parent, _ := form.Field("requisito_padre_id")
	disabled := 0
	for _, opt := range parent.Options {
		if opt.Disabled {
			disabled++
			if opt.Value != form.ID.String() {
				t.Fatalf("unexpected disabled option %+v", opt)
			}
		}
	}
	if disabled != 1 {
		t.Fatalf("expected exactly one disabled option, got %d", disabled)
	}
}

func TestEditFormShowsAuditFieldsReadOnly(t *testing.T) {
	b := NewBuilder(schema.Default(), requisitos(), WithLocation(time.UTC))
	item := model.Item{
		"id":                  1,
		"nombre":              "Login",
		"version":             json.Number("2"),
		"proyecto_id":         "p1",
		"fecha_creacion":      "2024-03-01T10:30:00Z",
		"fecha_actualizacion": "not a date",
	}
	form, err := b.Build("requisitos", &item)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := form.Field("proyecto_id"); ok {
		t.Fatalf("proyecto_id must never be a form field")
	}

	created, _ := form.Field("fecha_creacion")
	if !created.ReadOnly || created.Value != "2024-03-01T10:30" {
		t.Fatalf("unexpected fecha_creacion %+v", created)
	}
	updated, _ := form.Field("fecha_actualizacion")
	if updated.Value != "not a date" {
		t.Fatalf("unparseable dates pass through, got %v", updated.Value)
	}
	version, _ := form.Field("version")
	if version.ReadOnly || version.Value != "2" || version.Widget != fields.WidgetNumber {
		t.Fatalf("version must be editable: %+v", version)
	}

	values := form.Values()
	if _, ok := values["fecha_creacion"]; ok {
		t.Fatalf("read-only fields are not submitted: %v", values)
	}
	if values["requisito_padre_id"] != nil {
		t.Fatalf("empty relation must submit nil, got %v", values["requisito_padre_id"])
	}
}

func TestEditFormRequiresID(t *testing.T) {
	b := NewBuilder(schema.Default(), nil)
	item := model.Item{"nombre": "sin id"}
	if _, err := b.Build("actores", &item); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if _, err := b.Build("desconocido", nil); !errors.Is(err, schema.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestSetKeepsSelectionInStep(t *testing.T) {
	b := NewBuilder(schema.Default(), nil)
	form, err := b.Build("actores", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !form.Set("tipo", "Dispositivo") {
		t.Fatalf("set tipo failed")
	}
	tipo, _ := form.Field("tipo")
	if opt, _ := tipo.Selected(); opt.Value != "Dispositivo" {
		t.Fatalf("selection not updated: %+v", tipo.Options)
	}
	if form.Set("desconocido", 1) {
		t.Fatalf("unknown field must not be set")
	}
}

func TestWithRequiredOverridesFlags(t *testing.T) {
	b := NewBuilder(schema.Default(), nil, WithRequired("actores", "descripcion"))
	form, err := b.Build("actores", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var required []string
	for _, field := range form.Fields {
		if field.Required {
			required = append(required, field.Name)
		}
	}
	if diff := cmp.Diff([]string{"descripcion"}, required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
}
