package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/relation"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

func loaded(kind model.Kind, items ...model.Item) model.Section {
	return model.Section{Kind: kind, IDField: "id", Items: items, State: model.StateLoaded}
}

func fixtureSections() relation.Snapshot {
	return relation.Snapshot{
		"requisitos": loaded("requisitos",
			model.Item{"id": json.Number("1"), "nombre": "Login", "descripcion": "Acceso", "tipo": "FUNCIONAL", "estado": "Propuesto", "prioridad": json.Number("1.0"), "requisito_padre_id": nil, "fecha_creacion": "2025-05-01T10:30:00Z"},
			model.Item{"id": json.Number("2"), "nombre": "Logout", "requisito_padre_id": json.Number("1"), "fecha_creacion": "no es fecha"},
		),
		"casos_uso": loaded("casos_uso",
			model.Item{"id": 1, "titulo": "Entrar", "requisito_id": "1"},
		),
		"escenarios": loaded("escenarios",
			model.Item{"id": 1, "nombre": "Feliz", "caso_uso_id": 999},
		),
		"actores": loaded("actores"),
	}
}

func TestProjectUsesFullFieldListAndResolvesRelations(t *testing.T) {
	p := NewProjector(schema.Default(), fixtureSections(), WithLocation(time.UTC))
	table := p.Project("requisitos")

	wantHeaders := []string{"Nombre", "Descripcion", "Tipo", "Estado", "Prioridad", "Fuente", "Observaciones", "Version", "Requisito padre id", "Fecha creacion", "Fecha actualizacion"}
	if diff := cmp.Diff(wantHeaders, table.Headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]string{
		{"Login", "Acceso", "FUNCIONAL", "Propuesto", "1", "", "", "", "", "01/05/2025, 10:30", ""},
		{"Logout", "", "", "", "", "", "", "", "Login", "no es fecha", ""},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if table.Title != "Requisitos" {
		t.Fatalf("unexpected title %q", table.Title)
	}
}

func TestProjectPlaceholderForMissingTarget(t *testing.T) {
	p := NewProjector(schema.Default(), fixtureSections())
	table := p.Project("escenarios")
	if got := table.Rows[0][4]; got != relation.Placeholder(999) {
		t.Fatalf("expected placeholder, got %q", got)
	}
}

func TestProjectAllSkipsEmptySections(t *testing.T) {
	p := NewProjector(schema.Default(), fixtureSections())
	var kinds []model.Kind
	for _, table := range p.ProjectAll() {
		kinds = append(kinds, table.Kind)
	}
	if diff := cmp.Diff([]model.Kind{"requisitos", "casos_uso", "escenarios"}, kinds); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestDateFormatterLocales(t *testing.T) {
	const raw = "2025-05-01T15:04:00Z"
	cases := []struct {
		locale string
		want   string
	}{
		{"es-ES", "01/05/2025, 15:04"},
		{"es", "01/05/2025, 15:04"},
		{"en-US", "05/01/2025, 03:04 PM"},
		{"en", "05/01/2025, 03:04 PM"},
		{"en-GB", "01/05/2025, 15:04"},
		{"en-AU", "01/05/2025, 15:04"},
		{"fr-FR", "2025-05-01 15:04"},
		{"not a locale!", "2025-05-01 15:04"},
		{"", "01/05/2025, 15:04"},
	}
	for _, tc := range cases {
		got := NewDateFormatter(tc.locale, time.UTC).Format(raw)
		if got != tc.want {
			t.Fatalf("%q: want %q got %q", tc.locale, tc.want, got)
		}
	}
	if got := NewDateFormatter("es-ES", time.UTC).Format("2025-05-01T08:00:00.123456"); got != "01/05/2025, 08:00" {
		t.Fatalf("naive timestamp: %q", got)
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"Proyecto de Demostración": "Proyecto_de_Demostración_detalle.pdf",
		"  a \t b  ":               "a_b_detalle.pdf",
		"":                         "proyecto_detalle.pdf",
	}
	for name, want := range cases {
		if got := FileName(name, ".pdf"); got != want {
			t.Fatalf("%q: want %q got %q", name, want, got)
		}
	}
}

func TestProjectFromItem(t *testing.T) {
	got := ProjectFromItem(model.Item{"id": "p1", "nombre": "Demo", "descripcion": "d", "estado": "Activo"}, "")
	want := Project{ID: "p1", Name: "Demo", Description: "d", Status: "Activo"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("project mismatch (-want +got):\n%s", diff)
	}
}
