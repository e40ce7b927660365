package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-artefacts/pkg/export"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/relation"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

type stubDocument struct{ name string }

func (s stubDocument) Name() string        { return s.name }
func (s stubDocument) Extension() string   { return "txt" }
func (s stubDocument) ContentType() string { return "text/plain" }
func (s stubDocument) Render(context.Context, Document) ([]byte, error) {
	return []byte(s.name), nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg, err := NewRegistry(stubDocument{name: "styled"}, stubDocument{name: "paginated"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if diff := cmp.Diff([]string{"paginated", "styled"}, reg.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if err := reg.Register(stubDocument{name: "styled"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := reg.Register(stubDocument{name: " "}); err == nil {
		t.Fatalf("expected empty name error")
	}
	if _, err := reg.Get("pdf"); !errors.Is(err, ErrUnknownRenderer) {
		t.Fatalf("expected ErrUnknownRenderer, got %v", err)
	}
	if !reg.Has("paginated") {
		t.Fatalf("expected paginated")
	}
}

func TestRecorderAndMulti(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	fan := Multi{first, nil, second}
	fan.SectionLoaded("actores", model.Section{Kind: "actores"})
	fan.SectionFailed("requisitos", errors.New("boom"))

	want := []string{"loaded:actores", "failed:requisitos"}
	for _, rec := range []*Recorder{first, second} {
		if diff := cmp.Diff(want, rec.Trace()); diff != "" {
			t.Fatalf("trace mismatch (-want +got):\n%s", diff)
		}
	}
	first.Reset()
	if len(first.Events()) != 0 {
		t.Fatalf("reset should clear events")
	}
	var _ SectionRenderer = Nop{}
}

func TestCardsResolveRelationsAndDates(t *testing.T) {
	reg := schema.Default()
	snap := relation.Snapshot{
		"requisitos": {Kind: "requisitos", IDField: "id", State: model.StateLoaded, Items: []model.Item{
			{"id": 1, "nombre": "Login", "descripcion": "Acceso", "tipo": "FUNCIONAL", "estado": nil},
		}},
		"escenarios": {Kind: "escenarios", IDField: "id", State: model.StateLoaded, Items: []model.Item{
			{"id": 7, "nombre": "", "caso_uso_id": 999, "descripcion": "d", "tipo": "NORMAL", "resultado_esperado": "ok"},
		}},
	}
	builder := NewCardBuilder(reg, relation.New(reg, snap), export.NewDateFormatter("es-ES", time.UTC))

	cards := builder.Cards(snap["requisitos"])
	want := []Card{{
		ID:    "1",
		Title: "Login",
		Lines: []CardLine{
			{Field: "descripcion", Label: "Descripcion", Value: "Acceso"},
			{Field: "tipo", Label: "Tipo", Value: "FUNCIONAL"},
			{Field: "estado", Label: "Estado", Value: "N/A"},
		},
	}}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Fatalf("cards mismatch (-want +got):\n%s", diff)
	}

	esc := builder.Cards(snap["escenarios"])
	if esc[0].Title != "Sin Título" {
		t.Fatalf("expected untitled card, got %q", esc[0].Title)
	}
	last := esc[0].Lines[len(esc[0].Lines)-1]
	if last.Label != "Caso de Uso" || last.Value != relation.Placeholder(999) {
		t.Fatalf("unexpected relation line: %+v", last)
	}
	if got := EmptyMessage("Actores"); got != "No hay elementos en Actores." {
		t.Fatalf("unexpected empty message %q", got)
	}
}
