package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

var fixedNow = time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC)

func newDemo(t *testing.T) *Memory {
	t.Helper()
	mem, err := Demo(schema.Default(), fixedNow)
	if err != nil {
		t.Fatalf("demo: %v", err)
	}
	return mem
}

func TestDemoServesSeededCollections(t *testing.T) {
	mem := newDemo(t)
	ctx := context.Background()

	payload, err := mem.Do(ctx, http.MethodGet, "/projects/dummyProject123/requisitos", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	items, err := model.DecodeItems(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	section := model.Section{IDField: "id", Items: items}
	if diff := cmp.Diff([]model.ID{"1", "2"}, section.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	header, err := mem.Do(ctx, http.MethodGet, "/projects/dummyProject123", nil)
	if err != nil {
		t.Fatalf("project header: %v", err)
	}
	project, _ := model.DecodeItem(header)
	if project.Text("nombre") != "Proyecto de Demostración" {
		t.Fatalf("unexpected project: %v", project)
	}
}

func TestMemoryCreateAssignsIDAndStamps(t *testing.T) {
	mem := newDemo(t)
	ctx := context.Background()

	payload, err := mem.Do(ctx, http.MethodPost, "/projects/dummyProject123/requisitos", map[string]any{
		"id": 99, "nombre": "Nuevo", "descripcion": "d", "tipo": "FUNCIONAL",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	item, _ := model.DecodeItem(payload)
	if id, _ := item.ID("id"); id != "3" {
		t.Fatalf("expected id 3, got %q", id)
	}
	if item.Text("proyecto_id") != DemoProject {
		t.Fatalf("expected project default, got %v", item)
	}
	if item.Text("fecha_creacion") != "2025-05-01T10:30:00Z" {
		t.Fatalf("unexpected stamp: %v", item["fecha_creacion"])
	}
}

func TestMemoryValidatesRequiredAndEnums(t *testing.T) {
	mem := newDemo(t)
	_, err := mem.Do(context.Background(), http.MethodPost, "/actores", map[string]any{"nombre": "", "tipo": "Robot"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if _, ok := apiErr.Fields["body.nombre"]; !ok {
		t.Fatalf("expected nombre detail: %v", apiErr.Fields)
	}
	if _, ok := apiErr.Fields["body.tipo"]; !ok {
		t.Fatalf("expected tipo detail: %v", apiErr.Fields)
	}

	payload, _ := mem.Do(context.Background(), http.MethodGet, "/actores", nil)
	items, _ := model.DecodeItems(payload)
	if len(items) != 1 {
		t.Fatalf("rejected create must not persist, got %d items", len(items))
	}
}

func TestMemoryUpdateMergesAndDelete(t *testing.T) {
	mem := newDemo(t)
	ctx := context.Background()

	payload, err := mem.Do(ctx, http.MethodPut, "/projects/dummyProject123/casos_uso/1", map[string]any{"titulo": "CU editado"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	item, _ := model.DecodeItem(payload)
	if item.Text("titulo") != "CU editado" || item.Text("categoria") != "Principal" {
		t.Fatalf("update should merge: %v", item)
	}

	if _, err := mem.Do(ctx, http.MethodDelete, "/escenarios/1", nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := mem.Do(ctx, http.MethodGet, "/escenarios/1", nil); !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
	if _, err := mem.Do(ctx, http.MethodGet, "/unknown", nil); !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 for unknown target, got %v", err)
	}
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	mem := newDemo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mem.Do(ctx, http.MethodGet, "/actores", nil)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestDemoServesProjectCatalog(t *testing.T) {
	mem := newDemo(t)
	ctx := context.Background()

	payload, err := mem.Do(ctx, http.MethodGet, "/projects", nil)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	items, err := model.DecodeItems(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	section := model.Section{IDField: "id", Items: items}
	if diff := cmp.Diff([]model.ID{"dummyProject123", "2", "3"}, section.IDs()); diff != "" {
		t.Fatalf("project ids mismatch (-want +got):\n%s", diff)
	}

	created, err := mem.Do(ctx, http.MethodPost, "/projects", map[string]any{"nombre": "Nuevo", "estado": "Activo"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	item, _ := model.DecodeItem(created)
	if id, _ := item.ID("id"); id != "4" {
		t.Fatalf("expected id 4, got %v", item["id"])
	}

	_, err = mem.Do(ctx, http.MethodPost, "/projects", map[string]any{"nombre": "Otro", "estado": "Pausado"})
	if !IsStatus(err, http.StatusUnprocessableEntity) {
		t.Fatalf("expected 422 for unknown estado, got %v", err)
	}
}

func TestDemoWithoutProjectKindServesHeaderDocument(t *testing.T) {
	reg, err := schema.Parse([]byte(`
project: {locator: "/projects/{project}"}
kinds:
  - {key: notas, id_field: id, locator: /notas, fields: [texto]}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	mem, err := Demo(reg, fixedNow)
	if err != nil {
		t.Fatalf("demo: %v", err)
	}
	header, err := mem.Do(context.Background(), http.MethodGet, "/projects/"+DemoProject, nil)
	if err != nil {
		t.Fatalf("project header: %v", err)
	}
	project, _ := model.DecodeItem(header)
	if project.Text("nombre") != "Proyecto de Demostración" {
		t.Fatalf("unexpected project: %v", project)
	}
	if _, err := mem.Do(context.Background(), http.MethodPut, "/projects/"+DemoProject, map[string]any{}); !IsStatus(err, http.StatusMethodNotAllowed) {
		t.Fatalf("expected read-only header, got %v", err)
	}
}
