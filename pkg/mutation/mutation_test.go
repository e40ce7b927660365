package mutation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-artefacts/pkg/loader"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/relation"
	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/store"
	"github.com/goliatone/go-artefacts/pkg/testsupport"
	"github.com/goliatone/go-artefacts/pkg/transport"
)

type harness struct {
	reg      *schema.Registry
	store    *store.Store
	backend  *transport.Memory
	loader   *loader.Loader
	recorder *render.Recorder
	orch     *Orchestrator
}

func newHarness(t *testing.T, options ...Option) *harness {
	t.Helper()
	reg := schema.Default()
	backend := testsupport.DemoBackend(t, reg)
	st := testsupport.NewStore(reg)
	recorder := &render.Recorder{}
	ld := loader.New(reg, st, backend, transport.DemoProject, loader.WithRenderer(recorder))
	if err := ld.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	recorder.Reset()
	return &harness{
		reg:      reg,
		store:    st,
		backend:  backend,
		loader:   ld,
		recorder: recorder,
		orch:     New(reg, st, backend, ld, options...),
	}
}

func (h *harness) section(t *testing.T, kind model.Kind) model.Section {
	t.Helper()
	section, ok := h.store.Section(kind)
	if !ok {
		t.Fatalf("section %s missing", kind)
	}
	return section
}

func TestCreateUpdateDeleteRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.orch.Create(ctx, "actores", map[string]any{
		"nombre":      "Auditor",
		"tipo":        "Humano",
		"descripcion": "Revisa entregables",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id, ok := created.ID("id")
	if !ok {
		t.Fatalf("created item has no id: %v", created)
	}
	if _, _, found := h.section(t, "actores").Find(id); !found {
		t.Fatalf("created actor %s not in section", id)
	}

	if _, err := h.orch.Update(ctx, "actores", id, map[string]any{"nombre": "Auditora", "tipo": "Humano"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	item, _, _ := h.section(t, "actores").Find(id)
	if got := item.Text("nombre"); got != "Auditora" {
		t.Fatalf("expected updated name, got %q", got)
	}

	if err := h.orch.Delete(ctx, "actores", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, found := h.section(t, "actores").Find(id); found {
		t.Fatalf("deleted actor %s still present", id)
	}
	if h.store.InFlight("actores") {
		t.Fatalf("in-flight flag must be released")
	}
}

func TestUpdateWithUnchangedValuesIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	before := h.section(t, "actores")
	item, _, _ := before.Find("1")
	values := map[string]any{}
	for _, name := range h.reg.Describe("actores").Fields {
		values[name] = item[name]
	}

	if _, err := h.orch.Update(ctx, "actores", "1", values); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := h.section(t, "actores")
	if diff := cmp.Diff(before.IDs(), after.IDs()); diff != "" {
		t.Fatalf("ids changed (-before +after):\n%s", diff)
	}
	got, _, _ := after.Find("1")
	if !got.Equal(item) {
		t.Fatalf("item changed: %v -> %v", item, got)
	}
}

func TestUpdateCascadesToDependentLabels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Update(ctx, "requisitos", "1", map[string]any{
		"nombre":      "Req Renombrado",
		"descripcion": "Descripción del Req 1",
		"tipo":        "FUNCIONAL",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	want := []string{"loaded:requisitos", "loaded:casos_uso", "loaded:escenarios"}
	if diff := cmp.Diff(want, h.recorder.Trace()); diff != "" {
		t.Fatalf("cascade trace mismatch (-want +got):\n%s", diff)
	}

	resolver := relation.New(h.reg, h.store)
	cu, _, _ := h.section(t, "casos_uso").Find("1")
	if got := resolver.Label("casos_uso", "requisito_id", cu["requisito_id"]); got != "Req Renombrado" {
		t.Fatalf("expected fresh label, got %q", got)
	}
}

func TestLeafMutationReloadsOnlyItself(t *testing.T) {
	h := newHarness(t)

	if _, err := h.orch.Create(context.Background(), "escenarios", map[string]any{
		"nombre":      "Escenario nuevo",
		"tipo":        "NORMAL",
		"caso_uso_id": "1",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if diff := cmp.Diff([]string{"loaded:escenarios"}, h.recorder.Trace()); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if got := h.section(t, "escenarios").Len(); got != 2 {
		t.Fatalf("expected 2 escenarios, got %d", got)
	}
}

func TestConcurrentMutationFailsWithStateError(t *testing.T) {
	h := newHarness(t)
	release, err := h.store.Acquire("requisitos")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = h.orch.Create(context.Background(), "requisitos", map[string]any{"nombre": "x", "descripcion": "y", "tipo": "FUNCIONAL"})
	var stateErr *store.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if !errors.Is(err, store.ErrInFlight) {
		t.Fatalf("expected ErrInFlight match")
	}
	if got := h.section(t, "requisitos").Len(); got != 2 {
		t.Fatalf("rejected mutation must not touch the section, got %d items", got)
	}
}

func TestCreateListsEveryMissingRequiredField(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Create(context.Background(), "requisitos", map[string]any{"nombre": "  ", "estado": "Propuesto"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"descripcion", "nombre", "tipo"}, verr.Missing()); diff != "" {
		t.Fatalf("missing fields mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation match")
	}
	if len(h.recorder.Trace()) != 0 {
		t.Fatalf("failed validation must not reload: %v", h.recorder.Trace())
	}
	if h.store.InFlight("requisitos") {
		t.Fatalf("in-flight flag must be released after validation failure")
	}
}

func TestWithRequiredOverridesDeclaredList(t *testing.T) {
	h := newHarness(t, WithRequired("actores", "nombre"))
	if diff := cmp.Diff([]string{"nombre"}, h.orch.Required("actores")); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"nombre", "tipo", "caso_uso_id"}, h.orch.Required("escenarios")); diff != "" {
		t.Fatalf("declared required mismatch (-want +got):\n%s", diff)
	}
}

func TestBackendValidationMapsToFields(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Create(context.Background(), "actores", map[string]any{"nombre": "Robot", "tipo": "Androide"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["tipo"]; !ok {
		t.Fatalf("expected tipo error, got %v", verr.Fields)
	}
	if !transport.IsStatus(err, http.StatusUnprocessableEntity) {
		t.Fatalf("expected wrapped 422, got %v", err)
	}
	if got := h.section(t, "actores").Len(); got != 1 {
		t.Fatalf("rejected create must not add items, got %d", got)
	}
}

func TestPrepareCoercesNumericFields(t *testing.T) {
	h := newHarness(t)
	body, err := h.orch.prepare(h.reg.Describe("requisitos"), map[string]any{
		"id":                 "99",
		"nombre":             "R",
		"descripcion":        "D",
		"tipo":               "FUNCIONAL",
		"prioridad":          "3",
		"version":            "1.5",
		"requisito_padre_id": "",
		"proyecto_id":        "other",
		"fecha_creacion":     "2024-01-01",
		"desconocido":        true,
	}, "")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	want := map[string]any{
		"nombre":             "R",
		"descripcion":        "D",
		"tipo":               "FUNCIONAL",
		"prioridad":          int64(3),
		"version":            1.5,
		"requisito_padre_id": nil,
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	_, err = h.orch.prepare(h.reg.Describe("requisitos"), map[string]any{
		"nombre": "R", "descripcion": "D", "tipo": "FUNCIONAL", "prioridad": "alta",
	}, "")
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Fields["prioridad"]) == 0 {
		t.Fatalf("expected prioridad number error, got %v", err)
	}
}

func TestUpdateUnknownItemReturnsNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Update(context.Background(), "actores", "404", map[string]any{"nombre": "x"})
	if !transport.IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404, got %v", err)
	}
	if len(h.recorder.Trace()) != 0 {
		t.Fatalf("failed update must not reload: %v", h.recorder.Trace())
	}
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	h := newHarness(t)

	for _, parent := range []any{"1", 1, 1.0} {
		_, err := h.orch.Update(context.Background(), "requisitos", "1", map[string]any{"requisito_padre_id": parent})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("parent %v: expected ValidationError, got %v", parent, err)
		}
		if len(verr.Fields["requisito_padre_id"]) == 0 {
			t.Fatalf("parent %v: expected requisito_padre_id error, got %v", parent, verr.Fields)
		}
	}

	item, _, _ := h.section(t, "requisitos").Find("1")
	if _, ok := model.NormalizeID(item["requisito_padre_id"]); ok {
		t.Fatalf("self parent must not be stored, got %v", item["requisito_padre_id"])
	}
	if len(h.recorder.Trace()) != 0 {
		t.Fatalf("rejected update must not reload: %v", h.recorder.Trace())
	}

	if _, err := h.orch.Update(context.Background(), "requisitos", "2", map[string]any{"requisito_padre_id": "1"}); err != nil {
		t.Fatalf("other parent: %v", err)
	}
}

// timeline records transport requests and renderer notifications in one
// sequence.
type timeline struct {
	mu      sync.Mutex
	entries []string
	fail    map[string]int
}

func (tl *timeline) add(entry string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.entries = append(tl.entries, entry)
}

func (tl *timeline) Entries() []string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return append([]string(nil), tl.entries...)
}

func (tl *timeline) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.entries = nil
}

// failNext makes the next n requests to "METHOD target" fail.
func (tl *timeline) failNext(request string, n int) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.fail == nil {
		tl.fail = make(map[string]int)
	}
	tl.fail[request] = n
}

func (tl *timeline) take(request string) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.fail[request] > 0 {
		tl.fail[request]--
		return true
	}
	return false
}

func (tl *timeline) SectionLoaded(kind model.Kind, _ model.Section) {
	tl.add("loaded:" + string(kind))
}

func (tl *timeline) SectionFailed(kind model.Kind, _ error) {
	tl.add("failed:" + string(kind))
}

func (tl *timeline) wrap(next transport.Transport) transport.Transport {
	return transport.Func(func(ctx context.Context, method, target string, body any) (transport.Payload, error) {
		request := method + " " + target
		tl.add(request)
		if tl.take(request) {
			return nil, &transport.TransportError{Method: method, Target: target, Err: fmt.Errorf("connection reset")}
		}
		return next.Do(ctx, method, target, body)
	})
}

func newTimelineHarness(t *testing.T) (*Orchestrator, *timeline) {
	t.Helper()
	reg := schema.Default()
	tl := &timeline{}
	tr := tl.wrap(testsupport.DemoBackend(t, reg))
	st := testsupport.NewStore(reg)
	ld := loader.New(reg, st, tr, transport.DemoProject, loader.WithRenderer(tl))
	if err := ld.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	tl.Reset()
	return New(reg, st, tr, ld), tl
}

func requisitoUpdate() map[string]any {
	return map[string]any{
		"nombre":      "Req Renombrado",
		"descripcion": "Descripción del Req 1",
		"tipo":        "FUNCIONAL",
	}
}

func TestCascadeRefetchesMutatedKindBeforeRedraw(t *testing.T) {
	orch, tl := newTimelineHarness(t)

	if _, err := orch.Update(context.Background(), "requisitos", "1", requisitoUpdate()); err != nil {
		t.Fatalf("update: %v", err)
	}

	requisitos := "/projects/" + transport.DemoProject + "/requisitos"
	casos := "/projects/" + transport.DemoProject + "/casos_uso"
	want := []string{
		"PUT " + requisitos + "/1",
		"GET " + requisitos,
		"loaded:requisitos",
		"GET " + casos,
		"loaded:casos_uso",
	}
	got := tl.Entries()
	if len(got) < len(want) {
		t.Fatalf("timeline too short: %v", got)
	}
	if diff := cmp.Diff(want, got[:len(want)]); diff != "" {
		t.Fatalf("cascade order mismatch (-want +got):\n%s", diff)
	}
	rest := got[len(want):]
	if len(rest) != 2 || !strings.HasPrefix(rest[0], "GET /escenarios") || rest[1] != "loaded:escenarios" {
		t.Fatalf("expected escenarios reload last, got %v", rest)
	}
}

func TestFailedSilentRefreshFallsBackToVisibleLoad(t *testing.T) {
	orch, tl := newTimelineHarness(t)
	requisitos := "/projects/" + transport.DemoProject + "/requisitos"
	tl.failNext("GET "+requisitos, 1)

	if _, err := orch.Update(context.Background(), "requisitos", "1", requisitoUpdate()); err != nil {
		t.Fatalf("update: %v", err)
	}

	want := []string{
		"PUT " + requisitos + "/1",
		"GET " + requisitos,
		"GET " + requisitos,
		"loaded:requisitos",
	}
	got := tl.Entries()
	if len(got) < len(want) {
		t.Fatalf("timeline too short: %v", got)
	}
	if diff := cmp.Diff(want, got[:len(want)]); diff != "" {
		t.Fatalf("fallback order mismatch (-want +got):\n%s", diff)
	}
	for _, entry := range got {
		if entry == "failed:requisitos" {
			t.Fatalf("silent refresh failure must not reach the renderer: %v", got)
		}
	}
}

func TestCreateWithoutResponseBodyReturnsReloadedItem(t *testing.T) {
	reg := schema.Default()
	backend := testsupport.DemoBackend(t, reg)
	silent := transport.Func(func(ctx context.Context, method, target string, body any) (transport.Payload, error) {
		payload, err := backend.Do(ctx, method, target, body)
		if method == http.MethodPost {
			return nil, err
		}
		return payload, err
	})
	st := testsupport.NewStore(reg)
	ld := loader.New(reg, st, silent, transport.DemoProject)
	if err := ld.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	orch := New(reg, st, silent, ld)

	item, err := orch.Create(context.Background(), "actores", map[string]any{"nombre": "Auditor", "tipo": "Humano"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item == nil {
		t.Fatalf("expected an item for an empty create response")
	}
	id, ok := item.ID("id")
	if !ok {
		t.Fatalf("expected the reloaded id, got %v", item)
	}
	if got := item.Text("nombre"); got != "Auditor" {
		t.Fatalf("expected submitted name, got %q", got)
	}
	section, _ := st.Section("actores")
	if _, _, found := section.Find(id); !found {
		t.Fatalf("created actor %s not in section", id)
	}
}
