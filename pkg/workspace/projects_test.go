package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/mutation"
	"github.com/goliatone/go-artefacts/pkg/render"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/testsupport"
)

func openProjects(t *testing.T) (*Projects, *render.Recorder) {
	t.Helper()
	recorder := &render.Recorder{}
	p, err := OpenProjects(Session{Offline: true, Locale: "es"},
		WithRenderer(recorder),
		WithClock(testsupport.Clock),
		WithLocation(time.UTC),
	)
	require.NoError(t, err)
	_, err = p.Load(context.Background())
	require.NoError(t, err)
	return p, recorder
}

func TestProjectsListFiltersByState(t *testing.T) {
	p, recorder := openProjects(t)

	assert.Equal(t, model.Kind("proyectos"), p.Kind())
	assert.Equal(t, []string{"loaded:proyectos"}, recorder.Trace())
	assert.Equal(t, []string{"Activo", "Completado", "Cancelado"}, p.States())

	all, err := p.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := p.List("ACTIVO")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Proyecto de Demostración", active[0].Text("nombre"))

	cards, err := p.Cards("completado")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Portal de Clientes", cards[0].Title)

	_, err = p.List("Pausado")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestProjectsLifecycle(t *testing.T) {
	p, _ := openProjects(t)
	ctx := context.Background()

	f, err := p.Form("")
	require.NoError(t, err)
	estado, ok := f.Field("estado")
	require.True(t, ok)
	assert.Equal(t, "Activo", estado.Value)

	created, err := p.Create(ctx, map[string]any{"nombre": "Intranet", "descripcion": "Portal interno", "estado": "Activo"})
	require.NoError(t, err)
	id, ok := created.ID("id")
	require.True(t, ok)

	_, err = p.Update(ctx, id, map[string]any{"estado": "Completado"})
	require.NoError(t, err)
	item, err := p.Item(id)
	require.NoError(t, err)
	assert.Equal(t, "Completado", item.Text("estado"))

	require.NoError(t, p.Delete(ctx, id))
	_, err = p.Item(id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.Create(ctx, map[string]any{"descripcion": "sin nombre"})
	var verr *mutation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "nombre")
}

func TestOpenProjectsNeedsProjectKind(t *testing.T) {
	reg, err := schema.Parse([]byte(`
kinds:
  - {key: notas, id_field: id, locator: /notas, fields: [texto]}
`))
	require.NoError(t, err)
	_, err = OpenProjects(Session{Offline: true}, WithRegistry(reg))
	assert.ErrorIs(t, err, ErrNoProjectKind)
}
