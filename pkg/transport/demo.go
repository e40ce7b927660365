package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

// DemoProject is the project id served by the offline demo backend.
const DemoProject = "dummyProject123"

// Demo builds an offline backend seeded with the demonstration project. Each
// collection validates required fields and enum values from reg.
func Demo(reg *schema.Registry, now time.Time) (*Memory, error) {
	stamp := now.UTC().Format(time.RFC3339)
	seeds := map[model.Kind][]model.Item{
		"requisitos": {
			{"id": 1, "nombre": "Req Demo 1", "descripcion": "Descripción del Req 1", "tipo": "FUNCIONAL", "estado": "Propuesto", "prioridad": 1, "fuente": "Cliente", "observaciones": "", "version": 1, "requisito_padre_id": nil, "fecha_creacion": stamp, "fecha_actualizacion": stamp, "proyecto_id": DemoProject},
			{"id": 2, "nombre": "Req Demo 2", "descripcion": "Descripción del Req 2", "tipo": "NO_FUNCIONAL", "estado": "Aprobado", "prioridad": 2, "fuente": "Analista", "observaciones": "Ninguna", "version": 1, "requisito_padre_id": 1, "fecha_creacion": stamp, "fecha_actualizacion": stamp, "proyecto_id": DemoProject},
		},
		"casos_uso": {
			{"id": 1, "titulo": "CU Demo 1", "descripcion": "Descripción CU 1", "actores": "Usuario, Admin", "categoria": "Principal", "estado": "Propuesto", "precondiciones": "Sistema activo", "postcondiciones": "Tarea completada", "flujo_normal": "Pasos...", "flujo_alternativo": "", "requisito_id": 1, "fecha_creacion": stamp, "fecha_actualizacion": stamp, "proyecto_id": DemoProject},
		},
		"escenarios": {
			{"id": 1, "nombre": "Escenario Demo 1", "descripcion": "Descripción Escenario 1", "tipo": "NORMAL", "resultado_esperado": "Éxito", "caso_uso_id": 1, "fecha_creacion": stamp, "fecha_actualizacion": stamp},
		},
		"actores": {
			{"id": 1, "nombre": "Actor Demo 1", "tipo": "Humano", "descripcion": "Usuario principal"},
		},
	}

	header := model.Item{
		"id":          DemoProject,
		"nombre":      "Proyecto de Demostración",
		"estado":      "Activo",
		"descripcion": "Un proyecto para pruebas.",
	}
	options := []MemoryOption{WithClock(func() time.Time { return now })}
	if kind, ok := reg.ProjectKind(); ok {
		dated := func(item model.Item) model.Item {
			item["fecha_creacion"], item["fecha_actualizacion"] = stamp, stamp
			return item
		}
		seeds[kind] = []model.Item{
			dated(header.Clone()),
			dated(model.Item{"id": 2, "nombre": "Portal de Clientes", "estado": "Completado", "descripcion": "Migración del portal antiguo."}),
			dated(model.Item{"id": 3, "nombre": "App Móvil", "estado": "Cancelado", "descripcion": "Sustituida por la web adaptable."}),
		}
	} else {
		projectTarget, err := reg.ProjectTarget(DemoProject)
		if err != nil {
			return nil, fmt.Errorf("transport: demo: %w", err)
		}
		options = append(options, WithDocument(projectTarget, header))
	}

	for _, kind := range append(reg.Kinds(), reg.Catalog()...) {
		def := reg.Describe(kind)
		target, err := reg.Target(kind, DemoProject, "")
		if err != nil {
			return nil, fmt.Errorf("transport: demo: %w", err)
		}
		var defaults model.Item
		if def.ProjectScoped {
			defaults = model.Item{"proyecto_id": DemoProject}
		}
		options = append(options, WithCollection(Collection{
			Path:     target,
			IDField:  def.IDField,
			Items:    seeds[kind],
			Defaults: defaults,
			Stamp:    def.HasField("fecha_creacion"),
			Validate: KindValidator(reg, kind),
		}))
	}
	return NewMemory(options...), nil
}

// KindValidator checks required fields and enum membership the way the
// backend's create schemas do, reporting failures as a 422 APIError.
func KindValidator(reg *schema.Registry, kind model.Kind) func(model.Item) error {
	def := reg.Describe(kind)
	return func(item model.Item) error {
		fields := make(map[string][]string)
		var errs []error
		for _, name := range def.Required {
			if value, ok := item.Get(name); !ok || model.IsBlank(value) {
				fields["body."+name] = append(fields["body."+name], "field required")
				errs = append(errs, fmt.Errorf("%s: field required", name))
			}
		}
		for _, name := range def.Fields {
			value, ok := item.Get(name)
			if !ok {
				continue
			}
			if err := reg.Resolve(name, kind).Validate(value); err != nil {
				fields["body."+name] = append(fields["body."+name], err.Error())
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
		if len(errs) == 0 {
			return nil
		}
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Message: errors.Join(errs...).Error(),
			Fields:  fields,
		}
	}
}
