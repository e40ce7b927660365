// Package mutation runs create, update and delete against one kind and then
// reloads every Section that shows resolved references to it. Mutations on a
// kind are serialised through the store's in-flight flag; a second attempt
// fails fast with a store.StateError.
package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/fields"
	"github.com/goliatone/go-artefacts/pkg/loader"
	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/store"
	"github.com/goliatone/go-artefacts/pkg/transport"
)

// Backend-managed fields never sent in a body.
var managedFields = map[string]struct{}{
	"proyecto_id":         {},
	"fecha_creacion":      {},
	"fecha_actualizacion": {},
}

// Option customises the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the mutation logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithRequired replaces the required field list of kind, for example with
// the lists published by the backend's OpenAPI document.
func WithRequired(kind model.Kind, names ...string) Option {
	return func(o *Orchestrator) {
		if o.required == nil {
			o.required = make(map[model.Kind][]string)
		}
		o.required[kind] = append([]string(nil), names...)
	}
}

// Orchestrator executes mutations for one project session.
type Orchestrator struct {
	registry  *schema.Registry
	store     *store.Store
	transport transport.Transport
	loader    *loader.Loader
	required  map[model.Kind][]string
	logger    zerolog.Logger
}

// New builds an orchestrator. The loader drives cascade reloads and must
// share st.
func New(registry *schema.Registry, st *store.Store, tr transport.Transport, ld *loader.Loader, options ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:  registry,
		store:     st,
		transport: tr,
		loader:    ld,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	return o
}

// Required returns the required field list in effect for kind.
func (o *Orchestrator) Required(kind model.Kind) []string {
	if names, ok := o.required[kind]; ok {
		return append([]string(nil), names...)
	}
	return o.registry.Describe(kind).Required
}

// Create submits values as a new item of kind.
func (o *Orchestrator) Create(ctx context.Context, kind model.Kind, values map[string]any) (model.Item, error) {
	def, release, err := o.begin(kind)
	if err != nil {
		return nil, err
	}
	defer release()

	body, err := o.prepare(def, values, "")
	if err != nil {
		return nil, err
	}
	target, err := o.registry.Target(kind, o.loader.Project(), "")
	if err != nil {
		return nil, fmt.Errorf("mutation: create %s: %w", kind, err)
	}
	known := o.knownIDs(kind)
	payload, err := o.transport.Do(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, o.submitError(def, "create", err)
	}

	if payload.Empty() {
		o.logger.Warn().Str("kind", string(kind)).Msg("create returned no body, relying on reload")
		o.finish(ctx, def, "create", "")
		return o.discovered(def, known, body), nil
	}

	item, err := model.DecodeItem(payload)
	if err != nil {
		return nil, fmt.Errorf("mutation: create %s: %w", kind, err)
	}
	if _, err := o.store.Upsert(kind, item); err != nil {
		o.logger.Warn().Err(err).Str("kind", string(kind)).Msg("created item not stored")
	}

	id, _ := item.ID(def.IDField)
	o.finish(ctx, def, "create", id)
	return item, nil
}

func (o *Orchestrator) knownIDs(kind model.Kind) map[model.ID]struct{} {
	section, _ := o.store.Section(kind)
	known := make(map[model.ID]struct{}, section.Len())
	for _, id := range section.IDs() {
		known[id] = struct{}{}
	}
	return known
}

// discovered returns the submitted values completed with the id of the one
// item the post-create reload added. Without a single new id the values are
// returned as submitted.
func (o *Orchestrator) discovered(def schema.EntityKind, known map[model.ID]struct{}, body map[string]any) model.Item {
	item := model.Item(body).Clone()
	section, _ := o.store.Section(def.Key)
	var fresh []model.Item
	for _, candidate := range section.Items {
		id, ok := candidate.ID(def.IDField)
		if !ok {
			continue
		}
		if _, seen := known[id]; !seen {
			fresh = append(fresh, candidate)
		}
	}
	if len(fresh) != 1 {
		o.logger.Warn().Str("kind", string(def.Key)).Int("new_items", len(fresh)).Msg("created item id not identified")
		return item
	}
	for key, value := range fresh[0] {
		item[key] = value
	}
	return item
}

// Update submits values for the item of kind identified by id.
func (o *Orchestrator) Update(ctx context.Context, kind model.Kind, id model.ID, values map[string]any) (model.Item, error) {
	def, release, err := o.begin(kind)
	if err != nil {
		return nil, err
	}
	defer release()

	if id.IsZero() {
		return nil, &ValidationError{Kind: kind, Fields: map[string][]string{def.IDField: {"identifier required"}}}
	}
	body, err := o.prepare(def, values, id)
	if err != nil {
		return nil, err
	}
	target, err := o.registry.Target(kind, o.loader.Project(), id)
	if err != nil {
		return nil, fmt.Errorf("mutation: update %s: %w", kind, err)
	}
	payload, err := o.transport.Do(ctx, http.MethodPut, target, body)
	if err != nil {
		return nil, o.submitError(def, "update", err)
	}

	item := model.Item(body)
	if !payload.Empty() {
		if item, err = model.DecodeItem(payload); err != nil {
			return nil, fmt.Errorf("mutation: update %s: %w", kind, err)
		}
	} else if current, ok := o.store.Section(kind); ok {
		if existing, _, found := current.Find(id); found {
			merged := existing.Clone()
			for key, value := range body {
				merged[key] = value
			}
			item = merged
		}
	}
	if _, ok := item.ID(def.IDField); !ok {
		item[def.IDField] = id.String()
	}
	if _, err := o.store.Upsert(kind, item); err != nil {
		o.logger.Warn().Err(err).Str("kind", string(kind)).Msg("updated item not stored")
	}

	o.finish(ctx, def, "update", id)
	return item, nil
}

// Delete removes the item of kind identified by id.
func (o *Orchestrator) Delete(ctx context.Context, kind model.Kind, id model.ID) error {
	def, release, err := o.begin(kind)
	if err != nil {
		return err
	}
	defer release()

	if id.IsZero() {
		return &ValidationError{Kind: kind, Fields: map[string][]string{def.IDField: {"identifier required"}}}
	}
	target, err := o.registry.Target(kind, o.loader.Project(), id)
	if err != nil {
		return fmt.Errorf("mutation: delete %s: %w", kind, err)
	}
	if _, err := o.transport.Do(ctx, http.MethodDelete, target, nil); err != nil {
		return o.submitError(def, "delete", err)
	}
	if _, err := o.store.Remove(kind, id); err != nil {
		o.logger.Warn().Err(err).Str("kind", string(kind)).Msg("deleted item not removed")
	}

	o.finish(ctx, def, "delete", id)
	return nil
}

func (o *Orchestrator) begin(kind model.Kind) (schema.EntityKind, func(), error) {
	def, ok := o.registry.Lookup(kind)
	if !ok {
		return schema.EntityKind{}, nil, fmt.Errorf("mutation: %q: %w", kind, schema.ErrUnknownKind)
	}
	release, err := o.store.Acquire(kind)
	if err != nil {
		return schema.EntityKind{}, nil, err
	}
	return def, release, nil
}

func (o *Orchestrator) submitError(def schema.EntityKind, op string, err error) error {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
		if verr := fromAPIError(def, apiErr); verr != nil {
			return verr
		}
	}
	return fmt.Errorf("mutation: %s %s: %w", op, def.Key, err)
}

// finish runs the cascade and logs the result. Reload failures are logged
// only: the mutation already succeeded.
func (o *Orchestrator) finish(ctx context.Context, def schema.EntityKind, op string, id model.ID) {
	cascade := o.cascade(ctx, def)
	kinds := make([]string, len(cascade))
	for idx, kind := range cascade {
		kinds[idx] = string(kind)
	}
	o.logger.Info().
		Str("op", op).
		Str("kind", string(def.Key)).
		Str("id", id.String()).
		Strs("cascade", kinds).
		Msg("mutation applied")
}

// cascade refreshes the mutated kind silently when others depend on it, then
// redraws it (or reloads it visibly if that refresh failed), then reloads
// every transitive dependent visibly in load order.
func (o *Orchestrator) cascade(ctx context.Context, def schema.EntityKind) []model.Kind {
	refreshed := false
	if len(def.Dependents) > 0 {
		if _, err := o.loader.Load(ctx, def.Key, loader.Silent); err == nil {
			refreshed = true
		}
	}
	if refreshed {
		o.loader.Redraw(def.Key)
	} else if _, err := o.loader.Load(ctx, def.Key, loader.Visible); err != nil {
		o.logger.Warn().Err(err).Str("kind", string(def.Key)).Msg("reload after mutation failed")
	}

	dependents := o.registry.Cascade(def.Key)
	for _, kind := range dependents {
		if _, err := o.loader.Load(ctx, kind, loader.Visible); err != nil {
			o.logger.Warn().Err(err).Str("kind", string(kind)).Str("cause", string(def.Key)).Msg("cascade reload failed")
		}
	}
	return dependents
}

// prepare validates required fields and builds the request body. id is zero
// on creation; on update an item may not reference itself.
func (o *Orchestrator) prepare(def schema.EntityKind, values map[string]any, id model.ID) (map[string]any, error) {
	creating := id.IsZero()
	verr := &ValidationError{Kind: def.Key}
	for _, name := range o.Required(def.Key) {
		value, present := values[name]
		if creating && (!present || model.IsBlank(value)) {
			verr.add(name, "field required")
		}
		if !creating && present && model.IsBlank(value) {
			verr.add(name, "field required")
		}
	}

	body := make(map[string]any, len(values))
	for name, value := range values {
		if name == def.IDField || !def.HasField(name) {
			continue
		}
		if _, managed := managedFields[name]; managed {
			continue
		}
		desc := o.registry.Resolve(name, def.Key)
		if desc.IsNumeric() || fields.IsRelationSuffix(name) {
			coerced, err := coerceNumber(value)
			if err != nil {
				verr.add(name, err.Error())
				continue
			}
			if desc.IsRelation() && desc.Target == def.Key && !creating {
				if ref, ok := model.NormalizeID(coerced); ok && ref == id {
					verr.add(name, "an item cannot reference itself")
					continue
				}
			}
			body[name] = coerced
			continue
		}
		body[name] = value
	}

	if !verr.empty() {
		return nil, verr
	}
	return body, nil
}

// coerceNumber turns submitted input into int64, float64 or nil. Empty input
// is an explicit null, never an empty string.
func coerceNumber(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return normaliseFloat(float64(v)), nil
	case float64:
		return normaliseFloat(v), nil
	case json.Number:
		return parseNumber(v.String())
	case model.ID:
		return parseNumber(string(v))
	case string:
		return parseNumber(v)
	default:
		return nil, fmt.Errorf("must be a number")
	}
}

func parseNumber(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return normaliseFloat(f), nil
	}
	return nil, fmt.Errorf("must be a number, got %q", trimmed)
}

func normaliseFloat(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}
