// Package contract reads the backend's OpenAPI document and compares the
// create schemas it publishes against the schema registry.
package contract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/schema"
)

// ErrNoOperation reports a kind without a matching create operation.
var ErrNoOperation = errors.New("contract: no create operation")

// Fields maintained by the backend; never reported as drift.
var managedFields = map[string]struct{}{
	"id":                  {},
	"proyecto_id":         {},
	"fecha_creacion":      {},
	"fecha_actualizacion": {},
	"version":             {},
}

// Operation is the create operation published for one kind.
type Operation struct {
	Kind       model.Kind          `json:"kind"`
	Path       string              `json:"path"`
	ID         string              `json:"operationId,omitempty"`
	Required   []string            `json:"required,omitempty"`
	Properties []string            `json:"properties,omitempty"`
	Enums      map[string][]string `json:"enums,omitempty"`
}

// Contract holds the create operations matched to registry kinds.
type Contract struct {
	Title      string
	Version    string
	operations map[model.Kind]Operation
}

// Option customises Read.
type Option func(*options)

type options struct {
	registry *schema.Registry
	validate bool
}

// WithRegistry matches operations against registry instead of the default
// one.
func WithRegistry(registry *schema.Registry) Option {
	return func(o *options) {
		if registry != nil {
			o.registry = registry
		}
	}
}

// WithValidation validates the document before reading it.
func WithValidation() Option {
	return func(o *options) {
		o.validate = true
	}
}

// Read parses an OpenAPI 3 document and records, for every registry kind,
// the POST operation whose path matches the kind's locator.
func Read(ctx context.Context, data []byte, opts ...Option) (*Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("contract: document payload is empty")
	}
	cfg := options{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = schema.Default()
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("contract: load document: %w", err)
	}
	if cfg.validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("contract: validate: %w", err)
		}
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("contract: document does not contain any paths")
	}

	c := &Contract{operations: make(map[model.Kind]Operation)}
	if spec.Info != nil {
		c.Title = spec.Info.Title
		c.Version = spec.Info.Version
	}

	paths := spec.Paths.InMatchingOrder()
	for _, kind := range cfg.registry.Kinds() {
		locator := cfg.registry.Describe(kind).Locator
		best, bestExtra := "", -1
		for _, path := range paths {
			item := spec.Paths.Value(path)
			if item == nil || item.Post == nil {
				continue
			}
			extra, ok := matchPath(locator, path)
			if ok && (bestExtra < 0 || extra < bestExtra) {
				best, bestExtra = path, extra
			}
		}
		if bestExtra >= 0 {
			c.operations[kind] = operationFrom(kind, best, spec.Paths.Value(best).Post)
		}
	}
	return c, nil
}

// Operation returns the create operation of kind.
func (c *Contract) Operation(kind model.Kind) (Operation, bool) {
	if c == nil {
		return Operation{}, false
	}
	op, ok := c.operations[kind]
	return op, ok
}

// Required returns the backend's required list for kind.
func (c *Contract) Required(kind model.Kind) ([]string, error) {
	op, ok := c.Operation(kind)
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoOperation, kind)
	}
	return append([]string(nil), op.Required...), nil
}

// Kinds lists the kinds with a matched operation, sorted.
func (c *Contract) Kinds() []model.Kind {
	if c == nil {
		return nil
	}
	out := make([]model.Kind, 0, len(c.operations))
	for kind := range c.operations {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func operationFrom(kind model.Kind, path string, op *openapi3.Operation) Operation {
	out := Operation{Kind: kind, Path: path, ID: op.OperationID}
	body := requestSchema(op.RequestBody)
	if body == nil {
		return out
	}

	required := make(map[string]struct{})
	props := make(map[string]*openapi3.SchemaRef)
	collectObject(body, required, props)

	for name := range required {
		out.Required = append(out.Required, name)
	}
	sort.Strings(out.Required)
	for name, prop := range props {
		out.Properties = append(out.Properties, name)
		if values := enumValues(prop); len(values) > 0 {
			if out.Enums == nil {
				out.Enums = make(map[string][]string)
			}
			out.Enums[name] = values
		}
	}
	sort.Strings(out.Properties)
	return out
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	if mt, ok := content["application/json"]; ok && mt.Schema != nil {
		return mt.Schema.Value
	}
	for _, mt := range content {
		if mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

// collectObject gathers required names and properties, following allOf.
func collectObject(s *openapi3.Schema, required map[string]struct{}, props map[string]*openapi3.SchemaRef) {
	if s == nil {
		return
	}
	for _, name := range s.Required {
		required[name] = struct{}{}
	}
	for name, prop := range s.Properties {
		props[name] = prop
	}
	for _, ref := range s.AllOf {
		if ref != nil {
			collectObject(ref.Value, required, props)
		}
	}
}

// enumValues reads string enums directly or through a nullable anyOf/oneOf
// wrapper.
func enumValues(ref *openapi3.SchemaRef) []string {
	if ref == nil || ref.Value == nil {
		return nil
	}
	s := ref.Value
	if len(s.Enum) > 0 {
		out := make([]string, 0, len(s.Enum))
		for _, value := range s.Enum {
			out = append(out, fmt.Sprint(value))
		}
		return out
	}
	for _, group := range []openapi3.SchemaRefs{s.AnyOf, s.OneOf, s.AllOf} {
		for _, member := range group {
			if values := enumValues(member); len(values) > 0 {
				return values
			}
		}
	}
	return nil
}

// matchPath compares a registry locator with an OpenAPI path segment by
// segment; "{...}" placeholders on both sides match. The path may carry a
// leading prefix such as "/api"; extra reports how many prefix segments were
// skipped so exact matches win.
func matchPath(locator, path string) (int, bool) {
	want := segments(locator)
	got := segments(path)
	if len(got) < len(want) || len(want) == 0 {
		return 0, false
	}
	extra := len(got) - len(want)
	got = got[extra:]
	for idx := range want {
		if isParam(want[idx]) && isParam(got[idx]) {
			continue
		}
		if want[idx] != got[idx] {
			return 0, false
		}
	}
	return extra, true
}

func segments(path string) []string {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func isParam(segment string) bool {
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}
