package schema

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-artefacts/pkg/fields"
	"github.com/goliatone/go-artefacts/pkg/model"
)

// Registry is the validated, immutable set of entity kinds plus the field
// resolver compiled from the same document. It is safe for concurrent use.
type Registry struct {
	project   ProjectSpec
	kinds     map[model.Kind]EntityKind
	declared  []model.Kind
	catalog   []model.Kind
	loadOrder []model.Kind
	rank      map[model.Kind]int
	resolver  *fields.Resolver
}

// New validates doc and builds a registry.
func New(doc Document) (*Registry, error) {
	resolver, err := fields.NewResolver(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	reg := &Registry{
		project:  doc.Project,
		kinds:    make(map[model.Kind]EntityKind, len(doc.Kinds)),
		resolver: resolver,
	}
	if strings.TrimSpace(reg.project.TitleField) == "" {
		reg.project.TitleField = "nombre"
	}

	for idx, spec := range doc.Kinds {
		kind, err := compileKind(spec)
		if err != nil {
			return nil, fmt.Errorf("schema: kind #%d: %w", idx, err)
		}
		if _, exists := reg.kinds[kind.Key]; exists {
			return nil, fmt.Errorf("schema: duplicate kind %q", kind.Key)
		}
		reg.kinds[kind.Key] = kind
		reg.declared = append(reg.declared, kind.Key)
	}
	for idx, spec := range doc.Catalog {
		kind, err := compileKind(spec)
		if err != nil {
			return nil, fmt.Errorf("schema: catalog #%d: %w", idx, err)
		}
		if _, exists := reg.kinds[kind.Key]; exists {
			return nil, fmt.Errorf("schema: duplicate kind %q", kind.Key)
		}
		if kind.ProjectScoped || len(kind.Prerequisites) > 0 || len(kind.Dependents) > 0 {
			return nil, fmt.Errorf("schema: catalog kind %s cannot be project scoped or take part in load order", kind.Key)
		}
		reg.kinds[kind.Key] = kind
		reg.catalog = append(reg.catalog, kind.Key)
	}
	if key := strings.TrimSpace(reg.project.Kind); key != "" {
		if !reg.IsCatalog(model.Kind(key)) {
			return nil, fmt.Errorf("schema: project kind %q must be a catalog kind", key)
		}
		reg.project.Kind = key
	}

	if err := reg.validateReferences(doc.Fields); err != nil {
		return nil, err
	}
	order, err := reg.sortByPrerequisites()
	if err != nil {
		return nil, err
	}
	reg.loadOrder = order
	reg.rank = make(map[model.Kind]int, len(order))
	for idx, key := range order {
		reg.rank[key] = idx
	}
	return reg, nil
}

func compileKind(spec KindSpec) (EntityKind, error) {
	key := model.Kind(strings.TrimSpace(spec.Key))
	if key == "" {
		return EntityKind{}, fmt.Errorf("empty kind key")
	}
	kind := EntityKind{
		Key:           key,
		Title:         strings.TrimSpace(spec.Title),
		IDField:       strings.TrimSpace(spec.IDField),
		Locator:       strings.TrimSpace(spec.Locator),
		ProjectScoped: spec.ProjectScoped,
		ParentField:   strings.TrimSpace(spec.ParentField),
		Fields:        trimAll(spec.Fields),
		DisplayFields: trimAll(spec.DisplayFields),
		Required:      trimAll(spec.Required),
		Prerequisites: toKinds(spec.Prerequisites),
		Dependents:    toKinds(spec.Dependents),
		Labels:        spec.Labels,
	}
	if kind.Title == "" {
		kind.Title = string(key)
	}
	if kind.IDField == "" {
		return EntityKind{}, fmt.Errorf("%s: id field missing", key)
	}
	if kind.Locator == "" {
		return EntityKind{}, fmt.Errorf("%s: locator missing", key)
	}
	if kind.ProjectScoped != strings.Contains(kind.Locator, ProjectPlaceholder) {
		return EntityKind{}, fmt.Errorf("%s: project_scoped must match the %s placeholder in %q", key, ProjectPlaceholder, kind.Locator)
	}
	if len(kind.Fields) == 0 {
		return EntityKind{}, fmt.Errorf("%s: no fields declared", key)
	}

	seen := make(map[string]struct{}, len(kind.Fields))
	for _, name := range kind.Fields {
		if name == "" {
			return EntityKind{}, fmt.Errorf("%s: empty field name", key)
		}
		if _, dup := seen[name]; dup {
			return EntityKind{}, fmt.Errorf("%s: duplicate field %q", key, name)
		}
		seen[name] = struct{}{}
	}
	for _, name := range kind.DisplayFields {
		if !kind.HasField(name) {
			return EntityKind{}, fmt.Errorf("%s: display field %q is not declared", key, name)
		}
	}
	for _, name := range kind.Required {
		if !kind.HasField(name) {
			return EntityKind{}, fmt.Errorf("%s: required field %q is not declared", key, name)
		}
	}
	for name := range kind.Labels {
		if !kind.HasField(name) {
			return EntityKind{}, fmt.Errorf("%s: label for undeclared field %q", key, name)
		}
	}
	if kind.ParentField != "" && !kind.HasField(kind.ParentField) {
		return EntityKind{}, fmt.Errorf("%s: parent field %q is not declared", key, kind.ParentField)
	}
	return kind, nil
}

func (r *Registry) validateReferences(table fields.Table) error {
	for _, key := range r.declared {
		kind := r.kinds[key]
		for _, dep := range kind.Prerequisites {
			if _, ok := r.kinds[dep]; !ok || r.IsCatalog(dep) {
				return fmt.Errorf("schema: %s: prerequisite %q: %w", key, dep, ErrUnknownKind)
			}
		}
		for _, dep := range kind.Dependents {
			if _, ok := r.kinds[dep]; !ok || r.IsCatalog(dep) {
				return fmt.Errorf("schema: %s: dependent %q: %w", key, dep, ErrUnknownKind)
			}
			if dep == key {
				return fmt.Errorf("schema: %s lists itself as a dependent", key)
			}
		}
		if kind.ParentField != "" {
			desc := r.resolver.Resolve(kind.ParentField, key)
			if !desc.IsRelation() {
				return fmt.Errorf("schema: %s: parent field %q must resolve to a relation, got %s", key, kind.ParentField, desc)
			}
		}
	}
	for rawKind := range table.Overrides {
		if _, ok := r.kinds[model.Kind(strings.TrimSpace(rawKind))]; !ok {
			return fmt.Errorf("schema: field overrides for %q: %w", rawKind, ErrUnknownKind)
		}
	}
	for name, desc := range r.resolver.Relations() {
		if _, ok := r.kinds[desc.Target]; !ok {
			return fmt.Errorf("schema: relation %s targets %q: %w", name, desc.Target, ErrUnknownKind)
		}
	}
	return nil
}

// sortByPrerequisites orders kinds so that every prerequisite, and every
// kind listing another as its dependent, comes first. Ties keep declared
// order.
func (r *Registry) sortByPrerequisites() ([]model.Kind, error) {
	declaredIdx := make(map[model.Kind]int, len(r.declared))
	for idx, key := range r.declared {
		declaredIdx[key] = idx
	}
	before := make(map[model.Kind][]model.Kind)
	indegree := make(map[model.Kind]int, len(r.declared))
	addEdge := func(first, then model.Kind) {
		before[first] = append(before[first], then)
		indegree[then]++
	}
	for _, key := range r.declared {
		kind := r.kinds[key]
		for _, dep := range kind.Prerequisites {
			addEdge(dep, key)
		}
		for _, dep := range kind.Dependents {
			addEdge(key, dep)
		}
	}

	var ready []model.Kind
	for _, key := range r.declared {
		if indegree[key] == 0 {
			ready = append(ready, key)
		}
	}
	order := make([]model.Kind, 0, len(r.declared))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return declaredIdx[ready[i]] < declaredIdx[ready[j]] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, then := range before[next] {
			indegree[then]--
			if indegree[then] == 0 {
				ready = append(ready, then)
			}
		}
	}
	if len(order) != len(r.declared) {
		return nil, fmt.Errorf("schema: dependency cycle between kinds")
	}
	return order, nil
}

// Describe returns the kind definition. Unknown kinds are programming errors
// and panic; use Lookup for user input.
func (r *Registry) Describe(kind model.Kind) EntityKind {
	def, ok := r.Lookup(kind)
	if !ok {
		panic(fmt.Sprintf("schema: describe %q: unknown kind", kind))
	}
	return def
}

// Lookup returns the kind definition when declared.
func (r *Registry) Lookup(kind model.Kind) (EntityKind, bool) {
	if r == nil {
		return EntityKind{}, false
	}
	def, ok := r.kinds[kind]
	if !ok {
		return EntityKind{}, false
	}
	return def.clone(), true
}

// Kinds lists kinds in declared order.
func (r *Registry) Kinds() []model.Kind {
	return append([]model.Kind(nil), r.declared...)
}

// Catalog lists the kinds managed outside any project, in declared order.
// They are never part of Kinds or LoadOrder.
func (r *Registry) Catalog() []model.Kind {
	return append([]model.Kind(nil), r.catalog...)
}

// IsCatalog reports whether kind is a catalog kind.
func (r *Registry) IsCatalog(kind model.Kind) bool {
	for _, key := range r.catalog {
		if key == kind {
			return true
		}
	}
	return false
}

// ProjectKind returns the catalog kind listing projects.
func (r *Registry) ProjectKind() (model.Kind, bool) {
	if r.project.Kind == "" {
		return "", false
	}
	return model.Kind(r.project.Kind), true
}

// LoadOrder lists kinds so that prerequisites come first.
func (r *Registry) LoadOrder() []model.Kind {
	return append([]model.Kind(nil), r.loadOrder...)
}

// Prerequisites lists kinds that must load before kind.
func (r *Registry) Prerequisites(kind model.Kind) []model.Kind {
	return r.Describe(kind).Prerequisites
}

// Dependents lists kinds that display references to kind.
func (r *Registry) Dependents(kind model.Kind) []model.Kind {
	return r.Describe(kind).Dependents
}

// IsPrerequisite reports whether some other kind must load after kind.
func (r *Registry) IsPrerequisite(kind model.Kind) bool {
	for _, key := range r.declared {
		for _, dep := range r.kinds[key].Prerequisites {
			if dep == kind {
				return true
			}
		}
	}
	return len(r.kinds[kind].Dependents) > 0
}

// Cascade returns every kind transitively depending on kind, in load order.
func (r *Registry) Cascade(kind model.Kind) []model.Kind {
	seen := map[model.Kind]bool{kind: true}
	queue := append([]model.Kind(nil), r.Describe(kind).Dependents...)
	var out []model.Kind
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, r.kinds[next].Dependents...)
	}
	sort.SliceStable(out, func(i, j int) bool { return r.rank[out[i]] < r.rank[out[j]] })
	return out
}

// Fields returns the field-type resolver compiled from the registry document.
func (r *Registry) Fields() *fields.Resolver {
	return r.resolver
}

// Resolve is shorthand for Fields().Resolve.
func (r *Registry) Resolve(field string, kind model.Kind) fields.Descriptor {
	return r.resolver.Resolve(field, kind)
}

// Project returns the project header locator.
func (r *Registry) Project() ProjectSpec {
	return r.project
}

// ProjectTarget builds the request target of the project header resource.
func (r *Registry) ProjectTarget(project string) (string, error) {
	if r.project.Locator == "" {
		return "", fmt.Errorf("schema: no project locator declared")
	}
	return substitute(r.project.Locator, project)
}

// Target builds the request target for kind under project, addressing a
// single item when id is set.
func (r *Registry) Target(kind model.Kind, project string, id model.ID) (string, error) {
	def, ok := r.Lookup(kind)
	if !ok {
		return "", fmt.Errorf("schema: target %q: %w", kind, ErrUnknownKind)
	}
	target := def.Locator
	if def.ProjectScoped {
		var err error
		if target, err = substitute(target, project); err != nil {
			return "", fmt.Errorf("schema: target %s: %w", kind, err)
		}
	}
	if !id.IsZero() {
		target = strings.TrimRight(target, "/") + "/" + url.PathEscape(id.String())
	}
	return target, nil
}

func substitute(locator, project string) (string, error) {
	project = strings.TrimSpace(project)
	if strings.Contains(locator, ProjectPlaceholder) && project == "" {
		return "", fmt.Errorf("project id required for %q", locator)
	}
	return strings.ReplaceAll(locator, ProjectPlaceholder, url.PathEscape(project)), nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, strings.TrimSpace(value))
	}
	return out
}

func toKinds(values []string) []model.Kind {
	out := make([]model.Kind, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, model.Kind(trimmed))
		}
	}
	return out
}
