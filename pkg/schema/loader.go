package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-artefacts/pkg/fields"
)

// Document is the on-disk layout of a registry file.
type Document struct {
	Project ProjectSpec `json:"project" yaml:"project"`
	Kinds   []KindSpec  `json:"kinds" yaml:"kinds"`
	// Catalog kinds live outside any project (the project list itself).
	Catalog []KindSpec   `json:"catalog" yaml:"catalog"`
	Fields  fields.Table `json:"fields" yaml:"fields"`
}

// ProjectSpec locates the project header resource.
type ProjectSpec struct {
	Locator    string `json:"locator" yaml:"locator"`
	TitleField string `json:"title_field" yaml:"title_field"`
	// Kind names the catalog kind listing projects, when declared.
	Kind string `json:"kind" yaml:"kind"`
}

// KindSpec is the declarative form of an EntityKind.
type KindSpec struct {
	Key           string            `json:"key" yaml:"key"`
	Title         string            `json:"title" yaml:"title"`
	IDField       string            `json:"id_field" yaml:"id_field"`
	Locator       string            `json:"locator" yaml:"locator"`
	ProjectScoped bool              `json:"project_scoped" yaml:"project_scoped"`
	ParentField   string            `json:"parent_field" yaml:"parent_field"`
	Fields        []string          `json:"fields" yaml:"fields"`
	DisplayFields []string          `json:"display_fields" yaml:"display_fields"`
	Required      []string          `json:"required" yaml:"required"`
	Prerequisites []string          `json:"prerequisites" yaml:"prerequisites"`
	Dependents    []string          `json:"dependents" yaml:"dependents"`
	Labels        map[string]string `json:"labels" yaml:"labels"`
}

// LoadFS walks fsys and merges every YAML/JSON registry document into one
// registry. Kinds keep the order in which files and entries are visited.
func LoadFS(fsys fs.FS) (*Registry, error) {
	if fsys == nil {
		return nil, fmt.Errorf("schema: nil filesystem")
	}

	var merged Document
	merged.Fields.Defaults = make(map[string]fields.Spec)
	merged.Fields.Overrides = make(map[string]map[string]fields.Spec)

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDocument(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}
		return mergeDocument(&merged, doc, path)
	})
	if err != nil {
		return nil, err
	}
	if len(merged.Kinds) == 0 {
		return nil, fmt.Errorf("schema: no kinds declared")
	}
	return New(merged)
}

// Parse decodes a single YAML or JSON document into a registry.
func Parse(data []byte) (*Registry, error) {
	doc, err := parseDocument(data, "document.yaml")
	if err != nil {
		return nil, err
	}
	return New(doc)
}

func parseDocument(data []byte, path string) (Document, error) {
	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("schema: parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("schema: parse %s: %w", path, err)
		}
	}
	return doc, nil
}

func mergeDocument(dst *Document, src Document, path string) error {
	if src.Project.Locator != "" {
		if dst.Project.Locator != "" {
			return fmt.Errorf("schema: file %s redeclares the project locator", path)
		}
		dst.Project = src.Project
	}
	dst.Kinds = append(dst.Kinds, src.Kinds...)
	dst.Catalog = append(dst.Catalog, src.Catalog...)
	for name, spec := range src.Fields.Defaults {
		if _, exists := dst.Fields.Defaults[name]; exists {
			return fmt.Errorf("schema: duplicate field default %q (file %s)", name, path)
		}
		dst.Fields.Defaults[name] = spec
	}
	for kind, entries := range src.Fields.Overrides {
		target, ok := dst.Fields.Overrides[kind]
		if !ok {
			target = make(map[string]fields.Spec, len(entries))
			dst.Fields.Overrides[kind] = target
		}
		for name, spec := range entries {
			if _, exists := target[name]; exists {
				return fmt.Errorf("schema: duplicate field override %s.%s (file %s)", kind, name, path)
			}
			target[name] = spec
		}
	}
	return nil
}

func isDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
