package document

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
)

// DefaultTheme names the built-in document manifest.
const DefaultTheme = "artefactos"

// Token keys read by the styled template.
const (
	TokenFontFamily       = "font_family"
	TokenFontSize         = "font_size"
	TokenTitleColor       = "title_color"
	TokenSubtitleColor    = "subtitle_color"
	TokenHeaderBackground = "header_background"
	TokenBorderColor      = "border_color"
	TokenRuleColor        = "rule_color"
)

// DefaultManifest returns the built-in theme with its "compact" and "mono"
// variants.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultTheme,
		Version: "1.0.0",
		Tokens: map[string]string{
			TokenFontFamily:       "Arial, sans-serif",
			TokenFontSize:         "10pt",
			TokenTitleColor:       "#006bb3",
			TokenSubtitleColor:    "#004d80",
			TokenHeaderBackground: "#e0e0e0",
			TokenBorderColor:      "#ccc",
			TokenRuleColor:        "#ddd",
		},
		Variants: map[string]theme.Variant{
			"compact": {Tokens: map[string]string{TokenFontSize: "8pt"}},
			"mono": {Tokens: map[string]string{
				TokenTitleColor:       "#000000",
				TokenSubtitleColor:    "#333333",
				TokenHeaderBackground: "#f2f2f2",
			}},
		},
	}
}

// StaticSelector resolves themes from a fixed set of manifests.
type StaticSelector struct {
	mu        sync.RWMutex
	manifests map[string]*theme.Manifest
}

var _ theme.ThemeSelector = (*StaticSelector)(nil)

// NewStaticSelector registers manifests by name. The default manifest is
// always available.
func NewStaticSelector(manifests ...*theme.Manifest) *StaticSelector {
	s := &StaticSelector{manifests: map[string]*theme.Manifest{DefaultTheme: DefaultManifest()}}
	for _, manifest := range manifests {
		if manifest == nil || strings.TrimSpace(manifest.Name) == "" {
			continue
		}
		s.manifests[manifest.Name] = manifest
	}
	return s
}

// Select returns the named manifest; an empty name selects the default. An
// unknown variant is an error, an empty one selects the base tokens.
func (s *StaticSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultTheme
	}
	s.mu.RLock()
	manifest, ok := s.manifests[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("document: unknown theme %q (known: %s)", name, strings.Join(s.names(), ", "))
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("document: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

func (s *StaticSelector) names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.manifests))
	for name := range s.manifests {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// rendererConfig flattens a selection into tokens with variant overrides
// applied, plus their CSS custom property form.
func rendererConfig(selection *theme.Selection) *theme.RendererConfig {
	cfg := &theme.RendererConfig{
		Tokens:  make(map[string]string),
		CSSVars: make(map[string]string),
	}
	if selection == nil || selection.Manifest == nil {
		return cfg
	}
	cfg.Theme = selection.Theme
	cfg.Variant = selection.Variant
	for key, value := range selection.Manifest.Tokens {
		cfg.Tokens[key] = value
	}
	if variant, ok := selection.Manifest.Variants[selection.Variant]; ok {
		for key, value := range variant.Tokens {
			cfg.Tokens[key] = value
		}
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+strings.ReplaceAll(key, "_", "-")] = value
	}
	return cfg
}
