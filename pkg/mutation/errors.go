package mutation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/schema"
	"github.com/goliatone/go-artefacts/pkg/transport"
)

// ErrValidation is matched by ValidationError.
var ErrValidation = errors.New("mutation: validation failed")

// ValidationError lists every field that blocked a submission. Form holds
// messages that could not be tied to a declared field. When the backend
// rejected the request, Err is the underlying *transport.APIError.
type ValidationError struct {
	Kind   model.Kind
	Fields map[string][]string
	Form   []string
	Err    error
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+len(e.Form))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, strings.Join(e.Fields[name], "; ")))
	}
	parts = append(parts, e.Form...)
	return fmt.Sprintf("mutation: %s: invalid input: %s", e.Kind, strings.Join(parts, ", "))
}

// Is reports ErrValidation equivalence.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Missing lists the offending field names in sorted order.
func (e *ValidationError) Missing() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0 && len(e.Form) == 0
}

// fromAPIError maps backend validation details (for example "body.nombre")
// onto the kind's declared fields. It returns nil when apiErr carries no
// field details.
func fromAPIError(def schema.EntityKind, apiErr *transport.APIError) *ValidationError {
	if apiErr == nil || len(apiErr.Fields) == 0 {
		return nil
	}
	declared := make(map[string]struct{}, len(def.Fields))
	for _, name := range def.Fields {
		declared[name] = struct{}{}
	}

	out := &ValidationError{Kind: def.Key, Err: apiErr}
	for rawPath, messages := range apiErr.Fields {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		field, formLevel := mapErrorPath(rawPath, declared)
		if formLevel {
			out.Form = append(out.Form, normalized...)
			continue
		}
		for _, message := range normalized {
			out.add(field, message)
		}
	}
	out.Form = normalizeMessages(out.Form)
	if out.empty() {
		return nil
	}
	return out
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mapErrorPath finds the declared field named by a backend location path.
// Wrapper segments ("body", "payload", ...) and list indexes are ignored.
func mapErrorPath(raw string, declared map[string]struct{}) (string, bool) {
	if isFormLevelKey(raw) {
		return "", true
	}
	segments := parsePathSegments(raw)
	for _, segment := range stripNumericSegments(dropWrapperSegments(segments)) {
		if _, ok := declared[segment]; ok {
			return segment, false
		}
	}
	return "", true
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if segment := strings.TrimSpace(part); segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"body":    {},
		"request": {},
		"payload": {},
		"data":    {},
		"query":   {},
		"path":    {},
	}
	out := segments
	for len(out) > 0 {
		if _, ok := wrappers[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "body", "__root__", "__all__", "non_field_errors":
		return true
	default:
		return false
	}
}
