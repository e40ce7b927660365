package tui

import "strings"

// State carries values and field errors between prompting attempts, so a
// rejected submission can be retried without retyping.
type State struct {
	values map[string]any
	errors map[string][]string
}

// NewState seeds the state with prefilled values and errors.
func NewState(prefill map[string]any, errs map[string][]string) *State {
	s := &State{
		values: make(map[string]any, len(prefill)),
		errors: make(map[string][]string, len(errs)),
	}
	for k, v := range prefill {
		s.values[k] = v
	}
	for k, v := range errs {
		s.errors[k] = append([]string(nil), v...)
	}
	return s
}

// Value returns the collected value for name.
func (s *State) Value(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	value, ok := s.values[name]
	return value, ok
}

// Set records value for name and clears its errors.
func (s *State) Set(name string, value any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[name] = value
	delete(s.errors, name)
}

// SetErrors replaces the error map, typically from a rejected submission.
func (s *State) SetErrors(errs map[string][]string) {
	s.errors = make(map[string][]string, len(errs))
	for k, v := range errs {
		s.errors[k] = append([]string(nil), v...)
	}
}

// ErrorsFor returns the messages attached to name.
func (s *State) ErrorsFor(name string) []string {
	if s == nil {
		return nil
	}
	return s.errors[name]
}

// Values returns a copy of the collected values.
func (s *State) Values() map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func defaultText(value any) string {
	if value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return text
	}
	return strings.TrimSpace(formatValue(value))
}
