package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload reports a backend payload that is not an item or a
// sequence of items.
var ErrMalformedPayload = errors.New("model: malformed payload")

// Item maps field names to decoded values. Exactly one key holds the item's
// identifier; the owning kind names which.
type Item map[string]any

// Get returns the raw value for field.
func (i Item) Get(field string) (any, bool) {
	if i == nil {
		return nil, false
	}
	value, ok := i[field]
	return value, ok
}

// ID returns the canonical identifier stored under idField.
func (i Item) ID(idField string) (ID, bool) {
	value, ok := i.Get(idField)
	if !ok {
		return "", false
	}
	return NormalizeID(value)
}

// Text renders field as display text. Missing and null values render as "".
func (i Item) Text(field string) string {
	value, ok := i.Get(field)
	if !ok {
		return ""
	}
	return FormatValue(value)
}

// Clone returns a shallow copy; item values are JSON scalars.
func (i Item) Clone() Item {
	if i == nil {
		return nil
	}
	out := make(Item, len(i))
	for key, value := range i {
		out[key] = value
	}
	return out
}

// Equal reports whether both items hold the same fields with the same
// rendered values.
func (i Item) Equal(other Item) bool {
	if len(i) != len(other) {
		return false
	}
	for key, value := range i {
		otherValue, ok := other[key]
		if !ok {
			return false
		}
		if (value == nil) != (otherValue == nil) {
			return false
		}
		if FormatValue(value) != FormatValue(otherValue) {
			return false
		}
	}
	return true
}

// FormatValue renders a decoded scalar as text without float noise.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case ID:
		return string(v)
	case json.Number:
		if id, ok := NormalizeID(v); ok {
			return id.String()
		}
		return v.String()
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		if id, ok := NormalizeID(v); ok {
			return id.String()
		}
		return fmt.Sprint(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}

// DecodeItems decodes a JSON array of objects. Numbers decode as
// json.Number.
func DecodeItems(data []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	items := make([]Item, 0, len(raw))
	for idx, entry := range raw {
		if entry == nil {
			return nil, fmt.Errorf("%w: element %d is null", ErrMalformedPayload, idx)
		}
		items = append(items, Item(entry))
	}
	return items, nil
}

// DecodeItem decodes a single JSON object.
func DecodeItem(data []byte) (Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return Item(raw), nil
}

// IsBlank reports whether value is nil or an all-whitespace string.
func IsBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
