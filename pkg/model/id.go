package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind names a declared entity kind (requisitos, casos_uso, ...).
type Kind string

// String returns the kind key.
func (k Kind) String() string {
	return string(k)
}

// ID is the canonical string form of an item identifier. Backends do not
// preserve numeric typing consistently, so every id and relation value is
// normalised to an ID before comparison.
type ID string

// String returns the raw id text.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool {
	return id == ""
}

// NormalizeID converts a decoded value into its canonical ID. Integral numbers
// render without a fractional part so 1, 1.0, "1" and json.Number("1") all
// compare equal. Nil, blank strings and non-scalar values report false.
func NormalizeID(value any) (ID, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case ID:
		return normalizeText(string(v))
	case string:
		return normalizeText(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return ID(strconv.FormatInt(i, 10)), true
		}
		if f, err := v.Float64(); err == nil {
			return formatFloatID(f)
		}
		return normalizeText(v.String())
	case int:
		return ID(strconv.Itoa(v)), true
	case int32:
		return ID(strconv.FormatInt(int64(v), 10)), true
	case int64:
		return ID(strconv.FormatInt(v, 10)), true
	case uint:
		return ID(strconv.FormatUint(uint64(v), 10)), true
	case uint32:
		return ID(strconv.FormatUint(uint64(v), 10)), true
	case uint64:
		return ID(strconv.FormatUint(v, 10)), true
	case float32:
		return formatFloatID(float64(v))
	case float64:
		return formatFloatID(v)
	default:
		return "", false
	}
}

// SameID reports whether two decoded values identify the same item.
func SameID(a, b any) bool {
	left, ok := NormalizeID(a)
	if !ok {
		return false
	}
	right, ok := NormalizeID(b)
	if !ok {
		return false
	}
	return left == right
}

func normalizeText(raw string) (ID, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	// Numeric strings collapse onto the same form as numbers ("01" stays
	// opaque, "1.0" becomes "1").
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && strings.ContainsAny(trimmed, ".eE") {
		return formatFloatID(f)
	}
	return ID(trimmed), true
}

func formatFloatID(f float64) (ID, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ID(strconv.FormatInt(int64(f), 10)), true
	}
	return ID(strconv.FormatFloat(f, 'f', -1, 64)), true
}
