// Package fields resolves which input widget applies to a field of a given
// entity kind. A Descriptor is a small tagged variant (text, number, textarea,
// datetime, enum, relation) and the Resolver is a pure, total lookup over a
// declarative table: an exact field+kind override wins, then a field-name
// default, then plain text.
package fields
