// Package model defines the value types shared by the section engine: items
// as decoded from the backend, canonical identifiers, and the Section that
// pairs an entity kind with its loaded items. Items are plain field maps so the
// engine never hardcodes per-kind structs; JSON numbers are kept as
// json.Number so values round-trip through the transport without float
// formatting drift.
package model
