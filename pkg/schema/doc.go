// Package schema holds the declarative description of every entity kind a
// workspace manages: fields, display fields, identifier, parent field,
// data-source locator, required fields and the static dependency graph used
// for load ordering and cascade reloads.
//
// The default registry is decoded from an embedded YAML document. LoadFS
// accepts alternative documents with the same layout.
package schema
