// Package form turns an entity kind and, optionally, one of its items into an
// ordered set of editable fields. Widgets come from the field resolver;
// relation options come from the loaded Sections.
package form
