// Package template defines the engine contract document renderers execute
// their layouts through.
package template
