// Package document renders export tables into downloadable files: a
// paginated plain-text report and a styled Word-compatible HTML document.
package document
