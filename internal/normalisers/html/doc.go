// Package html provides a Parser for HTML documentation pages.
// It extracts readable text, dropping scripts, styles and markup,
// and decodes entities.
package html
