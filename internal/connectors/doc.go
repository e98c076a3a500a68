// Package connectors holds the document sources docseek can index.
// The filesystem connector loads HTML, Markdown and JSON files from a
// local directory and watches them for changes.
package connectors
