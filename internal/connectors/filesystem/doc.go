// Package filesystem loads documentation files from local disk and
// watches them for changes.
//
// Loader walks a file or directory and normalises every supported file
// (.html, .htm, .md, .markdown, .json) into domain.Documents. Watcher
// turns fsnotify events into batches of changed paths for incremental
// index updates.
package filesystem
