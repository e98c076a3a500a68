// Package file loads engine settings from a local config file.
//
// TOML, YAML and JSON files are supported. Values are flattened to
// dot-notation keys and read through typed section getters, then mapped
// onto domain.Settings with Apply.
package file
