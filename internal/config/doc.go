// Package config loads bridge-wide configuration: a YAML file of named
// workspace configs plus bridge settings, overridable by environment
// variables for the single-workspace launch case, falling back to
// auto-detecting a workspace from the current directory when neither is
// given.
package config
