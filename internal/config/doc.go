// Package config loads and validates YAML configuration for the
// bundled tools. Values support ${VAR} environment expansion.
package config
