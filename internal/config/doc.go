// Package config reads the optional YAML configuration file and resolves the
// XDG locations the application uses by default.
package config
