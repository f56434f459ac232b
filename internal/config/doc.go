// Package config loads packguard configuration from game-local and global
// YAML files. It is internal; CLI code applies precedence (flags, then the
// local file, then the global file) and maps the result into engine and
// monitor configuration.
package config
