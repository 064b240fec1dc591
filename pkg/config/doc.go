// Package config loads and validates the engine configuration.
//
// Configuration is read from a YAML file, filled in with defaults, and
// optionally overridden by GANYMEDE_* environment variables so secrets
// such as the forge token never have to live in the file.
package config
