// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Environment variables prefixed with ALERTS_ override file values, so
// secrets never need to live in the file.
package config
