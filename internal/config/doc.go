// Package config loads, normalizes, and validates mainline's TOML
// configuration.
package config
