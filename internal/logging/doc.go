// Package logging builds slog loggers with mainline's console and JSON
// output formats and provides shared structured-field helpers.
package logging
