// Package assets persists video assets and their transcode lifecycle state
// in SQLite. Status transitions that guard the orchestrator's invariants
// (single active job per asset, idempotent completion) are expressed as
// conditional updates here rather than read-modify-write sequences.
package assets
