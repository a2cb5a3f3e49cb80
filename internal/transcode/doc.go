// Package transcode coordinates batch submission and reconciliation of
// encoding jobs. The asset store is the single source of truth; the
// orchestrator only moves assets between states through the store's guarded
// transitions, so concurrent passes and restarts stay safe.
package transcode
