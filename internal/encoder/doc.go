// Package encoder wraps the external encoding service API. The orchestrator
// treats the service as a black box with jobs identified by opaque ids; this
// package owns transport concerns so callers only see Job values and a small
// set of sentinel errors.
package encoder
