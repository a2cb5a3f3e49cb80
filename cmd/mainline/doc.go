// Command mainline is the operator CLI for the transcode orchestrator. It
// runs one-shot submission and reconciliation passes, inspects asset state,
// and manages configuration. The long-running scheduler lives in the
// mainlined daemon.
package main
