// Package state persists the observed state of a stack between runs.
//
// A [Snapshot] records, for every resource the reconciler has converged,
// its provider ID, masked inputs, outputs and input digests. Snapshots are
// checkpointed after every step, so a failed run leaves an accurate record
// of what exists and the next run converges from there.
//
// Three backends implement [Store]: a YAML file per stack, a bbolt database
// and an S3 object.
package state
