// Package async provides utilities for parallel task execution.
//
// It is used by the reconciler to run independent resource steps, such as
// the per-zone mount targets or the deletes of one dependency level,
// concurrently.
package async
