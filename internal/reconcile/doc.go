// Package reconcile converges a declared resource set against the last
// observed state of a stack.
//
// The Engine runs one goroutine per node. A node waits for the completion of
// its strict dependencies, resolves its inputs (which waits for the outputs
// of the nodes it consumes), then compares input digests with the snapshot to
// decide between same, create, update and replace. Outputs are published as
// soon as the provider returns them; the node only completes once the
// resource is ready. The snapshot is checkpointed after every step.
//
// After the first failure no new provider call starts. Dependents of a
// failed node are skipped with a DependencyError. Deletions of resources that
// are no longer declared run last, in reverse dependency order, and only when
// every create and update succeeded.
package reconcile
