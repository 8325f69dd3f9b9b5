// Package provisioning provides shared types for declaring a search stack.
//
// # Subpackages
//
//   - infrastructure/: Network fabric, firewall policy, load balancing layer
//   - storage/: Persistent volume (filesystem, mount targets, access point)
//   - compute/: Cluster, task definition and the single-instance service
//   - dns/: External access record
//
// # Core Types
//
// Context carries configuration, the resource set being declared, state and
// the observer. Phase declares the nodes of one component with Name() and
// Provision() methods. State accumulates the deferred outputs each phase
// publishes for later phases (network ids, volume spec, balancer hostname).
//
// Phases only declare nodes; the reconcile package applies them.
package provisioning
