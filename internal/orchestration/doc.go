// Package orchestration coordinates a full deployment of a search stack.
//
// The Orchestrator declares every component into one resource set by
// running the provisioning phases in order, then hands the set to the
// reconciler which converges it against the cloud provider.
//
// # Workflow
//
// The declaration runs these phases:
//  1. Validation - configuration checks before anything is declared
//  2. Infrastructure - network, firewall rules and load balancer
//  3. Storage - file system, mount targets and access point
//  4. Compute - cluster, task definition and service
//  5. DNS - the public CNAME
//
// While the reconciler runs, the orchestrator reports deployment stages
// (network-ready through dns-ready) as each component's nodes complete.
//
// # Usage
//
//	orch := orchestration.New(cfg, orchestration.Dependencies{Provider: provider, Store: store})
//	result, err := orch.Deploy(ctx)
//
// Deploy is idempotent; a second run against unchanged configuration makes
// no provider changes.
package orchestration
