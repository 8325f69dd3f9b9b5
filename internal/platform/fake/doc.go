// Package fake provides an in-memory resource provider.
//
// The provider records every call it receives, synthesizes identifiers and
// outputs the way the cloud adapters do, and can be told to fail specific
// operations. It backs the reconciler, component and orchestrator tests.
package fake
