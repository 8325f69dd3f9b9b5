// Package tags provides consistent tagging for provisioned cloud resources.
//
// All tags use the searchstack: prefix and follow a builder pattern for
// constructing tag sets with project, stack, component and manager
// identification. Adapters use the tags to adopt resources that already
// exist when a previous run failed before checkpointing.
package tags
