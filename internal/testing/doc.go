// Package testing provides test utilities, builders, and fixtures for unit tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating valid test configurations
//   - Fixture: an in-memory provider and state store wired for the full stack
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithZones("us-east-1a", "us-east-1b", "us-east-1c").
//	    Build()
//
//	fx := testing.NewFixture()
//	set := resource.NewSet()
package testing
