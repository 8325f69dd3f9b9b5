// Package naming derives the physical names of provisioned cloud resources.
//
// All names start with the "<project>-<stack>" prefix so resources of one
// stack are easy to identify, adopt on re-runs and clean up.
package naming
