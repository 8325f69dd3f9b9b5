// Package config defines the deployment configuration of a search stack.
//
// The [Config] struct is built once at the entry point by [Load], which reads
// the YAML file, overlays secrets from the environment and applies defaults.
// It is then passed explicitly to every component; no component reads
// process state on its own. [Config.Validate] reports every problem at once
// so that a run aborts before any resource is declared.
package config
