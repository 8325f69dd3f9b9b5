// Package wizard provides an interactive configuration wizard for searchstack.
//
// It uses charmbracelet/huh forms to collect the deployment identity, the
// public DNS binding and the workload image, then writes a searchstack.yaml.
// Secrets are never written; the generated header tells the user which
// environment variables to export instead.
package wizard
