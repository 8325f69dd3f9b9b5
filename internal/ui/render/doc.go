// Package render prints plans, run results and stack outputs for the CLI.
//
// Output is styled with lipgloss when it goes to a terminal and plain
// otherwise, so redirected output stays readable in logs and pipes.
package render
