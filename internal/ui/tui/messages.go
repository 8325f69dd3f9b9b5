// Package tui provides a Bubble Tea dashboard that follows a deployment
// stage by stage while it runs.
package tui

import (
	"github.com/imamik/searchstack/internal/orchestration"
	"github.com/imamik/searchstack/internal/provisioning"
)

// EventMsg carries one provisioning event.
type EventMsg struct {
	Event provisioning.Event
}

// LogMsg carries a free-form log line.
type LogMsg struct {
	Line string
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the run finished.
type DoneMsg struct {
	Result *orchestration.Result
	Err    error
}
