package tui

import (
	"fmt"
	"maps"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/searchstack/internal/provisioning"
)

// Observer forwards provisioning events to a running program. It is safe
// for concurrent use.
type Observer struct {
	send   func(tea.Msg)
	fields map[string]string
}

// NewObserver returns an observer that delivers messages through send,
// typically (*tea.Program).Send.
func NewObserver(send func(tea.Msg)) *Observer {
	return &Observer{send: send}
}

// Printf implements provisioning.Logger.
func (o *Observer) Printf(format string, v ...any) {
	o.send(LogMsg{Line: fmt.Sprintf(format, v...)})
}

// Event implements provisioning.Observer.
func (o *Observer) Event(e provisioning.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if len(o.fields) > 0 {
		merged := maps.Clone(o.fields)
		maps.Copy(merged, e.Fields)
		e.Fields = merged
	}
	o.send(EventMsg{Event: e})
}

// Progress implements provisioning.Observer.
func (o *Observer) Progress(phase string, current, total int) {
	o.Event(provisioning.Event{
		Type:  provisioning.EventProgress,
		Phase: phase,
		Fields: map[string]string{
			"current": strconv.Itoa(current),
			"total":   strconv.Itoa(total),
		},
	})
}

// WithFields implements provisioning.Observer.
func (o *Observer) WithFields(fields map[string]string) provisioning.Observer {
	merged := maps.Clone(o.fields)
	if merged == nil {
		merged = map[string]string{}
	}
	maps.Copy(merged, fields)
	return &Observer{send: o.send, fields: merged}
}

var _ provisioning.Observer = (*Observer)(nil)
