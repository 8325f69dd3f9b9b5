package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/searchstack/internal/orchestration"
	"github.com/imamik/searchstack/internal/provisioning"
)

// RunFunc performs the deployment, reporting through observer.
type RunFunc func(ctx context.Context, observer provisioning.Observer) (*orchestration.Result, error)

// Run shows the dashboard on the alternate screen while fn runs in the
// background. Quitting the dashboard cancels the context passed to fn; Run
// still waits for fn to return so state is never left half-written.
func Run(ctx context.Context, m Model, fn RunFunc, opts ...tea.ProgramOption) (*orchestration.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	type outcome struct {
		res *orchestration.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := fn(ctx, NewObserver(p.Send))
		done <- outcome{res: res, err: err}
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	_, runErr := p.Run()
	cancel()
	out := <-done

	if runErr != nil {
		return out.res, fmt.Errorf("TUI error: %w", runErr)
	}
	return out.res, out.err
}
