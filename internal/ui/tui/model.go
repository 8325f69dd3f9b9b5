package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/searchstack/internal/orchestration"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/ui/benchmarks"
)

// Display modes.
const (
	ModeApply   = "apply"
	ModeDestroy = "destroy"
)

const maxLogLines = 3

// RowState is the display state of one resource.
type RowState int

const (
	RowPending RowState = iota
	RowActive
	RowDone
	RowUnchanged
	RowFailed
	RowSkipped
)

// ResourceRow is one resource as seen through its events.
type ResourceRow struct {
	Name      string
	Kind      string
	Action    string
	State     RowState
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// StageRow is one deployment stage.
type StageRow struct {
	Stage     orchestration.Stage
	Reached   bool
	ReachedAt time.Time
}

// Model is the Bubble Tea model for the deployment dashboard.
type Model struct {
	Stack  string
	Region string
	Mode   string

	Stages    []StageRow
	Resources []ResourceRow
	index     map[string]int
	Phase     string
	Failed    bool
	Warnings  []string
	Logs      []string

	// ETA
	stageStarted       time.Time
	history            []benchmarks.StageRecord
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width       int
	Height      int
	Err         error
	Done        bool
	Interrupted bool
	Result      *orchestration.Result

	now func() time.Time
}

func newModel(stack, region, mode string) Model {
	now := time.Now()
	return Model{
		Stack:            stack,
		Region:           region,
		Mode:             mode,
		index:            map[string]int{},
		StartTime:        now,
		stageStarted:     now,
		PerformanceScale: 1.0,
		now:              time.Now,
	}
}

// NewApplyModel creates a model that tracks stages and resources.
func NewApplyModel(stack, region string) Model {
	m := newModel(stack, region, ModeApply)
	for _, s := range orchestration.Stages()[1:] {
		m.Stages = append(m.Stages, StageRow{Stage: s})
	}
	return m
}

// NewDestroyModel creates a model that only tracks resources.
func NewDestroyModel(stack, region string) Model {
	return newModel(stack, region, ModeDestroy)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Interrupted = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.handleEvent(msg.Event)

	case LogMsg:
		m.Logs = append(m.Logs, msg.Line)
		if len(m.Logs) > maxLogLines {
			m.Logs = m.Logs[len(m.Logs)-maxLogLines:]
		}

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		m.Result = msg.Result
		m.Err = msg.Err
		m.EstimatedRemaining = 0
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) handleEvent(e provisioning.Event) {
	at := e.Timestamp
	if at.IsZero() {
		at = m.now()
	}

	switch e.Type {
	case provisioning.EventPhaseStarted:
		m.Phase = e.Phase
	case provisioning.EventStageReached:
		m.reachStage(orchestration.Stage(e.Fields["stage"]), at)
	case provisioning.EventValidationWarning:
		m.Warnings = append(m.Warnings, e.Message)

	case provisioning.EventResourceCreating:
		m.start(e, "creating", at)
	case provisioning.EventResourceUpdating:
		m.start(e, "updating", at)
	case provisioning.EventResourceDeleting:
		m.start(e, "deleting", at)

	case provisioning.EventResourceCreated, provisioning.EventResourceUpdated, provisioning.EventResourceDeleted:
		row := m.row(e)
		row.State = RowDone
		if !row.StartedAt.IsZero() {
			row.Duration = at.Sub(row.StartedAt)
		}
	case provisioning.EventResourceExists:
		m.row(e).State = RowUnchanged
	case provisioning.EventResourceFailed:
		row := m.row(e)
		row.State = RowFailed
		row.Err = e.Err
	case provisioning.EventResourceSkipped:
		row := m.row(e)
		row.State = RowSkipped
		row.Err = e.Err
	}
}

func (m *Model) start(e provisioning.Event, action string, at time.Time) {
	row := m.row(e)
	row.State = RowActive
	row.Action = action
	row.StartedAt = at
}

// row returns the row for the event's resource, adding it on first sight.
func (m *Model) row(e provisioning.Event) *ResourceRow {
	if m.index == nil {
		m.index = map[string]int{}
	}
	i, ok := m.index[e.Resource]
	if !ok {
		i = len(m.Resources)
		m.index[e.Resource] = i
		m.Resources = append(m.Resources, ResourceRow{Name: e.Resource})
	}
	if kind := e.Fields["type"]; kind != "" {
		m.Resources[i].Kind = kind
	}
	return &m.Resources[i]
}

func (m *Model) reachStage(s orchestration.Stage, at time.Time) {
	if s == orchestration.StageFailed {
		m.Failed = true
		return
	}
	for i := range m.Stages {
		if m.Stages[i].Stage != s || m.Stages[i].Reached {
			continue
		}
		m.Stages[i].Reached = true
		m.Stages[i].ReachedAt = at
		end := at
		m.history = append(m.history, benchmarks.StageRecord{
			Stage:     string(s),
			StartedAt: m.stageStarted,
			EndedAt:   &end,
		})
		m.stageStarted = at
		return
	}
}

// CurrentStage returns the next stage to be reached, or "" once all are.
func (m Model) CurrentStage() orchestration.Stage {
	for _, s := range m.Stages {
		if !s.Reached {
			return s.Stage
		}
	}
	return ""
}

func (m *Model) updateETA() {
	current := m.CurrentStage()
	if current == "" || m.Done || m.Failed {
		m.EstimatedRemaining = 0
		return
	}
	elapsed := m.now().Sub(m.stageStarted)
	m.PerformanceScale = benchmarks.PerformanceScale(string(current), elapsed, m.history)
	m.EstimatedRemaining = benchmarks.EstimateRemainingWithScale(string(current), elapsed, m.history, m.PerformanceScale)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
