package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/searchstack/internal/orchestration"
	"github.com/imamik/searchstack/internal/provisioning"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testModel() Model {
	m := NewApplyModel("prod", "eu-west-1")
	m.StartTime = t0
	m.stageStarted = t0
	m.now = func() time.Time { return t0.Add(30 * time.Second) }
	return m
}

func stageEvent(stage orchestration.Stage, at time.Time) EventMsg {
	return EventMsg{Event: provisioning.Event{
		Type:      provisioning.EventStageReached,
		Timestamp: at,
		Fields:    map[string]string{"stage": string(stage)},
	}}
}

func resourceEvent(typ provisioning.EventType, name string, at time.Time) EventMsg {
	return EventMsg{Event: provisioning.Event{
		Type:      typ,
		Resource:  name,
		Timestamp: at,
		Fields:    map[string]string{"type": "aws:ec2:Vpc"},
	}}
}

func update(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{3600 * time.Second, "1h0m"},
		{3661 * time.Second, "1h1m"},
	}
	for _, tt := range tests {
		got := formatDuration(tt.d)
		if got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestNewApplyModel_Stages(t *testing.T) {
	m := NewApplyModel("prod", "eu-west-1")
	if len(m.Stages) != 6 {
		t.Fatalf("expected 6 stages, got %d", len(m.Stages))
	}
	if m.Stages[0].Stage != orchestration.StageNetworkReady {
		t.Errorf("expected first stage network-ready, got %s", m.Stages[0].Stage)
	}
	if m.CurrentStage() != orchestration.StageNetworkReady {
		t.Errorf("expected current stage network-ready, got %s", m.CurrentStage())
	}
}

func TestModel_StageReached(t *testing.T) {
	m := update(testModel(),
		stageEvent(orchestration.StageNetworkReady, t0.Add(20*time.Second)),
		stageEvent(orchestration.StageStorageReady, t0.Add(110*time.Second)),
	)

	if !m.Stages[0].Reached || !m.Stages[1].Reached {
		t.Fatal("expected first two stages reached")
	}
	if m.CurrentStage() != orchestration.StageBalancerReady {
		t.Errorf("expected balancer-ready next, got %s", m.CurrentStage())
	}
	if len(m.history) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(m.history))
	}
	if got := m.history[1].EndedAt.Sub(m.history[1].StartedAt); got != 90*time.Second {
		t.Errorf("expected storage stage to take 90s, got %v", got)
	}

	// Reaching a stage twice changes nothing.
	m = update(m, stageEvent(orchestration.StageStorageReady, t0.Add(200*time.Second)))
	if len(m.history) != 2 {
		t.Errorf("expected duplicate stage to be ignored")
	}
}

func TestModel_StageFailed(t *testing.T) {
	m := update(testModel(), stageEvent(orchestration.StageFailed, t0))
	if !m.Failed {
		t.Fatal("expected model to be failed")
	}
	m.updateETA()
	if m.EstimatedRemaining != 0 {
		t.Errorf("expected no ETA after failure, got %v", m.EstimatedRemaining)
	}
	if !strings.Contains(m.View(), "Failed") {
		t.Error("expected view to show failure")
	}
}

func TestModel_ResourceLifecycle(t *testing.T) {
	m := update(testModel(),
		resourceEvent(provisioning.EventResourceCreating, "vpc", t0),
		resourceEvent(provisioning.EventResourceCreated, "vpc", t0.Add(5*time.Second)),
		resourceEvent(provisioning.EventResourceExists, "subnet-a", t0),
		resourceEvent(provisioning.EventResourceDeleting, "subnet-b", t0),
	)

	if len(m.Resources) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(m.Resources))
	}
	vpc := m.Resources[0]
	if vpc.State != RowDone || vpc.Duration != 5*time.Second || vpc.Kind != "aws:ec2:Vpc" {
		t.Errorf("unexpected vpc row: %+v", vpc)
	}
	if m.Resources[1].State != RowUnchanged {
		t.Errorf("expected subnet-a unchanged, got %v", m.Resources[1].State)
	}
	if m.Resources[2].State != RowActive || m.Resources[2].Action != "deleting" {
		t.Errorf("unexpected subnet-b row: %+v", m.Resources[2])
	}

	view := m.View()
	if !strings.Contains(view, "1 unchanged") {
		t.Error("expected unchanged rows to be collapsed")
	}
	if !strings.Contains(view, "deleting") {
		t.Error("expected active action in view")
	}
}

func TestModel_FailedResourceShowsError(t *testing.T) {
	failed := resourceEvent(provisioning.EventResourceFailed, "mount-target-a", t0)
	failed.Event.Err = errors.New("quota exceeded")
	skipped := resourceEvent(provisioning.EventResourceSkipped, "access-point", t0)

	m := update(testModel(), failed, skipped)

	if m.Resources[0].State != RowFailed || m.Resources[1].State != RowSkipped {
		t.Fatalf("unexpected rows: %+v", m.Resources)
	}
	view := m.View()
	if !strings.Contains(view, "Recent Errors") || !strings.Contains(view, "quota exceeded") {
		t.Error("expected error section with the failure")
	}
}

func TestModel_WarningsAndLogs(t *testing.T) {
	warn := EventMsg{Event: provisioning.Event{Type: provisioning.EventValidationWarning, Message: "single zone"}}
	m := update(testModel(), warn, LogMsg{Line: "one"}, LogMsg{Line: "two"}, LogMsg{Line: "three"}, LogMsg{Line: "four"})

	if len(m.Logs) != maxLogLines || m.Logs[0] != "two" {
		t.Errorf("expected last %d log lines, got %v", maxLogLines, m.Logs)
	}
	view := m.View()
	if !strings.Contains(view, "single zone") {
		t.Error("expected warning in view")
	}
	if !strings.Contains(view, "four") {
		t.Error("expected latest log line in footer")
	}
}

func TestModel_ETA(t *testing.T) {
	m := testModel()
	m.updateETA()

	// 30s into network-ready: (20s overrun is folded into the scale)
	if m.EstimatedRemaining <= 0 {
		t.Errorf("expected positive ETA, got %v", m.EstimatedRemaining)
	}
	if m.PerformanceScale != 1.5 {
		t.Errorf("expected scale 1.5, got %v", m.PerformanceScale)
	}
}

func TestModel_KeyQuit(t *testing.T) {
	next, cmd := testModel().Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !next.(Model).Interrupted {
		t.Error("expected model to be interrupted")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
}

func TestModel_Done(t *testing.T) {
	res := &orchestration.Result{Stack: "prod"}
	next, cmd := testModel().Update(DoneMsg{Result: res})
	m := next.(Model)
	if !m.Done || m.Result != res {
		t.Fatal("expected done model with result")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	if calculateProgress(m) != 1.0 {
		t.Errorf("expected full progress, got %v", calculateProgress(m))
	}
}

func TestCalculateProgress_WeightsStages(t *testing.T) {
	m := update(testModel(), stageEvent(orchestration.StageNetworkReady, t0))
	// network 20 of 20+90+180+120+5+1
	want := 20.0 / 416.0
	if got := calculateProgress(m); got < want-0.001 || got > want+0.001 {
		t.Errorf("expected ~%v, got %v", want, got)
	}
}

func TestDestroyModel_HasNoStages(t *testing.T) {
	m := NewDestroyModel("prod", "eu-west-1")
	if len(m.Stages) != 0 {
		t.Fatalf("expected no stages, got %d", len(m.Stages))
	}
	if strings.Contains(m.View(), "Stages") {
		t.Error("destroy view must not render stages")
	}
}

func TestObserver_MergesFields(t *testing.T) {
	var mu sync.Mutex
	var got []tea.Msg
	send := func(msg tea.Msg) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
	}

	obs := NewObserver(send).WithFields(map[string]string{"stack": "prod"})
	obs.Event(provisioning.Event{Type: provisioning.EventResourceCreated, Fields: map[string]string{"type": "aws:ec2:Vpc"}})
	obs.Printf("hello %s", "world")
	obs.Progress("apply", 1, 2)

	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	ev := got[0].(EventMsg).Event
	if ev.Fields["stack"] != "prod" || ev.Fields["type"] != "aws:ec2:Vpc" {
		t.Errorf("unexpected fields: %v", ev.Fields)
	}
	if ev.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if got[1].(LogMsg).Line != "hello world" {
		t.Errorf("unexpected log line: %v", got[1])
	}
	if got[2].(EventMsg).Event.Fields["total"] != "2" {
		t.Errorf("unexpected progress fields: %v", got[2])
	}
}

func TestRun_ReturnsResult(t *testing.T) {
	want := &orchestration.Result{Stack: "prod", Stage: orchestration.StageComplete}

	res, err := Run(context.Background(), NewApplyModel("prod", "eu-west-1"),
		func(_ context.Context, obs provisioning.Observer) (*orchestration.Result, error) {
			provisioning.LogStageReached(obs, "prod", string(orchestration.StageNetworkReady))
			return want, nil
		},
		tea.WithInput(nil), tea.WithOutput(io.Discard),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != want {
		t.Errorf("expected result to be passed through")
	}
}

func TestRun_ReturnsRunError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), NewDestroyModel("prod", "eu-west-1"),
		func(context.Context, provisioning.Observer) (*orchestration.Result, error) {
			return nil, boom
		},
		tea.WithInput(nil), tea.WithOutput(io.Discard),
	)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}
