package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/searchstack/internal/ui/benchmarks"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)

	if m.Mode == ModeApply {
		renderProgressBar(&b, m)
		renderStages(&b, m)
	}

	renderResources(&b, m)

	if len(m.Warnings) > 0 {
		renderWarnings(&b, m)
	}

	if failed := m.failedRows(); len(failed) > 0 {
		renderErrors(&b, failed)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("searchstack %s: %s", m.Mode, m.Stack)
	if m.Region != "" {
		title += fmt.Sprintf(" (%s)", m.Region)
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done:
		status += readyStyle.Render("Done")
	case m.Failed:
		status += failedStyle.Render("Failed")
	case m.Mode == ModeApply && m.CurrentStage() != "":
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(string(m.CurrentStage()))
	case m.Phase != "":
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(m.Phase)
	default:
		status += dimStyle.Render("Starting...")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	pct := int(progress * 100)
	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, pct, eta)
}

func renderStages(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Stages"))
	b.WriteString("\n")

	current := m.CurrentStage()
	for _, s := range m.Stages {
		var icon string
		var style styleFunc
		switch {
		case s.Reached:
			icon, style = checkMark, sf(readyStyle)
		case s.Stage == current && m.Failed:
			icon, style = crossMark, sf(failedStyle)
		case s.Stage == current && !m.Done:
			icon, style = currentSpinner(m.SpinnerFrame), sf(activeStyle)
		default:
			icon, style = pending, sf(dimStyle)
		}
		fmt.Fprintf(b, "    %s %s\n", style(icon), style(string(s.Stage)))
	}
}

func renderResources(b *strings.Builder, m Model) {
	if len(m.Resources) == 0 {
		return
	}
	b.WriteString(sectionStyle.Render("  Resources"))
	b.WriteString("\n")

	unchanged := 0
	for _, r := range m.Resources {
		if r.State == RowUnchanged {
			unchanged++
			continue
		}
		icon, style := rowIcon(r.State, m.SpinnerFrame)
		extra := ""
		switch r.State {
		case RowActive:
			extra = sf(activeStyle)(r.Action)
			if !r.StartedAt.IsZero() {
				extra += " " + dimStyle.Render(formatDuration(m.now().Sub(r.StartedAt)))
			}
		case RowDone:
			extra = dimStyle.Render(formatDuration(r.Duration))
		case RowSkipped:
			extra = dimStyle.Render("skipped")
		}
		fmt.Fprintf(b, "    %s %-24s %s %s\n", style(icon), style(r.Name), dimStyle.Render(r.Kind), extra)
	}
	if unchanged > 0 {
		fmt.Fprintf(b, "    %s %s\n", dimStyle.Render(sameMark), dimStyle.Render(fmt.Sprintf("%d unchanged", unchanged)))
	}
}

func renderWarnings(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Warnings"))
	b.WriteString("\n")
	for _, w := range m.Warnings {
		fmt.Fprintf(b, "    %s %s\n", warningStyle.Render(warnMark), w)
	}
}

func renderErrors(b *strings.Builder, failed []ResourceRow) {
	b.WriteString(sectionStyle.Render("  Recent Errors"))
	b.WriteString("\n")

	// Show last 3 errors
	start := max(len(failed)-3, 0)
	for _, r := range failed[start:] {
		fmt.Fprintf(b, "    %s [%s] %s\n",
			failedStyle.Render(crossMark), r.Name, dimStyle.Render(fmt.Sprint(r.Err)))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	parts := []string{fmt.Sprintf("elapsed: %s", formatDuration(m.now().Sub(m.StartTime)))}
	if n := len(m.Logs); n > 0 {
		parts = append(parts, m.Logs[n-1])
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s  |  q: quit", strings.Join(parts, "  |  "))))
	b.WriteString("\n")
}

func (m Model) failedRows() []ResourceRow {
	var out []ResourceRow
	for _, r := range m.Resources {
		if r.State == RowFailed {
			out = append(out, r)
		}
	}
	return out
}

// Helper functions

func rowIcon(state RowState, frame int) (string, styleFunc) {
	switch state {
	case RowDone:
		return checkMark, sf(readyStyle)
	case RowFailed:
		return crossMark, sf(failedStyle)
	case RowActive:
		return currentSpinner(frame), sf(activeStyle)
	case RowUnchanged:
		return sameMark, sf(dimStyle)
	case RowSkipped:
		return warnMark, sf(warningStyle)
	default:
		return pending, sf(dimStyle)
	}
}

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

// calculateProgress weights each reached stage by its expected duration.
func calculateProgress(m Model) float64 {
	if m.Done && m.Err == nil {
		return 1.0
	}
	var total, reached float64
	for _, s := range m.Stages {
		w := stageWeight(string(s.Stage))
		total += w
		if s.Reached {
			reached += w
		}
	}
	if total == 0 {
		return 0
	}
	return min(reached/total, 1.0)
}

// stageWeight is the expected duration of a stage in seconds. Stages without
// a benchmark, such as complete, count as one second.
func stageWeight(stage string) float64 {
	if secs, ok := benchmarks.DefaultTimings[stage]; ok {
		return float64(secs)
	}
	return 1
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
