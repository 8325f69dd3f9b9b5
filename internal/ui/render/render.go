package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/imamik/searchstack/internal/orchestration"
	"github.com/imamik/searchstack/internal/reconcile"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
)

// opSymbols mirror the usual plan notation.
var opSymbols = map[reconcile.Op]string{
	reconcile.OpCreate:  "+",
	reconcile.OpUpdate:  "~",
	reconcile.OpReplace: "-/+",
	reconcile.OpDelete:  "-",
	reconcile.OpSame:    "=",
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes styled output.
type Printer struct {
	w       io.Writer
	title   lipgloss.Style
	dim     lipgloss.Style
	ops     map[reconcile.Op]lipgloss.Style
	failed  lipgloss.Style
	skipped lipgloss.Style
	link    lipgloss.Style
	// Verbose also lists unchanged resources.
	Verbose bool
}

// New returns a printer for w. Colors are only used when w is a terminal.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:     w,
		title: r.NewStyle().Bold(true),
		dim:   r.NewStyle().Foreground(colorDim),
		ops: map[reconcile.Op]lipgloss.Style{
			reconcile.OpCreate:  r.NewStyle().Foreground(colorGreen),
			reconcile.OpUpdate:  r.NewStyle().Foreground(colorYellow),
			reconcile.OpReplace: r.NewStyle().Foreground(colorYellow).Bold(true),
			reconcile.OpDelete:  r.NewStyle().Foreground(colorRed),
			reconcile.OpSame:    r.NewStyle().Foreground(colorDim),
		},
		failed:  r.NewStyle().Foreground(colorRed).Bold(true),
		skipped: r.NewStyle().Foreground(colorDim),
		link:    r.NewStyle().Foreground(colorBlue).Underline(true),
	}
}

// Stdout returns a printer for standard output.
func Stdout() *Printer {
	return New(os.Stdout)
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

// Summary prints every step of a run followed by the totals.
func (p *Printer) Summary(sum *reconcile.Summary) {
	if sum == nil {
		return
	}
	heading := "Changes"
	if sum.DryRun {
		heading = "Plan"
	}
	p.printf("%s\n", p.title.Render(fmt.Sprintf("%s for stack %s", heading, sum.Stack)))

	for _, st := range sum.Steps {
		if st.Op == reconcile.OpSame && st.Status != reconcile.StatusFailed && !p.Verbose {
			continue
		}
		p.printf("%s\n", p.step(st))
	}

	p.printf("%s\n", p.totals(sum))
}

func (p *Printer) step(st reconcile.Step) string {
	symbol := opSymbols[st.Op]
	if symbol == "" {
		symbol = "?"
	}
	line := fmt.Sprintf("  %s %s %s", p.ops[st.Op].Render(fmt.Sprintf("%-3s", symbol)), st.Name, p.dim.Render("("+string(st.Kind)+")"))
	if len(st.ChangedKeys) > 0 {
		line += p.dim.Render(" changed: " + strings.Join(st.ChangedKeys, ", "))
	}
	if len(st.UnknownKeys) > 0 {
		line += p.dim.Render(" known after apply: " + strings.Join(st.UnknownKeys, ", "))
	}
	switch st.Status {
	case reconcile.StatusFailed:
		line += " " + p.failed.Render(fmt.Sprintf("FAILED: %v", st.Err))
	case reconcile.StatusSkipped:
		line += " " + p.skipped.Render("skipped")
	}
	return line
}

func (p *Printer) totals(sum *reconcile.Summary) string {
	parts := []string{
		fmt.Sprintf("%d to create", sum.Count(reconcile.OpCreate)),
		fmt.Sprintf("%d to update", sum.Count(reconcile.OpUpdate)),
		fmt.Sprintf("%d to replace", sum.Count(reconcile.OpReplace)),
		fmt.Sprintf("%d to delete", sum.Count(reconcile.OpDelete)),
		fmt.Sprintf("%d unchanged", sum.Count(reconcile.OpSame)),
	}
	line := strings.Join(parts, ", ")
	if n := len(sum.Failed()); n > 0 {
		line += ", " + p.failed.Render(fmt.Sprintf("%d failed", n))
	}
	if n := len(sum.Skipped()); n > 0 {
		line += fmt.Sprintf(", %d skipped", n)
	}
	return line + "."
}

// Result prints a run summary, the stages reached and the endpoints.
func (p *Printer) Result(res *orchestration.Result) {
	if res == nil {
		return
	}
	p.Summary(res.Summary)
	if len(res.Stages) > 1 {
		stages := make([]string, 0, len(res.Stages))
		for _, s := range res.Stages {
			stages = append(stages, string(s))
		}
		p.printf("%s %s\n", p.dim.Render("Stages:"), strings.Join(stages, " > "))
	}
	if res.Duration > 0 {
		p.printf("%s %s\n", p.dim.Render("Duration:"), res.Duration.Round(time.Millisecond))
	}
	p.Endpoints(res.Endpoints)
}

// Endpoints prints the stack endpoints that are known.
func (p *Printer) Endpoints(ep orchestration.Endpoints) {
	if ep.Internal == "" && ep.External == "" {
		return
	}
	p.printf("\n%s\n", p.title.Render("Outputs"))
	if ep.Internal != "" {
		p.printf("  %-18s %s\n", orchestration.OutputInternalEndpoint, p.link.Render(ep.Internal))
	}
	if ep.External != "" {
		p.printf("  %-18s %s\n", orchestration.OutputExternalEndpoint, p.link.Render(ep.External))
	}
}
