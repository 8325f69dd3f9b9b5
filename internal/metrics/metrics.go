// Package metrics records provisioning runs as Prometheus metrics.
//
// A Recorder owns its registry so one CLI invocation can be written to a
// node-exporter textfile without leaking collectors between runs or tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/searchstack/internal/reconcile"
)

const namespace = "searchstack"

// Recorder collects step and stage metrics. It implements reconcile.Listener.
type Recorder struct {
	stack    string
	registry *prometheus.Registry

	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	stage        *prometheus.GaugeVec
	lastRun      *prometheus.GaugeVec
}

// NewRecorder creates a recorder for stack with a fresh registry.
func NewRecorder(stack string) *Recorder {
	r := &Recorder{
		stack:    stack,
		registry: prometheus.NewRegistry(),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "steps_total",
				Help:      "Total number of resource steps by kind, operation and status",
			},
			[]string{"stack", "kind", "op", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "step_duration_seconds",
				Help:      "Duration of applied resource steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4min
			},
			[]string{"stack", "kind", "op"},
		),
		stage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stack",
				Name:      "stage",
				Help:      "Ordinal of the last stage the stack reached",
			},
			[]string{"stack"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stack",
				Name:      "last_run_success",
				Help:      "Whether the last run succeeded (1) or not (0)",
			},
			[]string{"stack", "command"},
		),
	}
	r.registry.MustRegister(r.stepsTotal, r.stepDuration, r.stage, r.lastRun)
	return r
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// OnEvent implements reconcile.Listener.
func (r *Recorder) OnEvent(e reconcile.Event) {
	switch e.Type {
	case reconcile.EventStepStarted:
		return
	case reconcile.EventStepCompleted:
		r.stepDuration.WithLabelValues(r.stack, string(e.Step.Kind), string(e.Step.Op)).Observe(e.Step.Duration.Seconds())
	}
	r.stepsTotal.WithLabelValues(r.stack, string(e.Step.Kind), string(e.Step.Op), string(e.Step.Status)).Inc()
}

// SetStage records the ordinal of the stage the stack reached.
func (r *Recorder) SetStage(ordinal int) {
	r.stage.WithLabelValues(r.stack).Set(float64(ordinal))
}

// RecordRun records the outcome of a CLI command.
func (r *Recorder) RecordRun(command string, err error) {
	if err != nil {
		r.lastRun.WithLabelValues(r.stack, command).Set(0)
		return
	}
	r.lastRun.WithLabelValues(r.stack, command).Set(1)
}

// WriteToTextfile writes all metrics in the text exposition format,
// replacing path atomically.
func (r *Recorder) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

var _ reconcile.Listener = (*Recorder)(nil)
