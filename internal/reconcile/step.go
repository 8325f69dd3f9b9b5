package reconcile

import (
	"time"

	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/state"
)

// Op is the action taken for one resource.
type Op string

// Operations in the order a reader expects them in a plan.
const (
	OpSame    Op = "same"
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
)

// Status is the outcome of a step.
type Status string

const (
	// StatusPlanned marks steps of a dry run.
	StatusPlanned Status = "planned"
	StatusApplied Status = "applied"
	StatusFailed  Status = "failed"
	// StatusSkipped marks nodes that never ran because an upstream node
	// failed or the run halted.
	StatusSkipped Status = "skipped"
)

// Step records what happened to one resource.
type Step struct {
	Name   string
	Kind   resource.Kind
	Op     Op
	Status Status
	ID     string
	// ChangedKeys lists the inputs that differ from the snapshot.
	ChangedKeys []string
	// UnknownKeys lists the inputs only known after apply (dry runs).
	UnknownKeys []string
	Err         error
	Duration    time.Duration
}

// Summary is the result of Apply or Destroy.
type Summary struct {
	Stack  string
	DryRun bool
	// Steps lists apply steps in declaration order, followed by deletes in
	// execution order.
	Steps []Step
	// Snapshot is the state after the run. Dry runs return the unchanged
	// snapshot.
	Snapshot *state.Snapshot
}

// Count returns the number of planned or applied steps with op.
func (s *Summary) Count(op Op) int {
	n := 0
	for _, st := range s.Steps {
		if st.Op == op && (st.Status == StatusApplied || st.Status == StatusPlanned) {
			n++
		}
	}
	return n
}

// Changes returns the number of planned or applied steps that are not same.
func (s *Summary) Changes() int {
	n := 0
	for _, st := range s.Steps {
		if st.Op != OpSame && (st.Status == StatusApplied || st.Status == StatusPlanned) {
			n++
		}
	}
	return n
}

// Failed returns the failed steps.
func (s *Summary) Failed() []Step {
	return s.filter(StatusFailed)
}

// Skipped returns the skipped steps.
func (s *Summary) Skipped() []Step {
	return s.filter(StatusSkipped)
}

// Step returns the first step recorded for name.
func (s *Summary) Step(name string) (Step, bool) {
	for _, st := range s.Steps {
		if st.Name == name {
			return st, true
		}
	}
	return Step{}, false
}

func (s *Summary) filter(status Status) []Step {
	var out []Step
	for _, st := range s.Steps {
		if st.Status == status {
			out = append(out, st)
		}
	}
	return out
}
