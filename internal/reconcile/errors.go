package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrDependencyFailed is wrapped by every DependencyError.
	ErrDependencyFailed = errors.New("reconcile: dependency failed")
	// ErrHalted marks nodes that were not started because another node
	// failed first.
	ErrHalted = errors.New("reconcile: halted after an earlier failure")
)

// StepError is the failure of a provider call or of input resolution for
// one node.
type StepError struct {
	Node string
	Op   Op
	Err  error
}

func (e *StepError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Node, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// DependencyError reports a node skipped because Upstream failed.
type DependencyError struct {
	Node     string
	Upstream string
	Err      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s skipped: dependency %s failed: %v", e.Node, e.Upstream, e.Err)
}

// Unwrap exposes both ErrDependencyFailed and the upstream cause.
func (e *DependencyError) Unwrap() []error {
	return []error{ErrDependencyFailed, e.Err}
}

// RunError is returned by Apply and Destroy when a step failed. Node is the
// first node that failed.
type RunError struct {
	Node    string
	Err     error
	Failed  int
	Skipped int
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("run halted at %s: %v", e.Node, e.Err)
	if e.Failed > 1 || e.Skipped > 0 {
		msg += fmt.Sprintf(" (%d failed, %d skipped)", e.Failed, e.Skipped)
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// upstreamError converts the error seen while waiting on dep into the error
// recorded for node. The second result reports whether node itself failed
// rather than being skipped.
func upstreamError(node, dep string, err error) (error, bool) {
	if errors.Is(err, ErrHalted) {
		return fmt.Errorf("%s: %w", node, ErrHalted), false
	}
	var de *DependencyError
	if errors.As(err, &de) {
		return &DependencyError{Node: node, Upstream: de.Upstream, Err: de.Err}, false
	}
	var se *StepError
	if errors.As(err, &se) {
		return &DependencyError{Node: node, Upstream: se.Node, Err: se}, false
	}
	if dep != "" {
		return &DependencyError{Node: node, Upstream: dep, Err: err}, false
	}
	return &StepError{Node: node, Err: err}, true
}
