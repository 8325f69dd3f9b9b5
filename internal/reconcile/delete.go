package reconcile

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/imamik/searchstack/internal/graph"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/state"
	"github.com/imamik/searchstack/internal/util/async"
)

// deleteStale removes recorded resources that set no longer declares, then
// replaced resources awaiting deletion.
func (r *run) deleteStale(ctx context.Context, set *resource.Set) {
	var stale []*state.ResourceState
	r.mu.Lock()
	for _, name := range r.snap.Names() {
		if _, ok := set.Spec(name); !ok {
			stale = append(stale, r.snap.Resources[name])
		}
	}
	r.mu.Unlock()

	r.deleteAll(ctx, stale)
	if r.firstErr == nil {
		r.deletePending(ctx)
	}
}

// deleteAll deletes resources level by level, dependents first. Resources
// in one level are deleted in parallel. The first failing level stops the
// run.
func (r *run) deleteAll(ctx context.Context, resources []*state.ResourceState) {
	levels, err := deleteLevels(resources)
	if err != nil {
		r.record(Step{Name: r.stack, Op: OpDelete, Status: StatusFailed, Err: err}, true)
		return
	}
	byName := make(map[string]*state.ResourceState, len(resources))
	for _, rs := range resources {
		byName[rs.Name] = rs
	}

	for _, level := range levels {
		tasks := make([]async.Task, 0, len(level))
		for _, name := range level {
			rs := byName[name]
			tasks = append(tasks, async.Task{Name: name, Func: func(ctx context.Context) error {
				return r.deleteOne(ctx, rs, "")
			}})
		}
		if err := async.RunParallel(ctx, tasks); err != nil {
			return
		}
	}
}

// deletePending removes resources that were replaced by a new instance.
func (r *run) deletePending(ctx context.Context) {
	r.mu.Lock()
	keys := make([]string, 0, len(r.snap.PendingDeletes))
	for k := range r.snap.PendingDeletes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	pending := make([]*state.ResourceState, len(keys))
	for i, k := range keys {
		pending[i] = r.snap.PendingDeletes[k]
	}
	r.mu.Unlock()

	tasks := make([]async.Task, len(keys))
	for i, k := range keys {
		rs := pending[i]
		tasks[i] = async.Task{Name: k, Func: func(ctx context.Context) error {
			return r.deleteOne(ctx, rs, k)
		}}
	}
	_ = async.RunParallel(ctx, tasks)
}

// deleteOne deletes a single resource. pendingKey is set for replaced
// resources.
func (r *run) deleteOne(ctx context.Context, rs *state.ResourceState, pendingKey string) error {
	st := Step{Name: rs.Name, Kind: rs.Kind, Op: OpDelete, ID: rs.ID}
	if r.opts.DryRun {
		st.Status = StatusPlanned
		r.record(st, true)
		return nil
	}
	if r.halted.Load() {
		st.Status = StatusSkipped
		st.Err = fmt.Errorf("%s: %w", rs.Name, ErrHalted)
		r.record(st, true)
		return st.Err
	}

	start := time.Now()
	r.emit(EventStepStarted, st)
	fail := func(err error) error {
		r.halted.Store(true)
		st.Err = &StepError{Node: rs.Name, Op: OpDelete, Err: err}
		st.Status = StatusFailed
		st.Duration = time.Since(start)
		r.record(st, true)
		return st.Err
	}

	h, err := r.e.provider.Handler(rs.Kind)
	if err != nil {
		return fail(err)
	}
	if err := h.Delete(ctx, &resource.DeleteRequest{Name: rs.Name, ID: rs.ID, Outputs: rs.Outputs}); err != nil {
		return fail(err)
	}
	err = r.commit(ctx, func(snap *state.Snapshot) {
		if pendingKey != "" {
			snap.RemovePendingDelete(pendingKey)
			return
		}
		snap.Remove(rs.Name)
	})
	if err != nil {
		return fail(err)
	}

	st.Status = StatusApplied
	st.Duration = time.Since(start)
	r.record(st, true)
	return nil
}

// deleteLevels orders resources for deletion: the first level holds
// resources nothing else in the set depends on.
func deleteLevels(resources []*state.ResourceState) ([][]string, error) {
	g := graph.New()
	for _, rs := range resources {
		if err := g.AddNode(rs.Name); err != nil {
			return nil, err
		}
	}
	for _, rs := range resources {
		for _, dep := range rs.Dependencies() {
			if !g.Has(dep) || dep == rs.Name {
				continue
			}
			if err := g.AddEdge(rs.Name, dep, graph.EdgeConsumes); err != nil {
				return nil, err
			}
		}
	}
	levels, err := g.Levels()
	if err != nil {
		return nil, fmt.Errorf("failed to order deletes: %w", err)
	}
	slices.Reverse(levels)
	return levels, nil
}
