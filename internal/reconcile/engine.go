package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/imamik/searchstack/internal/graph"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/state"
	"github.com/imamik/searchstack/internal/util/async"
)

// Options tune a run.
type Options struct {
	// DryRun computes the plan without calling the provider or saving state.
	DryRun bool
	// Refresh reads every known resource before planning. Resources that no
	// longer exist are planned for creation.
	Refresh bool
	// ReadyTimeout bounds each readiness wait. Zero leaves it to ctx.
	ReadyTimeout time.Duration
}

// Engine applies resource sets to a provider and records the result in a
// state store.
type Engine struct {
	provider resource.Provider
	store    state.Store
	listener Listener
	now      func() time.Time
}

// NewEngine creates an engine. A nil listener discards events.
func NewEngine(provider resource.Provider, store state.Store, listener Listener) *Engine {
	if listener == nil {
		listener = nopListener{}
	}
	return &Engine{
		provider: provider,
		store:    store,
		listener: listener,
		now:      time.Now,
	}
}

// Apply converges set and returns what happened. The returned Summary is
// never nil when the snapshot could be loaded, even if err is not.
func (e *Engine) Apply(ctx context.Context, stack string, set *resource.Set, opts Options) (*Summary, error) {
	if err := set.Graph().Validate(); err != nil {
		return nil, err
	}
	snap, err := e.store.Load(ctx, stack)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	r := e.newRun(stack, snap, opts)
	if opts.Refresh {
		if err := r.refresh(ctx); err != nil {
			return r.summary(), err
		}
	}

	r.applyNodes(ctx, set)
	if r.firstErr == nil {
		r.deleteStale(ctx, set)
	}
	if r.firstErr == nil && r.dirty && !opts.DryRun {
		if err := r.save(ctx); err != nil {
			return r.summary(), err
		}
	}
	return r.summary(), r.err()
}

// Destroy deletes every resource recorded for stack in reverse dependency
// order.
func (e *Engine) Destroy(ctx context.Context, stack string, opts Options) (*Summary, error) {
	snap, err := e.store.Load(ctx, stack)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	r := e.newRun(stack, snap, opts)
	if opts.Refresh {
		if err := r.refresh(ctx); err != nil {
			return r.summary(), err
		}
	}

	var all []*state.ResourceState
	for _, name := range snap.Names() {
		all = append(all, snap.Resources[name])
	}
	r.deleteAll(ctx, all)
	if r.firstErr == nil {
		r.deletePending(ctx)
	}
	if r.firstErr == nil && !opts.DryRun {
		r.mu.Lock()
		r.snap.Outputs = map[string]string{}
		r.mu.Unlock()
		if err := r.save(ctx); err != nil {
			return r.summary(), err
		}
	}
	return r.summary(), r.err()
}

// run is the state of one Apply or Destroy.
type run struct {
	e     *Engine
	stack string
	opts  Options

	// mu guards snap, steps, dirty and firstErr.
	mu       sync.Mutex
	snap     *state.Snapshot
	prior    *state.Snapshot
	steps    []Step
	deletes  []Step
	dirty    bool
	firstErr *RunError

	emitMu sync.Mutex
	halted atomic.Bool
}

func (e *Engine) newRun(stack string, snap *state.Snapshot, opts Options) *run {
	return &run{
		e:     e,
		stack: stack,
		opts:  opts,
		snap:  snap,
		prior: snap.Clone(),
	}
}

func (r *run) emit(t EventType, st Step) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.e.listener.OnEvent(Event{Type: t, Step: st})
}

// record stores a finished step and emits its event.
func (r *run) record(st Step, deleting bool) {
	r.mu.Lock()
	if st.Status == StatusFailed && r.firstErr == nil {
		r.firstErr = &RunError{Node: st.Name, Err: st.Err}
	}
	if deleting {
		r.deletes = append(r.deletes, st)
	} else {
		r.steps = append(r.steps, st)
	}
	r.mu.Unlock()

	switch st.Status {
	case StatusPlanned:
		r.emit(EventStepPlanned, st)
	case StatusApplied:
		r.emit(EventStepCompleted, st)
	case StatusFailed:
		r.halted.Store(true)
		r.emit(EventStepFailed, st)
	case StatusSkipped:
		r.emit(EventStepSkipped, st)
	}
}

// commit mutates the snapshot and checkpoints it.
func (r *run) commit(ctx context.Context, fn func(*state.Snapshot)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.snap)
	if r.opts.DryRun {
		return nil
	}
	if err := r.e.store.Save(ctx, r.snap); err != nil {
		return fmt.Errorf("failed to checkpoint state: %w", err)
	}
	r.dirty = false
	return nil
}

func (r *run) save(ctx context.Context) error {
	return r.commit(ctx, func(*state.Snapshot) {})
}

func (r *run) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.firstErr == nil {
		return nil
	}
	out := *r.firstErr
	for _, st := range append(slices.Clone(r.steps), r.deletes...) {
		switch st.Status {
		case StatusFailed:
			out.Failed++
		case StatusSkipped:
			out.Skipped++
		}
	}
	return &out
}

func (r *run) summary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := append(slices.Clone(r.steps), r.deletes...)
	return &Summary{
		Stack:    r.stack,
		DryRun:   r.opts.DryRun,
		Steps:    steps,
		Snapshot: r.snap.Clone(),
	}
}

// refresh reads every recorded resource and drops the ones that are gone.
func (r *run) refresh(ctx context.Context) error {
	var tasks []async.Task
	for _, name := range r.snap.Names() {
		rs := r.snap.Resources[name]
		h, err := r.e.provider.Handler(rs.Kind)
		if err != nil {
			return err
		}
		reader, ok := h.(resource.Reader)
		if !ok {
			continue
		}
		tasks = append(tasks, async.Task{Name: name, Func: func(ctx context.Context) error {
			outputs, exists, err := reader.Read(ctx, rs.ID, rs.Outputs)
			if err != nil {
				return err
			}
			r.mu.Lock()
			defer r.mu.Unlock()
			if !exists {
				r.snap.Remove(rs.Name)
			} else if outputs != nil {
				rs.Outputs = outputs
			}
			r.dirty = true
			return nil
		}})
	}
	if err := async.RunParallel(ctx, tasks); err != nil {
		return fmt.Errorf("failed to refresh state: %w", err)
	}
	r.mu.Lock()
	r.prior = r.snap.Clone()
	r.mu.Unlock()
	return nil
}

// applyNodes runs every node of set and waits for all of them to settle.
func (r *run) applyNodes(ctx context.Context, set *resource.Set) {
	names := set.Names()
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.applyNode(ctx, set, name)
		}()
	}
	wg.Wait()

	order := make(map[string]int, len(names))
	for i, n := range names {
		order[n] = i
	}
	r.mu.Lock()
	slices.SortStableFunc(r.steps, func(a, b Step) int { return order[a.Name] - order[b.Name] })
	r.mu.Unlock()
}

func (r *run) applyNode(ctx context.Context, set *resource.Set, name string) {
	spec, _ := set.Spec(name)
	g := set.Graph()
	st := Step{Name: name, Kind: spec.Kind}

	skip := func(dep string, err error) {
		cause, failed := upstreamError(name, dep, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause, failed = &StepError{Node: name, Err: ctxErr}, true
		}
		if failed {
			r.halted.Store(true)
		}
		st.Err = cause
		st.Status = StatusSkipped
		if failed {
			st.Status = StatusFailed
		}
		set.Fail(name, cause)
		r.record(st, false)
	}

	for _, dep := range g.DependenciesOfKind(name, graph.EdgeDependsOn) {
		if _, err := set.Completion(dep).Await(ctx); err != nil {
			skip(dep, err)
			return
		}
	}

	var (
		inputs  resource.Properties
		unknown []string
		err     error
	)
	if r.opts.DryRun {
		inputs, unknown, err = resource.ResolvePreview(ctx, spec.Inputs)
	} else {
		inputs, err = resource.Resolve(ctx, spec.Inputs)
	}
	if err != nil {
		skip("", err)
		return
	}

	h, err := r.e.provider.Handler(spec.Kind)
	if err != nil {
		skip("", err)
		return
	}

	r.mu.Lock()
	prev, exists := r.prior.Get(name)
	r.mu.Unlock()

	known := inputs
	if len(unknown) > 0 {
		known = inputs.Clone()
		for _, k := range unknown {
			delete(known, k)
		}
	}
	digests, err := resource.Digest(known)
	if err != nil {
		skip("", err)
		return
	}
	st.Op, st.ChangedKeys = decide(h, spec, prev, exists, digests, unknown)
	st.UnknownKeys = unknown
	if exists {
		st.ID = prev.ID
	}
	consumes := g.DependenciesOfKind(name, graph.EdgeConsumes)

	if r.opts.DryRun {
		if st.Op == OpSame || st.Op == OpUpdate {
			set.PublishOutputs(name, prev.Outputs.Clone())
		} else {
			set.PublishUnknown(name)
		}
		set.MarkComplete(name)
		st.Status = StatusPlanned
		r.record(st, false)
		return
	}

	if st.Op == OpSame {
		r.mu.Lock()
		if cur, ok := r.snap.Get(name); ok {
			if !slices.Equal(cur.DependsOn, spec.DependsOn) || !slices.Equal(cur.Consumes, consumes) {
				cur.DependsOn = slices.Clone(spec.DependsOn)
				cur.Consumes = consumes
				r.dirty = true
			}
		}
		r.mu.Unlock()
		set.PublishOutputs(name, prev.Outputs.Clone())
		set.MarkComplete(name)
		st.Status = StatusApplied
		r.record(st, false)
		return
	}

	if r.halted.Load() {
		skip("", ErrHalted)
		return
	}

	start := time.Now()
	r.emit(EventStepStarted, st)
	fail := func(err error) {
		r.halted.Store(true)
		st.Err = &StepError{Node: name, Op: st.Op, Err: err}
		st.Status = StatusFailed
		st.Duration = time.Since(start)
		set.Fail(name, st.Err)
		r.record(st, false)
	}

	var (
		res          *resource.Result
		deletedFirst bool
	)
	switch st.Op {
	case OpCreate:
		res, err = h.Create(ctx, &resource.CreateRequest{Name: name, Inputs: inputs})
	case OpReplace:
		if dr, ok := h.(resource.DeleteBeforeReplacer); ok && dr.DeleteBeforeReplace() {
			deletedFirst = true
			if err = r.deleteBeforeReplace(ctx, h, prev); err != nil {
				fail(err)
				return
			}
			res, err = h.Create(ctx, &resource.CreateRequest{Name: name, Inputs: inputs})
			break
		}
		res, err = h.Create(ctx, &resource.CreateRequest{Name: name, Inputs: inputs, ReplacingID: prev.ID})
	case OpUpdate:
		res, err = h.Update(ctx, &resource.UpdateRequest{
			Name:        name,
			ID:          prev.ID,
			OldInputs:   prev.Inputs,
			OldOutputs:  prev.Outputs,
			Inputs:      inputs,
			ChangedKeys: st.ChangedKeys,
		})
	}
	if err == nil && (res == nil || res.ID == "") {
		err = errors.New("provider returned no resource id")
	}
	if err != nil {
		fail(err)
		return
	}

	outputs := res.Outputs.Clone()
	if outputs == nil {
		outputs = resource.Properties{}
	}
	outputs[resource.OutputID] = res.ID
	st.ID = res.ID

	next := &state.ResourceState{
		Name:        name,
		Kind:        spec.Kind,
		ID:          res.ID,
		Inputs:      resource.Mask(inputs),
		Outputs:     outputs,
		Digests:     digests,
		Fingerprint: digests.Fingerprint(),
		DependsOn:   slices.Clone(spec.DependsOn),
		Consumes:    consumes,
	}
	err = r.commit(ctx, func(snap *state.Snapshot) {
		if st.Op == OpReplace && !deletedFirst && prev.ID != res.ID {
			snap.AddPendingDelete(prev)
		}
		snap.Upsert(next, r.e.now().UTC())
	})
	set.PublishOutputs(name, outputs.Clone())
	if err != nil {
		fail(err)
		return
	}

	if w, ok := h.(resource.Waiter); ok {
		waitCtx := ctx
		if r.opts.ReadyTimeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, r.opts.ReadyTimeout)
			defer cancel()
		}
		if err := w.WaitReady(waitCtx, res.ID, outputs); err != nil {
			fail(fmt.Errorf("not ready: %w", err))
			return
		}
	}

	set.MarkComplete(name)
	st.Status = StatusApplied
	st.Duration = time.Since(start)
	r.record(st, false)
}

// deleteBeforeReplace removes the old instance and drops it from the
// snapshot, so an interrupted run creates the new instance next time.
func (r *run) deleteBeforeReplace(ctx context.Context, h resource.Handler, prev *state.ResourceState) error {
	if err := h.Delete(ctx, &resource.DeleteRequest{Name: prev.Name, ID: prev.ID, Outputs: prev.Outputs}); err != nil {
		return fmt.Errorf("failed to delete %s before replacing it: %w", prev.ID, err)
	}
	return r.commit(ctx, func(snap *state.Snapshot) { snap.Remove(prev.Name) })
}

// decide compares the desired inputs with the recorded state.
func decide(h resource.Handler, spec *resource.Spec, prev *state.ResourceState, exists bool, digests resource.Digests, unknown []string) (Op, []string) {
	if !exists {
		return OpCreate, nil
	}
	if prev.Kind != spec.Kind {
		return OpReplace, nil
	}

	changed := digests.ChangedKeys(prev.Digests)
	for _, k := range unknown {
		if !slices.Contains(changed, k) {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	if len(changed) == 0 {
		return OpSame, nil
	}

	if rp, ok := h.(resource.Replacer); ok {
		for _, k := range rp.ReplaceOnChange() {
			if slices.Contains(changed, k) {
				return OpReplace, changed
			}
		}
	}
	return OpUpdate, changed
}
