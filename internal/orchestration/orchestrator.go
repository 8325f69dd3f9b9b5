package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/metrics"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/provisioning/compute"
	"github.com/imamik/searchstack/internal/provisioning/dns"
	"github.com/imamik/searchstack/internal/provisioning/infrastructure"
	"github.com/imamik/searchstack/internal/provisioning/storage"
	"github.com/imamik/searchstack/internal/reconcile"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/state"
)

// Dependencies are the collaborators of an Orchestrator.
type Dependencies struct {
	Provider resource.Provider
	Store    state.Store
	// Secrets resolves admin keys given as secret references. Optional.
	Secrets compute.SecretResolver
	// Observer receives phase, resource and stage events. Defaults to the
	// console.
	Observer provisioning.Observer
	// Metrics records steps and stages. Optional.
	Metrics *metrics.Recorder
}

// Options tune a single run.
type Options struct {
	// Refresh reads every recorded resource before planning.
	Refresh bool
}

// Result describes the outcome of a run.
type Result struct {
	Stack   string
	Summary *reconcile.Summary
	// Stage is the last stage reached; Stages is the full history.
	Stage     Stage
	Stages    []Stage
	Endpoints Endpoints
	// Components maps each component to the nodes it declared.
	Components map[provisioning.Component][]string
	Duration   time.Duration
}

// Orchestrator deploys, previews and destroys one stack.
type Orchestrator struct {
	config *config.Config
	deps   Dependencies
	opts   Options
	now    func() time.Time
}

// New creates an orchestrator for cfg.
func New(cfg *config.Config, deps Dependencies, opts ...func(*Options)) *Orchestrator {
	if deps.Observer == nil {
		deps.Observer = provisioning.NewConsoleObserver()
	}
	o := &Orchestrator{config: cfg, deps: deps, now: time.Now}
	for _, fn := range opts {
		fn(&o.opts)
	}
	return o
}

// WithRefresh makes runs read recorded resources before planning.
func WithRefresh(refresh bool) func(*Options) {
	return func(o *Options) { o.Refresh = refresh }
}

// phases returns the declaration phases in order.
func (o *Orchestrator) phases() []provisioning.Phase {
	return []provisioning.Phase{
		provisioning.NewValidationPhase(),
		infrastructure.NewProvisioner(),
		storage.NewProvisioner(),
		compute.NewProvisioner(o.deps.Secrets),
		dns.NewProvisioner(),
	}
}

// declare builds the desired resource set.
func (o *Orchestrator) declare(ctx context.Context) (*provisioning.Context, error) {
	pctx := provisioning.NewContext(ctx, o.config, resource.NewSet(), o.deps.Observer)
	if err := provisioning.RunPhases(pctx, o.phases()); err != nil {
		return nil, err
	}
	return pctx, nil
}

func (o *Orchestrator) engine() *reconcile.Engine {
	listeners := reconcile.Listeners{provisioning.StepLogger(o.deps.Observer)}
	if o.deps.Metrics != nil {
		listeners = append(listeners, o.deps.Metrics)
	}
	return reconcile.NewEngine(o.deps.Provider, o.deps.Store, listeners)
}

func (o *Orchestrator) reconcileOptions(dryRun bool) reconcile.Options {
	timeouts := config.LoadTimeouts()
	return reconcile.Options{DryRun: dryRun, Refresh: o.opts.Refresh, ReadyTimeout: timeouts.Ready}
}

func (o *Orchestrator) reportStage(s Stage) {
	provisioning.LogStageReached(o.deps.Observer, o.config.Stack, string(s))
	if o.deps.Metrics != nil {
		o.deps.Metrics.SetStage(s.Ordinal())
	}
}

// Deploy converges the stack to the configuration and records its
// endpoints.
func (o *Orchestrator) Deploy(ctx context.Context) (*Result, error) {
	start := o.now()
	stack := o.config.Stack
	res := &Result{Stack: stack, Stage: StagePending, Stages: []Stage{StagePending}}

	pctx, err := o.declare(ctx)
	if err != nil {
		o.fail(res)
		return res, err
	}

	res.Components = pctx.State.Components
	t := newTracker(pctx.Set, pctx.State.Components, o.reportStage)
	watchCtx, stopWatch := context.WithCancel(ctx)
	reached := make(chan bool, 1)
	go func() { reached <- t.watch(watchCtx) }()

	sum, applyErr := o.engine().Apply(ctx, stack, pctx.Set, o.reconcileOptions(false))
	stopWatch()
	allReady := <-reached
	res.Summary = sum
	res.Stage, res.Stages = t.snapshot()
	res.Duration = o.now().Sub(start)

	if applyErr != nil || !allReady {
		o.fail(res)
		if applyErr == nil {
			applyErr = errors.New("orchestration: deployment ended before every component completed")
		}
		return res, fmt.Errorf("deploy %s: %w", stack, applyErr)
	}

	res.Endpoints = resolveEndpoints(ctx, pctx.State)
	if err := o.saveOutputs(ctx, res.Endpoints); err != nil {
		o.fail(res)
		return res, err
	}

	res.Stage = StageComplete
	res.Stages = append(res.Stages, StageComplete)
	o.reportStage(StageComplete)
	return res, nil
}

func (o *Orchestrator) fail(res *Result) {
	res.Stage = StageFailed
	res.Stages = append(res.Stages, StageFailed)
	o.reportStage(StageFailed)
}

// saveOutputs records the endpoints in the stack snapshot.
func (o *Orchestrator) saveOutputs(ctx context.Context, ep Endpoints) error {
	snap, err := o.deps.Store.Load(ctx, o.config.Stack)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	snap.Outputs = ep.toMap()
	if err := o.deps.Store.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save outputs: %w", err)
	}
	return nil
}

// Preview computes the plan without touching the provider or the state.
// Endpoints are filled in when they are already known.
func (o *Orchestrator) Preview(ctx context.Context) (*Result, error) {
	start := o.now()
	res := &Result{Stack: o.config.Stack, Stage: StagePending, Stages: []Stage{StagePending}}

	pctx, err := o.declare(ctx)
	if err != nil {
		return res, err
	}
	res.Components = pctx.State.Components
	sum, err := o.engine().Apply(ctx, o.config.Stack, pctx.Set, o.reconcileOptions(true))
	res.Summary = sum
	res.Duration = o.now().Sub(start)
	if err != nil {
		return res, fmt.Errorf("preview %s: %w", o.config.Stack, err)
	}
	res.Endpoints = resolveEndpoints(ctx, pctx.State)
	return res, nil
}

// Destroy deletes every resource recorded for the stack.
func (o *Orchestrator) Destroy(ctx context.Context) (*Result, error) {
	start := o.now()
	res := &Result{Stack: o.config.Stack, Stage: StagePending, Stages: []Stage{StagePending}}
	provisioning.LogPhaseStart(o.deps.Observer, "destroy")

	sum, err := o.engine().Destroy(ctx, o.config.Stack, o.reconcileOptions(false))
	res.Summary = sum
	res.Duration = o.now().Sub(start)
	if err != nil {
		provisioning.LogPhaseFailed(o.deps.Observer, "destroy", err)
		return res, fmt.Errorf("destroy %s: %w", o.config.Stack, err)
	}
	provisioning.LogPhaseComplete(o.deps.Observer, "destroy", res.Duration)
	return res, nil
}

// Outputs returns the endpoints recorded by the last successful deploy.
func (o *Orchestrator) Outputs(ctx context.Context) (Endpoints, error) {
	snap, err := o.deps.Store.Load(ctx, o.config.Stack)
	if err != nil {
		return Endpoints{}, fmt.Errorf("failed to load state: %w", err)
	}
	if len(snap.Outputs) == 0 {
		return Endpoints{}, fmt.Errorf("%w: %s", ErrNotDeployed, o.config.Stack)
	}
	return endpointsFrom(snap), nil
}
