package orchestration

import (
	"context"
	"slices"
	"sync"

	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/resource"
)

// Stage is the coarse progress of a deployment.
type Stage string

// Stages in the order a deployment passes through them.
const (
	StagePending       Stage = "pending"
	StageNetworkReady  Stage = "network-ready"
	StageStorageReady  Stage = "storage-ready"
	StageBalancerReady Stage = "balancer-ready"
	StageComputeReady  Stage = "compute-ready"
	StageDNSReady      Stage = "dns-ready"
	StageComplete      Stage = "complete"
	StageFailed        Stage = "failed"
)

var stageOrder = []Stage{
	StagePending, StageNetworkReady, StageStorageReady, StageBalancerReady,
	StageComputeReady, StageDNSReady, StageComplete,
}

// Stages returns the stages of a successful deployment in order, starting
// with pending.
func Stages() []Stage {
	return slices.Clone(stageOrder)
}

// stageComponents lists the components each intermediate stage waits for.
var stageComponents = map[Stage][]provisioning.Component{
	StageNetworkReady:  {provisioning.ComponentNetwork, provisioning.ComponentFirewall},
	StageStorageReady:  {provisioning.ComponentStorage},
	StageBalancerReady: {provisioning.ComponentLoadBalancer},
	StageComputeReady:  {provisioning.ComponentCompute},
	StageDNSReady:      {provisioning.ComponentDNS},
}

// Ordinal returns the position of s in the deployment order. Failed is -1.
func (s Stage) Ordinal() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// tracker follows node completions and reports stages strictly in order.
type tracker struct {
	set        *resource.Set
	components map[provisioning.Component][]string
	onStage    func(Stage)

	mu      sync.Mutex
	current Stage
	history []Stage
}

func newTracker(set *resource.Set, components map[provisioning.Component][]string, onStage func(Stage)) *tracker {
	return &tracker{
		set:        set,
		components: components,
		onStage:    onStage,
		current:    StagePending,
		history:    []Stage{StagePending},
	}
}

// watch blocks until every intermediate stage is reached, a node of the
// next stage fails, or ctx ends. It reports whether dns-ready was reached.
func (t *tracker) watch(ctx context.Context) bool {
	for _, stage := range stageOrder[1 : len(stageOrder)-1] {
		for _, component := range stageComponents[stage] {
			for _, name := range t.components[component] {
				if _, err := t.set.Completion(name).Await(ctx); err != nil {
					return false
				}
			}
		}
		t.advance(stage)
	}
	return true
}

func (t *tracker) advance(s Stage) {
	t.mu.Lock()
	t.current = s
	t.history = append(t.history, s)
	t.mu.Unlock()
	if t.onStage != nil {
		t.onStage(s)
	}
}

func (t *tracker) snapshot() (Stage, []Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, append([]Stage(nil), t.history...)
}
