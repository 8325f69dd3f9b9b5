package fake

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/imamik/searchstack/internal/resource"
)

// Operations recorded in the call log.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpRead   = "read"
	OpReady  = "ready"
)

// Call is one recorded handler invocation.
type Call struct {
	Seq  int
	Op   string
	Kind resource.Kind
	Name string
	ID   string
	// Inputs holds the resolved inputs of create and update calls.
	Inputs resource.Properties
}

// Object is a resource held by the provider.
type Object struct {
	ID      string
	Kind    resource.Kind
	Name    string
	Inputs  resource.Properties
	Outputs resource.Properties
}

// OutputsFunc synthesizes kind-specific outputs for a created or updated
// object.
type OutputsFunc func(obj *Object) resource.Properties

// Provider is an in-memory resource.Provider.
type Provider struct {
	mu       sync.Mutex
	objects  map[string]*Object
	calls    []Call
	failures map[string]error
	seq      map[resource.Kind]int
	replace  map[resource.Kind][]string
	outputs  map[resource.Kind]OutputsFunc
	// deleteFirst and unique model provider constraints per kind.
	deleteFirst map[resource.Kind]bool
	unique      map[resource.Kind]bool
	// hooks run before an operation is recorded, e.g. to block a call.
	hooks map[string]func(ctx context.Context) error
}

// New returns an empty provider. Load balancers get a DNS name and DNS
// records echo their hostname unless overridden with WithOutputs.
func New() *Provider {
	p := &Provider{
		objects:     map[string]*Object{},
		failures:    map[string]error{},
		seq:         map[resource.Kind]int{},
		replace:     map[resource.Kind][]string{},
		outputs:     map[resource.Kind]OutputsFunc{},
		deleteFirst: map[resource.Kind]bool{},
		unique:      map[resource.Kind]bool{},
		hooks:       map[string]func(context.Context) error{},
	}
	p.outputs[resource.KindLoadBalancer] = func(obj *Object) resource.Properties {
		return resource.Properties{resource.OutputDNSName: obj.Name + "-" + obj.ID + ".elb.fake.aws"}
	}
	p.outputs[resource.KindDNSRecord] = func(obj *Object) resource.Properties {
		return resource.Properties{"hostname": obj.Inputs.String("name"), "target": obj.Inputs.String("content")}
	}
	return p
}

// Handler implements resource.Provider.
func (p *Provider) Handler(kind resource.Kind) (resource.Handler, error) {
	return &handler{p: p, kind: kind}, nil
}

// FailOn makes op on the named resource return err until cleared.
func (p *Provider) FailOn(op, name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op+":"+name] = err
}

// ClearFailures removes all injected failures.
func (p *Provider) ClearFailures() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = map[string]error{}
}

// OnCall registers fn to run when op starts on the named resource. A non-nil
// return fails the call.
func (p *Provider) OnCall(op, name string, fn func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks[op+":"+name] = fn
}

// SetReplaceOnChange declares input keys of kind that force replacement.
func (p *Provider) SetReplaceOnChange(kind resource.Kind, keys ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replace[kind] = slices.Clone(keys)
}

// SetDeleteBeforeReplace makes replacements of kind delete the old instance
// first.
func (p *Provider) SetDeleteBeforeReplace(kinds ...resource.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range kinds {
		p.deleteFirst[k] = true
	}
}

// RequireUniqueNames rejects creating an object of kind whose "name" input
// is already used by a live object of the same kind.
func (p *Provider) RequireUniqueNames(kinds ...resource.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range kinds {
		p.unique[k] = true
	}
}

// WithOutputs overrides output synthesis for kind.
func (p *Provider) WithOutputs(kind resource.Kind, fn OutputsFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outputs[kind] = fn
}

// Calls returns a copy of the call log.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// CallsOf returns the calls of one operation, in order.
func (p *Provider) CallsOf(op string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times op was called.
func (p *Provider) Count(op string) int {
	return len(p.CallsOf(op))
}

// Seq returns the sequence number of the first op call on name, or -1.
func (p *Provider) Seq(op, name string) int {
	for _, c := range p.Calls() {
		if c.Op == op && c.Name == name {
			return c.Seq
		}
	}
	return -1
}

// ResetCalls clears the call log but keeps objects.
func (p *Provider) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// Objects returns the live objects of kind sorted by name. An empty kind
// returns every object.
func (p *Provider) Objects(kind resource.Kind) []*Object {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Object
	for _, o := range p.objects {
		if kind == "" || o.Kind == kind {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b *Object) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Lookup returns the live object with the given name.
func (p *Provider) Lookup(name string) (*Object, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findByName(name)
}

// Remove deletes an object behind the reconciler's back to simulate drift.
func (p *Provider) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.findByName(name); ok {
		delete(p.objects, o.ID)
		return true
	}
	return false
}

func (p *Provider) findByName(name string) (*Object, bool) {
	for _, o := range p.objects {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// begin runs hooks and injected failures, then records the call.
func (p *Provider) begin(ctx context.Context, op string, kind resource.Kind, name, id string, inputs resource.Properties) error {
	p.mu.Lock()
	hook := p.hooks[op+":"+name]
	p.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Seq: len(p.calls), Op: op, Kind: kind, Name: name, ID: id, Inputs: inputs.Clone()})
	if err := p.failures[op+":"+name]; err != nil {
		return err
	}
	return nil
}

func (p *Provider) nextID(kind resource.Kind) string {
	p.seq[kind]++
	short := string(kind)
	if i := strings.LastIndex(short, ":"); i >= 0 {
		short = short[i+1:]
	}
	return fmt.Sprintf("%s-%d", strings.ToLower(short), p.seq[kind])
}

func (p *Provider) synthesize(obj *Object) {
	out := resource.Properties{
		resource.OutputID:  obj.ID,
		resource.OutputARN: "arn:fake:" + string(obj.Kind) + ":" + obj.ID,
	}
	if fn := p.outputs[obj.Kind]; fn != nil {
		for k, v := range fn(obj) {
			out[k] = v
		}
	}
	obj.Outputs = out
}

type handler struct {
	p    *Provider
	kind resource.Kind
}

func (h *handler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	if err := h.p.begin(ctx, OpCreate, h.kind, req.Name, "", req.Inputs); err != nil {
		return nil, err
	}
	h.p.mu.Lock()
	defer h.p.mu.Unlock()

	// Adopt an object left behind by an interrupted run.
	if o, ok := h.p.findByName(req.Name); ok && o.Kind == h.kind && o.ID != req.ReplacingID {
		o.Inputs = req.Inputs.Clone()
		h.p.synthesize(o)
		return &resource.Result{ID: o.ID, Outputs: o.Outputs.Clone()}, nil
	}

	if name := req.Inputs.String("name"); name != "" && h.p.unique[h.kind] {
		for _, o := range h.p.objects {
			if o.Kind == h.kind && o.Inputs.String("name") == name {
				return nil, fmt.Errorf("fake: %s named %q already exists as %s", h.kind, name, o.ID)
			}
		}
	}

	obj := &Object{ID: h.p.nextID(h.kind), Kind: h.kind, Name: req.Name, Inputs: req.Inputs.Clone()}
	h.p.synthesize(obj)
	h.p.objects[obj.ID] = obj
	return &resource.Result{ID: obj.ID, Outputs: obj.Outputs.Clone()}, nil
}

func (h *handler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if err := h.p.begin(ctx, OpUpdate, h.kind, req.Name, req.ID, req.Inputs); err != nil {
		return nil, err
	}
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	obj, ok := h.p.objects[req.ID]
	if !ok {
		return nil, fmt.Errorf("fake: %s %s not found", h.kind, req.ID)
	}
	obj.Inputs = req.Inputs.Clone()
	h.p.synthesize(obj)
	return &resource.Result{ID: obj.ID, Outputs: obj.Outputs.Clone()}, nil
}

func (h *handler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	if err := h.p.begin(ctx, OpDelete, h.kind, req.Name, req.ID, nil); err != nil {
		return err
	}
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	delete(h.p.objects, req.ID)
	return nil
}

func (h *handler) Read(ctx context.Context, id string, _ resource.Properties) (resource.Properties, bool, error) {
	h.p.mu.Lock()
	name := ""
	if o, ok := h.p.objects[id]; ok {
		name = o.Name
	}
	h.p.mu.Unlock()
	if err := h.p.begin(ctx, OpRead, h.kind, name, id, nil); err != nil {
		return nil, false, err
	}
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	obj, ok := h.p.objects[id]
	if !ok {
		return nil, false, nil
	}
	return obj.Outputs.Clone(), true, nil
}

func (h *handler) WaitReady(ctx context.Context, id string, _ resource.Properties) error {
	h.p.mu.Lock()
	name := ""
	if o, ok := h.p.objects[id]; ok {
		name = o.Name
	}
	h.p.mu.Unlock()
	return h.p.begin(ctx, OpReady, h.kind, name, id, nil)
}

func (h *handler) ReplaceOnChange() []string {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	return slices.Clone(h.p.replace[h.kind])
}

func (h *handler) DeleteBeforeReplace() bool {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	return h.p.deleteFirst[h.kind]
}

var (
	_ resource.Provider             = (*Provider)(nil)
	_ resource.Reader               = (*handler)(nil)
	_ resource.Waiter               = (*handler)(nil)
	_ resource.Replacer             = (*handler)(nil)
	_ resource.DeleteBeforeReplacer = (*handler)(nil)
)
