package resource

import (
	"errors"
	"fmt"
	"slices"

	"github.com/imamik/searchstack/internal/graph"
	"github.com/imamik/searchstack/internal/output"
)

// ErrMissingOutput is returned when a referenced output key is absent.
var ErrMissingOutput = errors.New("resource: missing output")

// node is the runtime view of a declared spec.
type node struct {
	spec     *Spec
	outputs  *output.Promise[Properties]
	complete *output.Promise[struct{}]
}

// Set is the desired state of a stack: declared specs and the graph between
// them. A Set is executed at most once because its outputs settle once.
type Set struct {
	graph *graph.Graph
	nodes map[string]*node
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{graph: graph.New(), nodes: make(map[string]*node)}
}

// Register declares a node. Inputs referencing outputs of other nodes add
// consumes edges; DependsOn adds strict edges. Both must name nodes that are
// already registered.
func (s *Set) Register(spec Spec) (*Ref, error) {
	if spec.Name == "" {
		return nil, errors.New("resource: spec name is required")
	}
	if spec.Kind == "" {
		return nil, fmt.Errorf("resource %s: kind is required", spec.Name)
	}
	if s.graph.Has(spec.Name) {
		return nil, fmt.Errorf("%w: %s", graph.ErrDuplicateNode, spec.Name)
	}
	sources := Sources(spec.Inputs)
	for _, dep := range append(slices.Clone(sources), spec.DependsOn...) {
		if !s.graph.Has(dep) {
			return nil, fmt.Errorf("resource %s: %w: %s", spec.Name, graph.ErrUnknownNode, dep)
		}
	}

	if err := s.graph.AddNode(spec.Name); err != nil {
		return nil, err
	}
	for _, src := range sources {
		if err := s.graph.AddEdge(spec.Name, src, graph.EdgeConsumes); err != nil {
			return nil, fmt.Errorf("resource %s: %w", spec.Name, err)
		}
	}
	for _, dep := range spec.DependsOn {
		if err := s.graph.AddEdge(spec.Name, dep, graph.EdgeDependsOn); err != nil {
			return nil, fmt.Errorf("resource %s: %w", spec.Name, err)
		}
	}

	stored := spec
	n := &node{
		spec:     &stored,
		outputs:  output.NewPromise[Properties](spec.Name),
		complete: output.NewPromise[struct{}](spec.Name),
	}
	s.nodes[spec.Name] = n
	return &Ref{name: spec.Name, kind: spec.Kind, node: n}, nil
}

// MustRegister is Register for statically known declarations.
func (s *Set) MustRegister(spec Spec) *Ref {
	ref, err := s.Register(spec)
	if err != nil {
		panic(err)
	}
	return ref
}

// Graph returns the dependency graph.
func (s *Set) Graph() *graph.Graph {
	return s.graph
}

// Spec returns the declared spec for name.
func (s *Set) Spec(name string) (*Spec, bool) {
	n, ok := s.nodes[name]
	if !ok {
		return nil, false
	}
	return n.spec, true
}

// Names returns node names in declaration order.
func (s *Set) Names() []string {
	return s.graph.Nodes()
}

// Len returns the number of declared nodes.
func (s *Set) Len() int {
	return s.graph.Len()
}

// PublishOutputs resolves the outputs of name, unblocking consumers.
func (s *Set) PublishOutputs(name string, outputs Properties) {
	if n, ok := s.nodes[name]; ok {
		n.outputs.Resolve(outputs)
	}
}

// PublishUnknown settles the outputs of name as not known until apply.
// Consumers resolving for a preview see output.ErrUnknown.
func (s *Set) PublishUnknown(name string) {
	if n, ok := s.nodes[name]; ok {
		n.outputs.Reject(fmt.Errorf("%s: %w", name, output.ErrUnknown))
	}
}

// MarkComplete signals that name is ready, unblocking strict dependents.
func (s *Set) MarkComplete(name string) {
	if n, ok := s.nodes[name]; ok {
		n.complete.Resolve(struct{}{})
	}
}

// Fail rejects both the outputs and the completion of name. Signals that
// were already settled are left alone.
func (s *Set) Fail(name string, err error) {
	if n, ok := s.nodes[name]; ok {
		n.outputs.Reject(err)
		n.complete.Reject(err)
	}
}

// Completion returns the completion signal of name.
func (s *Set) Completion(name string) output.Output[struct{}] {
	if n, ok := s.nodes[name]; ok {
		return n.complete.Output()
	}
	return output.Rejected[struct{}](fmt.Errorf("%w: %s", graph.ErrUnknownNode, name))
}

// Ref is a handle on a declared node used to wire its outputs into other
// declarations.
type Ref struct {
	name string
	kind Kind
	node *node
}

// Name returns the node name.
func (r *Ref) Name() string { return r.name }

// Kind returns the node kind.
func (r *Ref) Kind() Kind { return r.kind }

// Outputs returns all outputs of the node once it has been applied.
func (r *Ref) Outputs() output.Output[Properties] {
	return r.node.outputs.Output()
}

// Output returns a single string output.
func (r *Ref) Output(key string) output.Output[string] {
	name := r.name
	return output.Map(r.Outputs(), func(p Properties) (string, error) {
		v, ok := p[key]
		if !ok {
			return "", fmt.Errorf("%w: %s.%s", ErrMissingOutput, name, key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s.%s is %T, not string", ErrMissingOutput, name, key, v)
		}
		return s, nil
	})
}

// OutputList returns a string list output.
func (r *Ref) OutputList(key string) output.Output[[]string] {
	name := r.name
	return output.Map(r.Outputs(), func(p Properties) ([]string, error) {
		if _, ok := p[key]; !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingOutput, name, key)
		}
		return toStrings(p[key]), nil
	})
}

// ID returns the "id" output.
func (r *Ref) ID() output.Output[string] {
	return r.Output(OutputID)
}

// Completed returns the node's completion signal.
func (r *Ref) Completed() output.Output[struct{}] {
	return r.node.complete.Output()
}

// RefNames returns the names of refs, skipping nil entries.
func RefNames(refs ...*Ref) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r != nil {
			out = append(out, r.name)
		}
	}
	return out
}
