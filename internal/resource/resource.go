// Package resource defines declared resource nodes, their properties and the
// handler contracts providers implement to converge them.
package resource

import (
	"context"
	"errors"
	"fmt"
)

// Kind names a provider resource type, e.g. "aws:ec2:Vpc".
type Kind string

// Properties are the inputs or outputs of a resource. Input values may be
// literals, Secrets or deferred outputs (see package output); after
// resolution they only hold literals and Secrets.
type Properties map[string]any

// Spec declares one resource node.
type Spec struct {
	// Name is unique within a stack and stable across runs.
	Name string
	Kind Kind
	// Inputs may reference outputs of other nodes, which adds
	// "consumes" edges to the graph.
	Inputs Properties
	// DependsOn lists nodes that must be fully ready before this node starts.
	DependsOn []string
}

// Result is what a handler reports after creating or updating a resource.
type Result struct {
	ID      string
	Outputs Properties
}

// CreateRequest asks a handler to create a resource.
type CreateRequest struct {
	Name   string
	Inputs Properties
	// ReplacingID is set when the resource replaces an existing instance.
	// Handlers that adopt existing resources by name must not adopt it.
	ReplacingID string
}

// UpdateRequest asks a handler to update a resource in place.
type UpdateRequest struct {
	Name        string
	ID          string
	OldInputs   Properties
	OldOutputs  Properties
	Inputs      Properties
	ChangedKeys []string
}

// DeleteRequest asks a handler to delete a resource.
type DeleteRequest struct {
	Name    string
	ID      string
	Outputs Properties
}

// Handler converges one kind of resource.
type Handler interface {
	Create(ctx context.Context, req *CreateRequest) (*Result, error)
	Update(ctx context.Context, req *UpdateRequest) (*Result, error)
	Delete(ctx context.Context, req *DeleteRequest) error
}

// Waiter is implemented by handlers whose resources become usable some time
// after the create call returns. WaitReady runs after outputs are published
// and before dependents with strict edges may start.
type Waiter interface {
	WaitReady(ctx context.Context, id string, outputs Properties) error
}

// Reader is implemented by handlers that can observe a resource. Read returns
// the current outputs and whether the resource still exists.
type Reader interface {
	Read(ctx context.Context, id string, outputs Properties) (Properties, bool, error)
}

// Replacer is implemented by handlers for which changing some input keys
// requires creating a new resource.
type Replacer interface {
	ReplaceOnChange() []string
}

// DeleteBeforeReplacer is implemented by replaceable handlers whose old and
// new instance must not exist at the same time.
type DeleteBeforeReplacer interface {
	DeleteBeforeReplace() bool
}

// Provider resolves the handler for a kind.
type Provider interface {
	Handler(kind Kind) (Handler, error)
}

// ErrUnsupportedKind is returned when no handler is registered for a kind.
var ErrUnsupportedKind = errors.New("resource: unsupported kind")

// Registry is a Provider backed by a map.
type Registry map[Kind]Handler

// Handler implements Provider.
func (r Registry) Handler(kind Kind) (Handler, error) {
	h, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	return h, nil
}

// Register adds a handler for kind, replacing any existing one.
func (r Registry) Register(kind Kind, h Handler) {
	r[kind] = h
}

// String returns the property as a string, or "" if absent or not a string.
func (p Properties) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case Secret:
		return v.Reveal()
	default:
		return ""
	}
}

// Strings returns the property as a string slice.
func (p Properties) Strings(key string) []string {
	return toStrings(p[key])
}

// Bool returns the property as a bool.
func (p Properties) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Int returns the property as an int. Numbers decoded from persisted state
// arrive as float64.
func (p Properties) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Map returns a nested property map.
func (p Properties) Map(key string) Properties {
	switch v := p[key].(type) {
	case Properties:
		return v
	case map[string]any:
		return Properties(v)
	default:
		return nil
	}
}

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func toStrings(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
