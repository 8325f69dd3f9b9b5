package provisioning

import (
	"context"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/util/tags"
)

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Config   *config.Config
	Set      *resource.Set
	State    *State
	Observer Observer
	Timeouts *config.Timeouts
}

// NewContext creates a new provisioning context declaring into set.
// A nil observer logs to the console.
func NewContext(ctx context.Context, cfg *config.Config, set *resource.Set, observer Observer) *Context {
	if observer == nil {
		observer = NewConsoleObserver()
	}
	return &Context{
		Context:  ctx,
		Config:   cfg,
		Set:      set,
		State:    NewState(),
		Observer: observer,
		Timeouts: config.LoadTimeouts(),
	}
}

// Declare registers spec in the set and records it under component.
func (c *Context) Declare(component Component, spec resource.Spec) (*resource.Ref, error) {
	ref, err := c.Set.Register(spec)
	if err != nil {
		return nil, err
	}
	c.State.Components[component] = append(c.State.Components[component], ref.Name())
	return ref, nil
}

// Tags returns the tag set of a resource with the given physical name.
func (c *Context) Tags(component Component, name string) resource.Properties {
	m := tags.NewBuilder(c.Config.Project, c.Config.Stack).
		Merge(c.Config.Tags).
		WithName(name).
		WithComponent(string(component)).
		Build()
	out := make(resource.Properties, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
