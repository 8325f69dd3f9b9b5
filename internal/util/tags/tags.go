package tags

import (
	"maps"
	"slices"
)

// Standard tag keys.
const (
	KeyName      = "Name"
	KeyProject   = "searchstack:project"
	KeyStack     = "searchstack:stack"
	KeyComponent = "searchstack:component"
	KeyNode      = "searchstack:node"
	KeyManagedBy = "searchstack:managed-by"
)

// ManagedBy value stamped on every resource.
const ManagedBy = "searchstack"

// Builder provides a fluent interface for building resource tags.
type Builder struct {
	tags map[string]string
}

// NewBuilder creates a builder with the project, stack and manager set.
func NewBuilder(project, stack string) *Builder {
	return &Builder{
		tags: map[string]string{
			KeyProject:   project,
			KeyStack:     stack,
			KeyManagedBy: ManagedBy,
		},
	}
}

// WithName sets the Name tag shown in cloud consoles.
func (b *Builder) WithName(name string) *Builder {
	b.tags[KeyName] = name
	return b
}

// WithComponent records which component declared the resource.
func (b *Builder) WithComponent(component string) *Builder {
	b.tags[KeyComponent] = component
	return b
}

// WithNode records the graph node name, used to adopt orphaned resources.
func (b *Builder) WithNode(node string) *Builder {
	b.tags[KeyNode] = node
	return b
}

// Merge adds all tags from the provided map. Reserved keys are not overridden.
func (b *Builder) Merge(extra map[string]string) *Builder {
	for k, v := range extra {
		if _, reserved := b.tags[k]; reserved && isReserved(k) {
			continue
		}
		b.tags[k] = v
	}
	return b
}

// Build returns a copy of the tags.
func (b *Builder) Build() map[string]string {
	return maps.Clone(b.tags)
}

// BuildAny returns the tags as a property value.
func (b *Builder) BuildAny() map[string]any {
	out := make(map[string]any, len(b.tags))
	for k, v := range b.tags {
		out[k] = v
	}
	return out
}

// FromAny converts a property value back into tags. Non-string values are dropped.
func FromAny(v any) map[string]string {
	out := map[string]string{}
	switch m := v.(type) {
	case map[string]string:
		maps.Copy(out, m)
	case map[string]any:
		for k, e := range m {
			if s, ok := e.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}

// SortedKeys returns the keys of tags in lexical order.
func SortedKeys(tags map[string]string) []string {
	return slices.Sorted(maps.Keys(tags))
}

func isReserved(key string) bool {
	switch key {
	case KeyProject, KeyStack, KeyManagedBy:
		return true
	}
	return false
}
