package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	t.Parallel()
	got := NewBuilder("search", "prod").
		WithName("search-prod-vpc").
		WithComponent("network").
		WithNode("network/vpc").
		Merge(map[string]string{"team": "search", KeyStack: "other"}).
		Build()

	assert.Equal(t, map[string]string{
		KeyName:      "search-prod-vpc",
		KeyProject:   "search",
		KeyStack:     "prod",
		KeyComponent: "network",
		KeyNode:      "network/vpc",
		KeyManagedBy: ManagedBy,
		"team":       "search",
	}, got)
}

func TestBuild_ReturnsCopy(t *testing.T) {
	t.Parallel()
	b := NewBuilder("p", "s")
	first := b.Build()
	first["mutated"] = "yes"

	assert.NotContains(t, b.Build(), "mutated")
}

func TestFromAny(t *testing.T) {
	t.Parallel()
	props := NewBuilder("p", "s").WithName("n").BuildAny()
	props["count"] = 3

	got := FromAny(props)
	assert.Equal(t, "n", got[KeyName])
	assert.NotContains(t, got, "count")
	assert.Equal(t, map[string]string{"a": "b"}, FromAny(map[string]string{"a": "b"}))
	assert.Empty(t, FromAny(nil))
	assert.Equal(t, []string{KeyName, KeyManagedBy, KeyProject, KeyStack}, SortedKeys(got))
}
