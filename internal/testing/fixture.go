package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imamik/searchstack/internal/platform/fake"
	"github.com/imamik/searchstack/internal/reconcile"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/state"
)

// Fixture is an in-memory provider and a file state store in a temporary
// directory, enough to run the reconciler end to end.
type Fixture struct {
	Provider *fake.Provider
	Store    *state.FileStore
	Dir      string
}

// NewFixture creates a fixture cleaned up with t.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := state.NewFileStore(dir)
	require.NoError(t, err)
	return &Fixture{Provider: fake.New(), Store: store, Dir: dir}
}

// Engine returns a reconciler over the fixture. listener may be nil.
func (f *Fixture) Engine(listener reconcile.Listener) *reconcile.Engine {
	return reconcile.NewEngine(f.Provider, f.Store, listener)
}

// Apply converges set and fails the test on error.
func (f *Fixture) Apply(t *testing.T, stack string, set *resource.Set) *reconcile.Summary {
	t.Helper()
	sum, err := f.Engine(nil).Apply(TestContext(t), stack, set, reconcile.Options{})
	require.NoError(t, err)
	return sum
}

// Snapshot loads the stored snapshot of stack.
func (f *Fixture) Snapshot(t *testing.T, stack string) *state.Snapshot {
	t.Helper()
	snap, err := f.Store.Load(TestContext(t), stack)
	require.NoError(t, err)
	return snap
}

// Inputs returns the inputs the provider last received for the named node.
func (f *Fixture) Inputs(t *testing.T, name string) resource.Properties {
	t.Helper()
	obj, ok := f.Provider.Lookup(name)
	require.True(t, ok, "no object named %s", name)
	return obj.Inputs
}
