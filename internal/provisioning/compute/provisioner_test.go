package compute

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/graph"
	"github.com/imamik/searchstack/internal/platform/fake"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/provisioning/infrastructure"
	"github.com/imamik/searchstack/internal/provisioning/storage"
	"github.com/imamik/searchstack/internal/resource"
	testutil "github.com/imamik/searchstack/internal/testing"
)

type resolverFunc func(ctx context.Context, id string) (string, error)

func (f resolverFunc) ResolveARN(ctx context.Context, id string) (string, error) { return f(ctx, id) }

// upstream declares the phases compute builds on.
func upstream(t *testing.T, cfg *config.Config) *provisioning.Context {
	t.Helper()
	ctx := provisioning.NewContext(context.Background(), cfg, resource.NewSet(),
		provisioning.NewLogObserver(zerolog.Nop()))
	require.NoError(t, infrastructure.NewProvisioner().Provision(ctx))
	require.NoError(t, storage.NewProvisioner().Provision(ctx))
	return ctx
}

func TestProvision_RejectsMoreThanOneInstance(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, 2, 3} {
		ctx := upstream(t, testutil.NewConfigBuilder().WithDesiredCount(n).Build())
		err := NewProvisioner(nil).Provision(ctx)
		assert.ErrorIs(t, err, ErrUnsupported, "desired count %d", n)
		assert.Empty(t, ctx.State.Components[provisioning.ComponentCompute])
	}
}

func TestProvision_RequiresUpstream(t *testing.T) {
	t.Parallel()
	ctx := provisioning.NewContext(context.Background(), testutil.MinimalConfig(), resource.NewSet(),
		provisioning.NewLogObserver(zerolog.Nop()))
	assert.ErrorIs(t, NewProvisioner(nil).Provision(ctx), ErrMissingDependencies)
}

func TestProvision_PortMismatch(t *testing.T) {
	t.Parallel()
	cfg := testutil.MinimalConfig()
	cfg.Workload.ContainerPort = 8108
	ctx := upstream(t, cfg)
	assert.ErrorIs(t, NewProvisioner(nil).Provision(ctx), ErrPortMismatch)
}

func TestProvision_ServiceEdges(t *testing.T) {
	t.Parallel()
	ctx := upstream(t, testutil.MinimalConfig())
	require.NoError(t, NewProvisioner(nil).Provision(ctx))

	assert.Equal(t, []string{NodeCluster, NodeTaskDefinition, NodeService},
		ctx.State.Components[provisioning.ComponentCompute])

	g := ctx.Set.Graph()
	strict := g.DependenciesOfKind(NodeService, graph.EdgeDependsOn)
	assert.Contains(t, strict, infrastructure.NodeListener)
	assert.Contains(t, strict, infrastructure.NodeEgress)
	assert.Contains(t, strict, infrastructure.RouteAssociationNode("us-east-1a"))

	assert.True(t, g.EdgeKindOf(NodeService, NodeCluster).Has(graph.EdgeConsumes))
	assert.True(t, g.EdgeKindOf(NodeService, NodeTaskDefinition).Has(graph.EdgeConsumes))
	assert.True(t, g.EdgeKindOf(NodeService, infrastructure.NodeTargetGroup).Has(graph.EdgeConsumes))
	assert.True(t, g.EdgeKindOf(NodeTaskDefinition, storage.NodeAccessPoint).Has(graph.EdgeConsumes))
	assert.True(t, g.EdgeKindOf(NodeTaskDefinition, storage.NodeFileSystem).Has(graph.EdgeConsumes))
}

func TestProvision_LiteralAdminKey(t *testing.T) {
	t.Parallel()
	cfg := testutil.NewConfigBuilder().WithAdminKey("s3cr3t").Build()
	cfg.Workload.Environment = map[string]string{"EXTRA": "1", EnvDataDir: "/elsewhere"}
	ctx := upstream(t, cfg)
	require.NoError(t, NewProvisioner(nil).Provision(ctx))

	spec, ok := ctx.Set.Spec(NodeTaskDefinition)
	require.True(t, ok)
	env := spec.Inputs.Map("environment")
	assert.Equal(t, resource.Secret("s3cr3t"), env[EnvAPIKey])
	assert.Equal(t, config.DataDir, env[EnvDataDir])
	assert.Equal(t, "80", env[EnvAPIPort])
	assert.Equal(t, "1", env["EXTRA"])
	assert.NotContains(t, spec.Inputs, "secrets")
	assert.Equal(t, config.DataDir, spec.Inputs["mountPath"])
}

func TestProvision_SecretReference(t *testing.T) {
	t.Parallel()
	cfg := testutil.NewConfigBuilder().WithAdminKey("awssm://search/admin").Build()

	t.Run("resolved", func(t *testing.T) {
		ctx := upstream(t, cfg)
		resolver := resolverFunc(func(_ context.Context, id string) (string, error) {
			assert.Equal(t, "search/admin", id)
			return "arn:aws:secretsmanager:us-east-1:1:secret:search/admin-AbCd", nil
		})
		require.NoError(t, NewProvisioner(resolver).Provision(ctx))

		spec, _ := ctx.Set.Spec(NodeTaskDefinition)
		assert.NotContains(t, spec.Inputs.Map("environment"), EnvAPIKey)
		assert.Equal(t, "arn:aws:secretsmanager:us-east-1:1:secret:search/admin-AbCd",
			spec.Inputs.Map("secrets").String(EnvAPIKey))
	})

	t.Run("no resolver", func(t *testing.T) {
		ctx := upstream(t, cfg)
		assert.ErrorIs(t, NewProvisioner(nil).Provision(ctx), ErrNoSecretResolver)
	})

	t.Run("resolve fails", func(t *testing.T) {
		ctx := upstream(t, cfg)
		boom := errors.New("not found")
		resolver := resolverFunc(func(context.Context, string) (string, error) { return "", boom })
		assert.ErrorIs(t, NewProvisioner(resolver).Provision(ctx), boom)
	})
}

func TestProvision_Apply(t *testing.T) {
	t.Parallel()
	fx := testutil.NewFixture(t)
	ctx := upstream(t, testutil.MinimalConfig())
	require.NoError(t, NewProvisioner(nil).Provision(ctx))

	sum := fx.Apply(t, "test", ctx.Set)
	assert.Empty(t, sum.Failed())

	svc := fx.Inputs(t, NodeService)
	assert.Equal(t, 1, svc.Int("desiredCount"))
	assert.True(t, svc.Bool("assignPublicIp"))
	assert.Len(t, svc.Strings("subnetIds"), 2)
	tg, _ := fx.Provider.Lookup(infrastructure.NodeTargetGroup)
	assert.Equal(t, tg.Outputs.String(resource.OutputARN), svc.String("targetGroupArn"))

	task := fx.Inputs(t, NodeTaskDefinition)
	ap, _ := fx.Provider.Lookup(storage.NodeAccessPoint)
	assert.Equal(t, ap.ID, task.String("accessPointId"))
	assert.Equal(t, "secret", task.Map("environment").String(EnvAPIKey))

	for _, dep := range []string{infrastructure.NodeListener, infrastructure.NodeEgress} {
		assert.Less(t, fx.Provider.Seq(fake.OpCreate, dep), fx.Provider.Seq(fake.OpCreate, NodeService), dep)
	}

	// The admin key is masked in the snapshot.
	snap := fx.Snapshot(t, "test")
	rs, ok := snap.Get(NodeTaskDefinition)
	require.True(t, ok)
	assert.NotEqual(t, "secret", rs.Inputs.Map("environment").String(EnvAPIKey))
}
