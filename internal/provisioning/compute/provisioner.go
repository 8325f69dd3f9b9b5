package compute

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/output"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/util/naming"
)

const phase = "compute"

// Node names of the compute platform.
const (
	NodeCluster        = "cluster"
	NodeTaskDefinition = "task-definition"
	NodeService        = "service"
)

// Environment variables understood by the workload.
const (
	EnvDataDir    = "TYPESENSE_DATA_DIR"
	EnvAPIPort    = "TYPESENSE_API_PORT"
	EnvEnableCORS = "TYPESENSE_ENABLE_CORS"
	EnvAPIKey     = "TYPESENSE_API_KEY"
)

var (
	// ErrUnsupported is returned for service shapes other than a single
	// task bound to the volume.
	ErrUnsupported = errors.New("compute: only a single workload instance is supported")
	// ErrPortMismatch is returned when the container does not listen on the
	// target group port.
	ErrPortMismatch = errors.New("compute: container port must match the target group port")
	// ErrMissingDependencies is returned when earlier phases have not run.
	ErrMissingDependencies = errors.New("compute: network, firewall, volume and load balancer must be declared first")
	// ErrNoSecretResolver is returned for a secret reference without a resolver.
	ErrNoSecretResolver = errors.New("compute: admin key is a secret reference but no resolver is configured")
)

// SecretResolver maps a secret identifier to the ARN the container
// platform injects it from.
type SecretResolver interface {
	ResolveARN(ctx context.Context, id string) (string, error)
}

// Provisioner declares the cluster, task definition and service.
type Provisioner struct {
	secrets SecretResolver
}

// NewProvisioner creates a compute provisioner. secrets may be nil when the
// admin key is given as a literal.
func NewProvisioner(secrets SecretResolver) *Provisioner {
	return &Provisioner{secrets: secrets}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	st := ctx.State
	if st.Network == nil || st.Firewall == nil || st.Volume == nil || st.LoadBalancer == nil {
		return ErrMissingDependencies
	}
	cfg := ctx.Config
	wl := cfg.Workload
	if wl.DesiredCount != 1 {
		return fmt.Errorf("%w: desired count %d", ErrUnsupported, wl.DesiredCount)
	}
	if wl.ContainerPort != st.LoadBalancer.TargetPort {
		return fmt.Errorf("%w: container %d, target group %d", ErrPortMismatch, wl.ContainerPort, st.LoadBalancer.TargetPort)
	}
	prefix := cfg.Prefix()
	ctx.Observer.Printf("[%s] Declaring service %s (%s)...", phase, naming.Service(prefix), wl.Image)

	env, secrets, err := p.environment(ctx, cfg)
	if err != nil {
		return err
	}

	declare := func(spec resource.Spec) (*resource.Ref, error) {
		return ctx.Declare(provisioning.ComponentCompute, spec)
	}

	clusterName := naming.Cluster(prefix)
	cluster, err := declare(resource.Spec{
		Name: NodeCluster,
		Kind: resource.KindCluster,
		Inputs: resource.Properties{
			"name": clusterName,
			"tags": ctx.Tags(provisioning.ComponentCompute, clusterName),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to declare cluster: %w", err)
	}

	family := naming.TaskFamily(prefix)
	taskInputs := resource.Properties{
		"family":        family,
		"cpu":           wl.CPU,
		"memory":        wl.Memory,
		"taskRoleArn":   wl.TaskRoleArn,
		"containerName": naming.ContainerName(),
		"image":         wl.Image,
		"containerPort": wl.ContainerPort,
		"environment":   env,
		"fileSystemId":  st.Volume.FileSystemID,
		"accessPointId": st.Volume.AccessPointID,
		"mountPath":     config.DataDir,
		"tags":          ctx.Tags(provisioning.ComponentCompute, family),
	}
	if wl.ExecutionRoleArn != "" {
		taskInputs["executionRoleArn"] = wl.ExecutionRoleArn
	}
	if len(secrets) > 0 {
		taskInputs["secrets"] = secrets
	}
	task, err := declare(resource.Spec{
		Name:   NodeTaskDefinition,
		Kind:   resource.KindTaskDefinition,
		Inputs: taskInputs,
	})
	if err != nil {
		return fmt.Errorf("failed to declare task definition: %w", err)
	}

	// Tasks pull their image over the public route and register with the
	// target group, so the listener, the egress rule and the routes must
	// be in place first.
	dependsOn := resource.RefNames(st.LoadBalancer.Listener, st.Firewall.Egress)
	dependsOn = append(dependsOn, resource.RefNames(st.Network.Routes...)...)

	serviceName := naming.Service(prefix)
	service, err := declare(resource.Spec{
		Name: NodeService,
		Kind: resource.KindService,
		Inputs: resource.Properties{
			"name":              serviceName,
			"clusterArn":        cluster.Output(resource.OutputARN),
			"taskDefinitionArn": task.Output(resource.OutputARN),
			"desiredCount":      wl.DesiredCount,
			"subnetIds":         st.Network.SubnetIDs,
			"securityGroupIds":  []output.Output[string]{st.Network.SecurityGroupID},
			"assignPublicIp":    true,
			"targetGroupArn":    st.LoadBalancer.TargetGroupARN,
			"containerName":     naming.ContainerName(),
			"containerPort":     wl.ContainerPort,
			"tags":              ctx.Tags(provisioning.ComponentCompute, serviceName),
		},
		DependsOn: dependsOn,
	})
	if err != nil {
		return fmt.Errorf("failed to declare service: %w", err)
	}

	st.Compute = &provisioning.Compute{
		ClusterARN:        cluster.Output(resource.OutputARN),
		TaskDefinitionARN: task.Output(resource.OutputARN),
		Service:           service,
	}
	return nil
}

// environment builds the container environment. User entries never
// override the variables the stack itself controls.
func (p *Provisioner) environment(ctx *provisioning.Context, cfg *config.Config) (env, secrets resource.Properties, err error) {
	env = make(resource.Properties, len(cfg.Workload.Environment)+4)
	for k, v := range cfg.Workload.Environment {
		env[k] = v
	}
	env[EnvDataDir] = config.DataDir
	env[EnvAPIPort] = strconv.Itoa(cfg.Workload.ContainerPort)
	env[EnvEnableCORS] = strconv.FormatBool(cfg.CORSEnabled())
	delete(env, EnvAPIKey)

	id, isRef := cfg.AdminKeySecretID()
	if !isRef {
		env[EnvAPIKey] = resource.Secret(cfg.AdminAPIKey)
		return env, nil, nil
	}
	if p.secrets == nil {
		return nil, nil, ErrNoSecretResolver
	}
	arn, err := p.secrets.ResolveARN(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve admin key %s: %w", id, err)
	}
	return env, resource.Properties{EnvAPIKey: arn}, nil
}
