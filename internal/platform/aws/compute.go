package aws

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/imamik/searchstack/internal/resource"
)

const (
	statusActive   = "ACTIVE"
	statusInactive = "INACTIVE"
	dataVolumeName = "data"
)

// ClusterHandler manages aws:ecs:Cluster. The ID is the cluster ARN.
//
// Inputs: name, tags. Outputs: id, arn, name.
type ClusterHandler struct {
	base
	api ECSAPI
}

// ReplaceOnChange implements resource.Replacer.
func (h *ClusterHandler) ReplaceOnChange() []string { return []string{keyName} }

// Create implements resource.Handler.
func (h *ClusterHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	name, err := required(req.Inputs, keyName)
	if err != nil {
		return nil, err
	}
	arn, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) {
			out, err := h.api.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: []string{name}})
			if err != nil {
				return "", false, err
			}
			for _, c := range out.Clusters {
				if arn := aws.ToString(c.ClusterArn); aws.ToString(c.Status) == statusActive && adoptable(req, arn) {
					return arn, true, nil
				}
			}
			return "", false, nil
		},
		func(ctx context.Context) (string, error) {
			out, err := h.api.CreateCluster(ctx, &ecs.CreateClusterInput{
				ClusterName:       aws.String(name),
				CapacityProviders: []string{"FARGATE"},
				Tags:              ecsTags(tagMap(req.Inputs)),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Cluster.ClusterArn), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster %s: %w", name, err)
	}
	return &resource.Result{ID: arn, Outputs: resource.Properties{
		resource.OutputID:  arn,
		resource.OutputARN: arn,
		keyName:            name,
	}}, nil
}

// Update implements resource.Handler. Cluster tags are fixed at creation.
func (h *ClusterHandler) Update(_ context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler. Deletion is retried while services
// are still draining.
func (h *ClusterHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteCluster(ctx, &ecs.DeleteClusterInput{Cluster: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", req.ID, err)
	}
	return nil
}

// TaskDefinitionHandler manages aws:ecs:TaskDefinition revisions for a
// single-container Fargate task with the persistent volume mounted. Task
// definitions are immutable, so every change registers a new revision.
//
// Inputs: family, cpu, memory, executionRoleArn, taskRoleArn, containerName,
// image, containerPort, environment, secrets, fileSystemId, accessPointId,
// mountPath, tags. Outputs: id, arn, family, revision.
type TaskDefinitionHandler struct {
	base
	api ECSAPI
}

// ReplaceOnChange implements resource.Replacer.
func (h *TaskDefinitionHandler) ReplaceOnChange() []string {
	return []string{
		"family", "cpu", "memory", "executionRoleArn", "taskRoleArn",
		"containerName", "image", "containerPort", "environment", "secrets",
		"fileSystemId", "accessPointId", "mountPath", keyTags,
	}
}

// sortedPairs returns the entries of a nested map ordered by key. Secret
// values are revealed here, at the provider boundary.
func sortedPairs(m resource.Properties) [][2]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, m.String(k)})
	}
	return out
}

func containerDefinition(in resource.Properties) (ecstypes.ContainerDefinition, error) {
	name, err := required(in, "containerName")
	if err != nil {
		return ecstypes.ContainerDefinition{}, err
	}
	image, err := required(in, "image")
	if err != nil {
		return ecstypes.ContainerDefinition{}, err
	}
	def := ecstypes.ContainerDefinition{
		Name:      aws.String(name),
		Image:     aws.String(image),
		Essential: aws.Bool(true),
		PortMappings: []ecstypes.PortMapping{{
			ContainerPort: aws.Int32(int32Of(in, "containerPort")),
			Protocol:      ecstypes.TransportProtocolTcp,
		}},
	}
	for _, kv := range sortedPairs(in.Map("environment")) {
		def.Environment = append(def.Environment, ecstypes.KeyValuePair{Name: aws.String(kv[0]), Value: aws.String(kv[1])})
	}
	for _, kv := range sortedPairs(in.Map("secrets")) {
		def.Secrets = append(def.Secrets, ecstypes.Secret{Name: aws.String(kv[0]), ValueFrom: aws.String(kv[1])})
	}
	if in.String("fileSystemId") != "" {
		def.MountPoints = []ecstypes.MountPoint{{
			SourceVolume:  aws.String(dataVolumeName),
			ContainerPath: aws.String(in.String("mountPath")),
			ReadOnly:      aws.Bool(false),
		}}
	}
	return def, nil
}

func dataVolume(in resource.Properties) []ecstypes.Volume {
	fsID := in.String("fileSystemId")
	if fsID == "" {
		return nil
	}
	cfg := &ecstypes.EFSVolumeConfiguration{
		FileSystemId:      aws.String(fsID),
		TransitEncryption: ecstypes.EFSTransitEncryptionEnabled,
	}
	if ap := in.String("accessPointId"); ap != "" {
		cfg.AuthorizationConfig = &ecstypes.EFSAuthorizationConfig{
			AccessPointId: aws.String(ap),
			Iam:           ecstypes.EFSAuthorizationConfigIAMEnabled,
		}
	}
	return []ecstypes.Volume{{Name: aws.String(dataVolumeName), EfsVolumeConfiguration: cfg}}
}

func optional(p resource.Properties, key string) *string {
	if v := p.String(key); v != "" {
		return aws.String(v)
	}
	return nil
}

// Create implements resource.Handler.
func (h *TaskDefinitionHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	in := req.Inputs
	family, err := required(in, "family")
	if err != nil {
		return nil, err
	}
	container, err := containerDefinition(in)
	if err != nil {
		return nil, err
	}

	var td *ecstypes.TaskDefinition
	err = h.create(ctx, func(ctx context.Context) error {
		out, err := h.api.RegisterTaskDefinition(ctx, &ecs.RegisterTaskDefinitionInput{
			Family:                  aws.String(family),
			Cpu:                     aws.String(strconv.Itoa(in.Int("cpu"))),
			Memory:                  aws.String(strconv.Itoa(in.Int("memory"))),
			NetworkMode:             ecstypes.NetworkModeAwsvpc,
			RequiresCompatibilities: []ecstypes.Compatibility{ecstypes.CompatibilityFargate},
			ExecutionRoleArn:        optional(in, "executionRoleArn"),
			TaskRoleArn:             optional(in, "taskRoleArn"),
			ContainerDefinitions:    []ecstypes.ContainerDefinition{container},
			Volumes:                 dataVolume(in),
			Tags:                    ecsTags(tagMap(in)),
		})
		if err != nil {
			return err
		}
		td = out.TaskDefinition
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register task definition %s: %w", family, err)
	}
	arn := aws.ToString(td.TaskDefinitionArn)
	return &resource.Result{ID: arn, Outputs: resource.Properties{
		resource.OutputID:  arn,
		resource.OutputARN: arn,
		"family":           family,
		"revision":         int(td.Revision),
	}}, nil
}

// Update implements resource.Handler. Every input forces a new revision.
func (h *TaskDefinitionHandler) Update(_ context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler by deregistering the revision.
func (h *TaskDefinitionHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeregisterTaskDefinition(ctx, &ecs.DeregisterTaskDefinitionInput{TaskDefinition: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to deregister task definition %s: %w", req.ID, err)
	}
	return nil
}

// ServiceHandler manages aws:ecs:Service on Fargate behind a target group.
// Deployments stop the old task before starting the new one so that only
// one task writes to the volume.
//
// Inputs: name, clusterArn, taskDefinitionArn, desiredCount, subnetIds,
// securityGroupIds, assignPublicIp, targetGroupArn, containerName,
// containerPort, tags. Outputs: id, arn, name, clusterArn.
type ServiceHandler struct {
	base
	api ECSAPI
}

// ReplaceOnChange implements resource.Replacer.
func (h *ServiceHandler) ReplaceOnChange() []string {
	return []string{keyName, "clusterArn", "targetGroupArn", "containerName", "containerPort"}
}

// DeleteBeforeReplace implements resource.DeleteBeforeReplacer. Two services
// would mount the same data volume, and ECS reuses the name once the old one
// has drained.
func (h *ServiceHandler) DeleteBeforeReplace() bool { return true }

func networkConfiguration(in resource.Properties) *ecstypes.NetworkConfiguration {
	assign := ecstypes.AssignPublicIpDisabled
	if in.Bool("assignPublicIp") {
		assign = ecstypes.AssignPublicIpEnabled
	}
	return &ecstypes.NetworkConfiguration{AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
		Subnets:        in.Strings(keySubnetIDs),
		SecurityGroups: in.Strings(keySecurityGroupIDs),
		AssignPublicIp: assign,
	}}
}

func (h *ServiceHandler) describe(ctx context.Context, cluster, service string) (*ecstypes.Service, error) {
	out, err := h.api.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		return nil, err
	}
	for i := range out.Services {
		if aws.ToString(out.Services[i].Status) != statusInactive {
			return &out.Services[i], nil
		}
	}
	return nil, nil
}

func serviceOutputs(arn, name, cluster string) resource.Properties {
	return resource.Properties{
		resource.OutputID:  arn,
		resource.OutputARN: arn,
		keyName:            name,
		"clusterArn":       cluster,
	}
}

// Create implements resource.Handler.
func (h *ServiceHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	in := req.Inputs
	name, err := required(in, keyName)
	if err != nil {
		return nil, err
	}
	cluster, err := required(in, "clusterArn")
	if err != nil {
		return nil, err
	}
	taskDef, err := required(in, "taskDefinitionArn")
	if err != nil {
		return nil, err
	}

	var lbs []ecstypes.LoadBalancer
	if tg := in.String("targetGroupArn"); tg != "" {
		lbs = []ecstypes.LoadBalancer{{
			TargetGroupArn: aws.String(tg),
			ContainerName:  aws.String(in.String("containerName")),
			ContainerPort:  aws.Int32(int32Of(in, "containerPort")),
		}}
	}

	arn, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) {
			svc, err := h.describe(ctx, cluster, name)
			if err != nil || svc == nil || !adoptable(req, aws.ToString(svc.ServiceArn)) {
				return "", false, err
			}
			return aws.ToString(svc.ServiceArn), true, nil
		},
		func(ctx context.Context) (string, error) {
			out, err := h.api.CreateService(ctx, &ecs.CreateServiceInput{
				ServiceName:          aws.String(name),
				Cluster:              aws.String(cluster),
				TaskDefinition:       aws.String(taskDef),
				DesiredCount:         aws.Int32(int32Of(in, "desiredCount")),
				LaunchType:           ecstypes.LaunchTypeFargate,
				NetworkConfiguration: networkConfiguration(in),
				LoadBalancers:        lbs,
				DeploymentConfiguration: &ecstypes.DeploymentConfiguration{
					MinimumHealthyPercent: aws.Int32(0),
					MaximumPercent:        aws.Int32(100),
				},
				HealthCheckGracePeriodSeconds: aws.Int32(60),
				Tags:                          ecsTags(tagMap(in)),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Service.ServiceArn), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create service %s: %w", name, err)
	}
	return &resource.Result{ID: arn, Outputs: serviceOutputs(arn, name, cluster)}, nil
}

// Update implements resource.Handler.
func (h *ServiceHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	in := req.Inputs
	err := h.create(ctx, func(ctx context.Context) error {
		_, err := h.api.UpdateService(ctx, &ecs.UpdateServiceInput{
			Cluster:              aws.String(in.String("clusterArn")),
			Service:              aws.String(req.ID),
			TaskDefinition:       aws.String(in.String("taskDefinitionArn")),
			DesiredCount:         aws.Int32(int32Of(in, "desiredCount")),
			NetworkConfiguration: networkConfiguration(in),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update service %s: %w", req.ID, err)
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler. Running tasks are stopped and the
// call returns once the service is inactive.
func (h *ServiceHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	cluster := req.Outputs.String("clusterArn")
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteService(ctx, &ecs.DeleteServiceInput{
			Cluster: aws.String(cluster),
			Service: aws.String(req.ID),
			Force:   aws.Bool(true),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete service %s: %w", req.ID, err)
	}
	return h.waitFor(ctx, "service "+req.ID+" to drain", func(ctx context.Context) (bool, error) {
		svc, err := h.describe(ctx, cluster, req.ID)
		if isNotFound(err) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		return svc == nil, nil
	})
}

// Read implements resource.Reader.
func (h *ServiceHandler) Read(ctx context.Context, id string, outputs resource.Properties) (resource.Properties, bool, error) {
	svc, err := h.describe(ctx, outputs.String("clusterArn"), id)
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to describe service %s: %w", id, err)
	}
	return outputs, svc != nil, nil
}

// WaitReady implements resource.Waiter. A service is ready once a single
// deployment runs the desired number of tasks.
func (h *ServiceHandler) WaitReady(ctx context.Context, id string, outputs resource.Properties) error {
	cluster := outputs.String("clusterArn")
	return h.waitFor(ctx, "service "+id, func(ctx context.Context) (bool, error) {
		svc, err := h.describe(ctx, cluster, id)
		if err != nil {
			return false, err
		}
		if svc == nil {
			return false, nil
		}
		return len(svc.Deployments) == 1 && svc.RunningCount == svc.DesiredCount && svc.DesiredCount > 0, nil
	})
}
