package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/resource"
)

func taskInputs() resource.Properties {
	return resource.Properties{
		"family":        "demo-prod-search",
		"cpu":           256,
		"memory":        512,
		"taskRoleArn":   "arn:role/task",
		"containerName": "search",
		"image":         "typesense/typesense:27.1",
		"containerPort": 8108,
		"environment": map[string]any{
			"TYPESENSE_DATA_DIR": "/data",
			"TYPESENSE_API_KEY":  resource.Secret("s3cr3t"),
		},
		"fileSystemId":  "fs-1",
		"accessPointId": "fsap-1",
		"mountPath":     "/data",
	}
}

func TestTaskDefinitionHandler_Create(t *testing.T) {
	t.Parallel()

	var got *ecs.RegisterTaskDefinitionInput
	m := &mockECS{
		RegisterTaskDefinitionFunc: func(_ context.Context, in *ecs.RegisterTaskDefinitionInput) (*ecs.RegisterTaskDefinitionOutput, error) {
			got = in
			return &ecs.RegisterTaskDefinitionOutput{TaskDefinition: &ecstypes.TaskDefinition{
				TaskDefinitionArn: aws.String("arn:td:3"),
				Revision:          3,
			}}, nil
		},
	}
	h := &TaskDefinitionHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "task-definition", Inputs: taskInputs()})
	require.NoError(t, err)
	assert.Equal(t, "arn:td:3", res.ID)
	assert.Equal(t, 3, res.Outputs["revision"])

	require.NotNil(t, got)
	assert.Equal(t, "256", aws.ToString(got.Cpu))
	assert.Equal(t, "512", aws.ToString(got.Memory))
	assert.Equal(t, ecstypes.NetworkModeAwsvpc, got.NetworkMode)
	assert.Nil(t, got.ExecutionRoleArn)

	require.Len(t, got.ContainerDefinitions, 1)
	c := got.ContainerDefinitions[0]
	assert.True(t, aws.ToBool(c.Essential))
	require.Len(t, c.Environment, 2)
	assert.Equal(t, "TYPESENSE_API_KEY", aws.ToString(c.Environment[0].Name))
	assert.Equal(t, "s3cr3t", aws.ToString(c.Environment[0].Value))
	assert.Equal(t, "TYPESENSE_DATA_DIR", aws.ToString(c.Environment[1].Name))
	assert.Empty(t, c.Command)
	require.Len(t, c.MountPoints, 1)
	assert.Equal(t, "/data", aws.ToString(c.MountPoints[0].ContainerPath))

	require.Len(t, got.Volumes, 1)
	vol := got.Volumes[0].EfsVolumeConfiguration
	require.NotNil(t, vol)
	assert.Equal(t, ecstypes.EFSTransitEncryptionEnabled, vol.TransitEncryption)
	assert.Equal(t, "fsap-1", aws.ToString(vol.AuthorizationConfig.AccessPointId))
	assert.Equal(t, ecstypes.EFSAuthorizationConfigIAMEnabled, vol.AuthorizationConfig.Iam)
}

func TestTaskDefinitionHandler_SecretsBinding(t *testing.T) {
	t.Parallel()

	var got *ecs.RegisterTaskDefinitionInput
	m := &mockECS{
		RegisterTaskDefinitionFunc: func(_ context.Context, in *ecs.RegisterTaskDefinitionInput) (*ecs.RegisterTaskDefinitionOutput, error) {
			got = in
			return &ecs.RegisterTaskDefinitionOutput{TaskDefinition: &ecstypes.TaskDefinition{TaskDefinitionArn: aws.String("arn:td:1")}}, nil
		},
	}
	h := &TaskDefinitionHandler{base: testBase(), api: m}

	in := taskInputs()
	in["environment"] = map[string]any{"TYPESENSE_DATA_DIR": "/data"}
	in["secrets"] = map[string]any{"TYPESENSE_API_KEY": "arn:aws:secretsmanager:eu-west-1:1:secret:admin"}
	_, err := h.Create(context.Background(), &resource.CreateRequest{Name: "task-definition", Inputs: in})
	require.NoError(t, err)

	c := got.ContainerDefinitions[0]
	require.Len(t, c.Secrets, 1)
	assert.Equal(t, "TYPESENSE_API_KEY", aws.ToString(c.Secrets[0].Name))
	assert.Equal(t, "arn:aws:secretsmanager:eu-west-1:1:secret:admin", aws.ToString(c.Secrets[0].ValueFrom))
	for _, kv := range c.Environment {
		assert.NotEqual(t, "TYPESENSE_API_KEY", aws.ToString(kv.Name))
	}
}

func TestServiceHandler_Create(t *testing.T) {
	t.Parallel()

	m := &mockECS{
		CreateServiceFunc: func(_ context.Context, in *ecs.CreateServiceInput) (*ecs.CreateServiceOutput, error) {
			assert.Equal(t, int32(1), aws.ToInt32(in.DesiredCount))
			assert.Equal(t, ecstypes.LaunchTypeFargate, in.LaunchType)
			assert.Equal(t, int32(0), aws.ToInt32(in.DeploymentConfiguration.MinimumHealthyPercent))
			assert.Equal(t, int32(100), aws.ToInt32(in.DeploymentConfiguration.MaximumPercent))
			assert.Equal(t, ecstypes.AssignPublicIpEnabled, in.NetworkConfiguration.AwsvpcConfiguration.AssignPublicIp)
			require.Len(t, in.LoadBalancers, 1)
			assert.Equal(t, "search", aws.ToString(in.LoadBalancers[0].ContainerName))
			assert.Equal(t, int32(8108), aws.ToInt32(in.LoadBalancers[0].ContainerPort))
			return &ecs.CreateServiceOutput{Service: &ecstypes.Service{ServiceArn: aws.String("arn:svc")}}, nil
		},
	}
	h := &ServiceHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "service", Inputs: resource.Properties{
		"name":              "demo-prod-search",
		"clusterArn":        "arn:cluster",
		"taskDefinitionArn": "arn:td:1",
		"desiredCount":      1,
		"subnetIds":         []string{"subnet-a"},
		"securityGroupIds":  []string{"sg-1"},
		"assignPublicIp":    true,
		"targetGroupArn":    "arn:tg",
		"containerName":     "search",
		"containerPort":     8108,
	}})
	require.NoError(t, err)
	assert.Equal(t, "arn:svc", res.ID)
	assert.Equal(t, "arn:cluster", res.Outputs["clusterArn"])
}

func TestServiceHandler_WaitReady(t *testing.T) {
	t.Parallel()

	polls := 0
	m := &mockECS{
		DescribeServicesFunc: func(_ context.Context, in *ecs.DescribeServicesInput) (*ecs.DescribeServicesOutput, error) {
			assert.Equal(t, "arn:cluster", aws.ToString(in.Cluster))
			polls++
			svc := ecstypes.Service{Status: aws.String("ACTIVE"), DesiredCount: 1}
			switch polls {
			case 1:
				svc.Deployments = []ecstypes.Deployment{{}, {}}
			case 2:
				svc.Deployments = []ecstypes.Deployment{{}}
			default:
				svc.Deployments = []ecstypes.Deployment{{}}
				svc.RunningCount = 1
			}
			return &ecs.DescribeServicesOutput{Services: []ecstypes.Service{svc}}, nil
		},
	}
	h := &ServiceHandler{base: testBase(), api: m}

	require.NoError(t, h.WaitReady(context.Background(), "arn:svc", resource.Properties{"clusterArn": "arn:cluster"}))
	assert.Equal(t, 3, polls)
}

func TestServiceHandler_DeleteWaitsForDrain(t *testing.T) {
	t.Parallel()

	var deleted *ecs.DeleteServiceInput
	polls := 0
	m := &mockECS{
		DeleteServiceFunc: func(_ context.Context, in *ecs.DeleteServiceInput) (*ecs.DeleteServiceOutput, error) {
			deleted = in
			return &ecs.DeleteServiceOutput{}, nil
		},
		DescribeServicesFunc: func(context.Context, *ecs.DescribeServicesInput) (*ecs.DescribeServicesOutput, error) {
			polls++
			status := "DRAINING"
			if polls > 1 {
				status = "INACTIVE"
			}
			return &ecs.DescribeServicesOutput{Services: []ecstypes.Service{{Status: aws.String(status)}}}, nil
		},
	}
	h := &ServiceHandler{base: testBase(), api: m}

	err := h.Delete(context.Background(), &resource.DeleteRequest{
		Name: "service", ID: "arn:svc", Outputs: resource.Properties{"clusterArn": "arn:cluster"},
	})
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.True(t, aws.ToBool(deleted.Force))
	assert.Equal(t, 2, polls)
}

func TestReplacementOrdering(t *testing.T) {
	t.Parallel()

	var svc resource.Handler = &ServiceHandler{base: testBase(), api: &mockECS{}}
	dbr, ok := svc.(resource.DeleteBeforeReplacer)
	require.True(t, ok)
	assert.True(t, dbr.DeleteBeforeReplace())

	var tg resource.Handler = &TargetGroupHandler{base: testBase(), api: &mockELB{}}
	_, ok = tg.(resource.DeleteBeforeReplacer)
	assert.False(t, ok, "target groups are renamed and created before the old one is removed")
}

func TestClusterHandler_CreateAdoptsActive(t *testing.T) {
	t.Parallel()

	m := &mockECS{
		DescribeClustersFunc: func(context.Context, *ecs.DescribeClustersInput) (*ecs.DescribeClustersOutput, error) {
			return &ecs.DescribeClustersOutput{Clusters: []ecstypes.Cluster{
				{ClusterArn: aws.String("arn:old"), Status: aws.String("INACTIVE")},
			}}, nil
		},
		CreateClusterFunc: func(context.Context, *ecs.CreateClusterInput) (*ecs.CreateClusterOutput, error) {
			return &ecs.CreateClusterOutput{Cluster: &ecstypes.Cluster{ClusterArn: aws.String("arn:new")}}, nil
		},
	}
	h := &ClusterHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "cluster", Inputs: resource.Properties{"name": "demo-prod"}})
	require.NoError(t, err)
	assert.Equal(t, "arn:new", res.ID)
}

func TestSecretResolver(t *testing.T) {
	t.Parallel()

	t.Run("resolves arn", func(t *testing.T) {
		r := NewSecretResolver(&mockSecrets{DescribeSecretFunc: func(_ context.Context, in *secretsmanager.DescribeSecretInput) (*secretsmanager.DescribeSecretOutput, error) {
			assert.Equal(t, "search/admin", aws.ToString(in.SecretId))
			return &secretsmanager.DescribeSecretOutput{ARN: aws.String("arn:secret:search/admin-AbCd")}, nil
		}}, config.TestTimeouts())
		arn, err := r.ResolveARN(context.Background(), "search/admin")
		require.NoError(t, err)
		assert.Equal(t, "arn:secret:search/admin-AbCd", arn)
	})

	t.Run("missing", func(t *testing.T) {
		r := NewSecretResolver(&mockSecrets{DescribeSecretFunc: func(context.Context, *secretsmanager.DescribeSecretInput) (*secretsmanager.DescribeSecretOutput, error) {
			return nil, apiError("ResourceNotFoundException")
		}}, config.TestTimeouts())
		_, err := r.ResolveARN(context.Background(), "nope")
		assert.True(t, errors.Is(err, ErrSecretNotFound))
	})
}

func TestRegister_CoversAllAWSKinds(t *testing.T) {
	t.Parallel()

	reg := resource.Registry{}
	Register(reg, &Clients{EC2: &mockEC2{}, EFS: &mockEFS{}, ELB: &mockELB{}, ECS: &mockECS{}}, config.TestTimeouts())
	for _, kind := range resource.AllKinds() {
		if kind == resource.KindDNSRecord {
			continue
		}
		_, err := reg.Handler(kind)
		assert.NoError(t, err, kind)
	}
}
