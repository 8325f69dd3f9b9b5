package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/efs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/imamik/searchstack/internal/config"
)

// apiError builds an AWS API error with the given code.
func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func testBase() base {
	return base{timeouts: config.TestTimeouts()}
}

// mockEC2 implements EC2API. Methods without a Func return empty outputs;
// methods the tests never reach fall through to the nil embedded interface.
type mockEC2 struct {
	EC2API

	CreateVpcFunc                     func(ctx context.Context, in *ec2.CreateVpcInput) (*ec2.CreateVpcOutput, error)
	DescribeVpcsFunc                  func(ctx context.Context, in *ec2.DescribeVpcsInput) (*ec2.DescribeVpcsOutput, error)
	ModifyVpcAttributeFunc            func(ctx context.Context, in *ec2.ModifyVpcAttributeInput) (*ec2.ModifyVpcAttributeOutput, error)
	DeleteVpcFunc                     func(ctx context.Context, in *ec2.DeleteVpcInput) (*ec2.DeleteVpcOutput, error)
	CreateInternetGatewayFunc         func(ctx context.Context, in *ec2.CreateInternetGatewayInput) (*ec2.CreateInternetGatewayOutput, error)
	DescribeInternetGatewaysFunc      func(ctx context.Context, in *ec2.DescribeInternetGatewaysInput) (*ec2.DescribeInternetGatewaysOutput, error)
	AttachInternetGatewayFunc         func(ctx context.Context, in *ec2.AttachInternetGatewayInput) (*ec2.AttachInternetGatewayOutput, error)
	DetachInternetGatewayFunc         func(ctx context.Context, in *ec2.DetachInternetGatewayInput) (*ec2.DetachInternetGatewayOutput, error)
	DeleteInternetGatewayFunc         func(ctx context.Context, in *ec2.DeleteInternetGatewayInput) (*ec2.DeleteInternetGatewayOutput, error)
	CreateSubnetFunc                  func(ctx context.Context, in *ec2.CreateSubnetInput) (*ec2.CreateSubnetOutput, error)
	DescribeSubnetsFunc               func(ctx context.Context, in *ec2.DescribeSubnetsInput) (*ec2.DescribeSubnetsOutput, error)
	ModifySubnetAttributeFunc         func(ctx context.Context, in *ec2.ModifySubnetAttributeInput) (*ec2.ModifySubnetAttributeOutput, error)
	CreateSecurityGroupFunc           func(ctx context.Context, in *ec2.CreateSecurityGroupInput) (*ec2.CreateSecurityGroupOutput, error)
	DescribeSecurityGroupsFunc        func(ctx context.Context, in *ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error)
	DeleteSecurityGroupFunc           func(ctx context.Context, in *ec2.DeleteSecurityGroupInput) (*ec2.DeleteSecurityGroupOutput, error)
	AuthorizeSecurityGroupIngressFunc func(ctx context.Context, in *ec2.AuthorizeSecurityGroupIngressInput) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
	AuthorizeSecurityGroupEgressFunc  func(ctx context.Context, in *ec2.AuthorizeSecurityGroupEgressInput) (*ec2.AuthorizeSecurityGroupEgressOutput, error)
	RevokeSecurityGroupIngressFunc    func(ctx context.Context, in *ec2.RevokeSecurityGroupIngressInput) (*ec2.RevokeSecurityGroupIngressOutput, error)
	RevokeSecurityGroupEgressFunc     func(ctx context.Context, in *ec2.RevokeSecurityGroupEgressInput) (*ec2.RevokeSecurityGroupEgressOutput, error)
	DescribeSecurityGroupRulesFunc    func(ctx context.Context, in *ec2.DescribeSecurityGroupRulesInput) (*ec2.DescribeSecurityGroupRulesOutput, error)
	CreateTagsFunc                    func(ctx context.Context, in *ec2.CreateTagsInput) (*ec2.CreateTagsOutput, error)
}

func (m *mockEC2) CreateVpc(ctx context.Context, in *ec2.CreateVpcInput, _ ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error) {
	return m.CreateVpcFunc(ctx, in)
}

func (m *mockEC2) DescribeVpcs(ctx context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	if m.DescribeVpcsFunc != nil {
		return m.DescribeVpcsFunc(ctx, in)
	}
	return &ec2.DescribeVpcsOutput{}, nil
}

func (m *mockEC2) ModifyVpcAttribute(ctx context.Context, in *ec2.ModifyVpcAttributeInput, _ ...func(*ec2.Options)) (*ec2.ModifyVpcAttributeOutput, error) {
	if m.ModifyVpcAttributeFunc != nil {
		return m.ModifyVpcAttributeFunc(ctx, in)
	}
	return &ec2.ModifyVpcAttributeOutput{}, nil
}

func (m *mockEC2) DeleteVpc(ctx context.Context, in *ec2.DeleteVpcInput, _ ...func(*ec2.Options)) (*ec2.DeleteVpcOutput, error) {
	if m.DeleteVpcFunc != nil {
		return m.DeleteVpcFunc(ctx, in)
	}
	return &ec2.DeleteVpcOutput{}, nil
}

func (m *mockEC2) CreateInternetGateway(ctx context.Context, in *ec2.CreateInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.CreateInternetGatewayOutput, error) {
	return m.CreateInternetGatewayFunc(ctx, in)
}

func (m *mockEC2) DescribeInternetGateways(ctx context.Context, in *ec2.DescribeInternetGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error) {
	if m.DescribeInternetGatewaysFunc != nil {
		return m.DescribeInternetGatewaysFunc(ctx, in)
	}
	return &ec2.DescribeInternetGatewaysOutput{}, nil
}

func (m *mockEC2) AttachInternetGateway(ctx context.Context, in *ec2.AttachInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.AttachInternetGatewayOutput, error) {
	if m.AttachInternetGatewayFunc != nil {
		return m.AttachInternetGatewayFunc(ctx, in)
	}
	return &ec2.AttachInternetGatewayOutput{}, nil
}

func (m *mockEC2) DetachInternetGateway(ctx context.Context, in *ec2.DetachInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.DetachInternetGatewayOutput, error) {
	if m.DetachInternetGatewayFunc != nil {
		return m.DetachInternetGatewayFunc(ctx, in)
	}
	return &ec2.DetachInternetGatewayOutput{}, nil
}

func (m *mockEC2) DeleteInternetGateway(ctx context.Context, in *ec2.DeleteInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.DeleteInternetGatewayOutput, error) {
	if m.DeleteInternetGatewayFunc != nil {
		return m.DeleteInternetGatewayFunc(ctx, in)
	}
	return &ec2.DeleteInternetGatewayOutput{}, nil
}

func (m *mockEC2) CreateSubnet(ctx context.Context, in *ec2.CreateSubnetInput, _ ...func(*ec2.Options)) (*ec2.CreateSubnetOutput, error) {
	return m.CreateSubnetFunc(ctx, in)
}

func (m *mockEC2) DescribeSubnets(ctx context.Context, in *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	if m.DescribeSubnetsFunc != nil {
		return m.DescribeSubnetsFunc(ctx, in)
	}
	return &ec2.DescribeSubnetsOutput{}, nil
}

func (m *mockEC2) ModifySubnetAttribute(ctx context.Context, in *ec2.ModifySubnetAttributeInput, _ ...func(*ec2.Options)) (*ec2.ModifySubnetAttributeOutput, error) {
	if m.ModifySubnetAttributeFunc != nil {
		return m.ModifySubnetAttributeFunc(ctx, in)
	}
	return &ec2.ModifySubnetAttributeOutput{}, nil
}

func (m *mockEC2) CreateSecurityGroup(ctx context.Context, in *ec2.CreateSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	return m.CreateSecurityGroupFunc(ctx, in)
}

func (m *mockEC2) DescribeSecurityGroups(ctx context.Context, in *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	if m.DescribeSecurityGroupsFunc != nil {
		return m.DescribeSecurityGroupsFunc(ctx, in)
	}
	return &ec2.DescribeSecurityGroupsOutput{}, nil
}

func (m *mockEC2) DeleteSecurityGroup(ctx context.Context, in *ec2.DeleteSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.DeleteSecurityGroupOutput, error) {
	if m.DeleteSecurityGroupFunc != nil {
		return m.DeleteSecurityGroupFunc(ctx, in)
	}
	return &ec2.DeleteSecurityGroupOutput{}, nil
}

func (m *mockEC2) AuthorizeSecurityGroupIngress(ctx context.Context, in *ec2.AuthorizeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	return m.AuthorizeSecurityGroupIngressFunc(ctx, in)
}

func (m *mockEC2) AuthorizeSecurityGroupEgress(ctx context.Context, in *ec2.AuthorizeSecurityGroupEgressInput, _ ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupEgressOutput, error) {
	return m.AuthorizeSecurityGroupEgressFunc(ctx, in)
}

func (m *mockEC2) RevokeSecurityGroupIngress(ctx context.Context, in *ec2.RevokeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupIngressOutput, error) {
	if m.RevokeSecurityGroupIngressFunc != nil {
		return m.RevokeSecurityGroupIngressFunc(ctx, in)
	}
	return &ec2.RevokeSecurityGroupIngressOutput{}, nil
}

func (m *mockEC2) RevokeSecurityGroupEgress(ctx context.Context, in *ec2.RevokeSecurityGroupEgressInput, _ ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupEgressOutput, error) {
	if m.RevokeSecurityGroupEgressFunc != nil {
		return m.RevokeSecurityGroupEgressFunc(ctx, in)
	}
	return &ec2.RevokeSecurityGroupEgressOutput{}, nil
}

func (m *mockEC2) DescribeSecurityGroupRules(ctx context.Context, in *ec2.DescribeSecurityGroupRulesInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupRulesOutput, error) {
	if m.DescribeSecurityGroupRulesFunc != nil {
		return m.DescribeSecurityGroupRulesFunc(ctx, in)
	}
	return &ec2.DescribeSecurityGroupRulesOutput{}, nil
}

func (m *mockEC2) CreateTags(ctx context.Context, in *ec2.CreateTagsInput, _ ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	if m.CreateTagsFunc != nil {
		return m.CreateTagsFunc(ctx, in)
	}
	return &ec2.CreateTagsOutput{}, nil
}

// mockEFS implements EFSAPI.
type mockEFS struct {
	EFSAPI

	CreateFileSystemFunc          func(ctx context.Context, in *efs.CreateFileSystemInput) (*efs.CreateFileSystemOutput, error)
	DescribeFileSystemsFunc       func(ctx context.Context, in *efs.DescribeFileSystemsInput) (*efs.DescribeFileSystemsOutput, error)
	PutLifecycleConfigurationFunc func(ctx context.Context, in *efs.PutLifecycleConfigurationInput) (*efs.PutLifecycleConfigurationOutput, error)
	DeleteFileSystemFunc          func(ctx context.Context, in *efs.DeleteFileSystemInput) (*efs.DeleteFileSystemOutput, error)
	CreateMountTargetFunc         func(ctx context.Context, in *efs.CreateMountTargetInput) (*efs.CreateMountTargetOutput, error)
	DescribeMountTargetsFunc      func(ctx context.Context, in *efs.DescribeMountTargetsInput) (*efs.DescribeMountTargetsOutput, error)
	CreateAccessPointFunc         func(ctx context.Context, in *efs.CreateAccessPointInput) (*efs.CreateAccessPointOutput, error)
	DescribeAccessPointsFunc      func(ctx context.Context, in *efs.DescribeAccessPointsInput) (*efs.DescribeAccessPointsOutput, error)
}

func (m *mockEFS) CreateFileSystem(ctx context.Context, in *efs.CreateFileSystemInput, _ ...func(*efs.Options)) (*efs.CreateFileSystemOutput, error) {
	return m.CreateFileSystemFunc(ctx, in)
}

func (m *mockEFS) DescribeFileSystems(ctx context.Context, in *efs.DescribeFileSystemsInput, _ ...func(*efs.Options)) (*efs.DescribeFileSystemsOutput, error) {
	if m.DescribeFileSystemsFunc != nil {
		return m.DescribeFileSystemsFunc(ctx, in)
	}
	return &efs.DescribeFileSystemsOutput{}, nil
}

func (m *mockEFS) PutLifecycleConfiguration(ctx context.Context, in *efs.PutLifecycleConfigurationInput, _ ...func(*efs.Options)) (*efs.PutLifecycleConfigurationOutput, error) {
	if m.PutLifecycleConfigurationFunc != nil {
		return m.PutLifecycleConfigurationFunc(ctx, in)
	}
	return &efs.PutLifecycleConfigurationOutput{}, nil
}

func (m *mockEFS) DeleteFileSystem(ctx context.Context, in *efs.DeleteFileSystemInput, _ ...func(*efs.Options)) (*efs.DeleteFileSystemOutput, error) {
	if m.DeleteFileSystemFunc != nil {
		return m.DeleteFileSystemFunc(ctx, in)
	}
	return &efs.DeleteFileSystemOutput{}, nil
}

func (m *mockEFS) CreateMountTarget(ctx context.Context, in *efs.CreateMountTargetInput, _ ...func(*efs.Options)) (*efs.CreateMountTargetOutput, error) {
	return m.CreateMountTargetFunc(ctx, in)
}

func (m *mockEFS) DescribeMountTargets(ctx context.Context, in *efs.DescribeMountTargetsInput, _ ...func(*efs.Options)) (*efs.DescribeMountTargetsOutput, error) {
	if m.DescribeMountTargetsFunc != nil {
		return m.DescribeMountTargetsFunc(ctx, in)
	}
	return &efs.DescribeMountTargetsOutput{}, nil
}

func (m *mockEFS) CreateAccessPoint(ctx context.Context, in *efs.CreateAccessPointInput, _ ...func(*efs.Options)) (*efs.CreateAccessPointOutput, error) {
	return m.CreateAccessPointFunc(ctx, in)
}

func (m *mockEFS) DescribeAccessPoints(ctx context.Context, in *efs.DescribeAccessPointsInput, _ ...func(*efs.Options)) (*efs.DescribeAccessPointsOutput, error) {
	if m.DescribeAccessPointsFunc != nil {
		return m.DescribeAccessPointsFunc(ctx, in)
	}
	return &efs.DescribeAccessPointsOutput{}, nil
}

// mockELB implements ELBAPI.
type mockELB struct {
	ELBAPI

	CreateLoadBalancerFunc    func(ctx context.Context, in *elbv2.CreateLoadBalancerInput) (*elbv2.CreateLoadBalancerOutput, error)
	DescribeLoadBalancersFunc func(ctx context.Context, in *elbv2.DescribeLoadBalancersInput) (*elbv2.DescribeLoadBalancersOutput, error)
	CreateTargetGroupFunc     func(ctx context.Context, in *elbv2.CreateTargetGroupInput) (*elbv2.CreateTargetGroupOutput, error)
	DescribeTargetGroupsFunc  func(ctx context.Context, in *elbv2.DescribeTargetGroupsInput) (*elbv2.DescribeTargetGroupsOutput, error)
	CreateListenerFunc        func(ctx context.Context, in *elbv2.CreateListenerInput) (*elbv2.CreateListenerOutput, error)
	DescribeListenersFunc     func(ctx context.Context, in *elbv2.DescribeListenersInput) (*elbv2.DescribeListenersOutput, error)
	ModifyListenerFunc        func(ctx context.Context, in *elbv2.ModifyListenerInput) (*elbv2.ModifyListenerOutput, error)
}

func (m *mockELB) CreateLoadBalancer(ctx context.Context, in *elbv2.CreateLoadBalancerInput, _ ...func(*elbv2.Options)) (*elbv2.CreateLoadBalancerOutput, error) {
	return m.CreateLoadBalancerFunc(ctx, in)
}

func (m *mockELB) DescribeLoadBalancers(ctx context.Context, in *elbv2.DescribeLoadBalancersInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
	if m.DescribeLoadBalancersFunc != nil {
		return m.DescribeLoadBalancersFunc(ctx, in)
	}
	return nil, apiError("LoadBalancerNotFound")
}

func (m *mockELB) CreateTargetGroup(ctx context.Context, in *elbv2.CreateTargetGroupInput, _ ...func(*elbv2.Options)) (*elbv2.CreateTargetGroupOutput, error) {
	return m.CreateTargetGroupFunc(ctx, in)
}

func (m *mockELB) DescribeTargetGroups(ctx context.Context, in *elbv2.DescribeTargetGroupsInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
	if m.DescribeTargetGroupsFunc != nil {
		return m.DescribeTargetGroupsFunc(ctx, in)
	}
	return nil, apiError("TargetGroupNotFound")
}

func (m *mockELB) CreateListener(ctx context.Context, in *elbv2.CreateListenerInput, _ ...func(*elbv2.Options)) (*elbv2.CreateListenerOutput, error) {
	return m.CreateListenerFunc(ctx, in)
}

func (m *mockELB) DescribeListeners(ctx context.Context, in *elbv2.DescribeListenersInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error) {
	if m.DescribeListenersFunc != nil {
		return m.DescribeListenersFunc(ctx, in)
	}
	return &elbv2.DescribeListenersOutput{}, nil
}

func (m *mockELB) ModifyListener(ctx context.Context, in *elbv2.ModifyListenerInput, _ ...func(*elbv2.Options)) (*elbv2.ModifyListenerOutput, error) {
	return m.ModifyListenerFunc(ctx, in)
}

// mockECS implements ECSAPI.
type mockECS struct {
	ECSAPI

	CreateClusterFunc          func(ctx context.Context, in *ecs.CreateClusterInput) (*ecs.CreateClusterOutput, error)
	DescribeClustersFunc       func(ctx context.Context, in *ecs.DescribeClustersInput) (*ecs.DescribeClustersOutput, error)
	RegisterTaskDefinitionFunc func(ctx context.Context, in *ecs.RegisterTaskDefinitionInput) (*ecs.RegisterTaskDefinitionOutput, error)
	CreateServiceFunc          func(ctx context.Context, in *ecs.CreateServiceInput) (*ecs.CreateServiceOutput, error)
	DescribeServicesFunc       func(ctx context.Context, in *ecs.DescribeServicesInput) (*ecs.DescribeServicesOutput, error)
	DeleteServiceFunc          func(ctx context.Context, in *ecs.DeleteServiceInput) (*ecs.DeleteServiceOutput, error)
}

func (m *mockECS) CreateCluster(ctx context.Context, in *ecs.CreateClusterInput, _ ...func(*ecs.Options)) (*ecs.CreateClusterOutput, error) {
	return m.CreateClusterFunc(ctx, in)
}

func (m *mockECS) DescribeClusters(ctx context.Context, in *ecs.DescribeClustersInput, _ ...func(*ecs.Options)) (*ecs.DescribeClustersOutput, error) {
	if m.DescribeClustersFunc != nil {
		return m.DescribeClustersFunc(ctx, in)
	}
	return &ecs.DescribeClustersOutput{}, nil
}

func (m *mockECS) RegisterTaskDefinition(ctx context.Context, in *ecs.RegisterTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.RegisterTaskDefinitionOutput, error) {
	return m.RegisterTaskDefinitionFunc(ctx, in)
}

func (m *mockECS) CreateService(ctx context.Context, in *ecs.CreateServiceInput, _ ...func(*ecs.Options)) (*ecs.CreateServiceOutput, error) {
	return m.CreateServiceFunc(ctx, in)
}

func (m *mockECS) DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, _ ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	if m.DescribeServicesFunc != nil {
		return m.DescribeServicesFunc(ctx, in)
	}
	return &ecs.DescribeServicesOutput{}, nil
}

func (m *mockECS) DeleteService(ctx context.Context, in *ecs.DeleteServiceInput, _ ...func(*ecs.Options)) (*ecs.DeleteServiceOutput, error) {
	if m.DeleteServiceFunc != nil {
		return m.DeleteServiceFunc(ctx, in)
	}
	return &ecs.DeleteServiceOutput{}, nil
}

// mockSecrets implements SecretsAPI.
type mockSecrets struct {
	DescribeSecretFunc func(ctx context.Context, in *secretsmanager.DescribeSecretInput) (*secretsmanager.DescribeSecretOutput, error)
}

func (m *mockSecrets) DescribeSecret(ctx context.Context, in *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	return m.DescribeSecretFunc(ctx, in)
}
