package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/efs"
	efstypes "github.com/aws/aws-sdk-go-v2/service/efs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/searchstack/internal/resource"
)

func TestFileSystemHandler_Create(t *testing.T) {
	t.Parallel()

	var lifecycle *efs.PutLifecycleConfigurationInput
	m := &mockEFS{
		CreateFileSystemFunc: func(_ context.Context, in *efs.CreateFileSystemInput) (*efs.CreateFileSystemOutput, error) {
			assert.Equal(t, "demo-prod-data", aws.ToString(in.CreationToken))
			assert.True(t, aws.ToBool(in.Encrypted))
			return &efs.CreateFileSystemOutput{FileSystemId: aws.String("fs-1"), FileSystemArn: aws.String("arn:aws:efs:fs-1")}, nil
		},
		PutLifecycleConfigurationFunc: func(_ context.Context, in *efs.PutLifecycleConfigurationInput) (*efs.PutLifecycleConfigurationOutput, error) {
			lifecycle = in
			return &efs.PutLifecycleConfigurationOutput{}, nil
		},
	}
	h := &FileSystemHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "filesystem", Inputs: resource.Properties{
		"creationToken":  "demo-prod-data",
		"encrypted":      true,
		"transitionToIA": "AFTER_30_DAYS",
	}})
	require.NoError(t, err)
	assert.Equal(t, "fs-1", res.ID)
	assert.Equal(t, "arn:aws:efs:fs-1", res.Outputs[resource.OutputARN])
	require.NotNil(t, lifecycle)
	require.Len(t, lifecycle.LifecyclePolicies, 1)
	assert.Equal(t, efstypes.TransitionToIARulesAfter30Days, lifecycle.LifecyclePolicies[0].TransitionToIA)
}

func TestFileSystemHandler_CreateAdoptsByToken(t *testing.T) {
	t.Parallel()

	m := &mockEFS{
		DescribeFileSystemsFunc: func(_ context.Context, in *efs.DescribeFileSystemsInput) (*efs.DescribeFileSystemsOutput, error) {
			assert.Equal(t, "demo-prod-data", aws.ToString(in.CreationToken))
			return &efs.DescribeFileSystemsOutput{FileSystems: []efstypes.FileSystemDescription{
				{FileSystemId: aws.String("fs-old"), FileSystemArn: aws.String("arn:fs-old")},
			}}, nil
		},
		CreateFileSystemFunc: func(context.Context, *efs.CreateFileSystemInput) (*efs.CreateFileSystemOutput, error) {
			t.Fatal("CreateFileSystem should not be called")
			return nil, nil
		},
	}
	h := &FileSystemHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "filesystem", Inputs: resource.Properties{
		"creationToken": "demo-prod-data",
	}})
	require.NoError(t, err)
	assert.Equal(t, "fs-old", res.ID)
}

func TestFileSystemHandler_WaitReady(t *testing.T) {
	t.Parallel()

	polls := 0
	m := &mockEFS{
		DescribeFileSystemsFunc: func(context.Context, *efs.DescribeFileSystemsInput) (*efs.DescribeFileSystemsOutput, error) {
			polls++
			state := efstypes.LifeCycleStateCreating
			if polls > 2 {
				state = efstypes.LifeCycleStateAvailable
			}
			return &efs.DescribeFileSystemsOutput{FileSystems: []efstypes.FileSystemDescription{{LifeCycleState: state}}}, nil
		},
	}
	h := &FileSystemHandler{base: testBase(), api: m}

	require.NoError(t, h.WaitReady(context.Background(), "fs-1", nil))
	assert.Equal(t, 3, polls)
}

func TestFileSystemHandler_DeleteRetriesWhileInUse(t *testing.T) {
	t.Parallel()

	calls := 0
	m := &mockEFS{
		DeleteFileSystemFunc: func(context.Context, *efs.DeleteFileSystemInput) (*efs.DeleteFileSystemOutput, error) {
			calls++
			if calls == 1 {
				return nil, apiError("FileSystemInUse")
			}
			return &efs.DeleteFileSystemOutput{}, nil
		},
	}
	h := &FileSystemHandler{base: testBase(), api: m}

	require.NoError(t, h.Delete(context.Background(), &resource.DeleteRequest{Name: "filesystem", ID: "fs-1"}))
	assert.Equal(t, 2, calls)
}

func TestMountTargetHandler_CreateAdoptsBySubnet(t *testing.T) {
	t.Parallel()

	m := &mockEFS{
		DescribeMountTargetsFunc: func(context.Context, *efs.DescribeMountTargetsInput) (*efs.DescribeMountTargetsOutput, error) {
			return &efs.DescribeMountTargetsOutput{MountTargets: []efstypes.MountTargetDescription{
				{MountTargetId: aws.String("fsmt-a"), SubnetId: aws.String("subnet-a"), AvailabilityZoneName: aws.String("eu-west-1a")},
				{MountTargetId: aws.String("fsmt-b"), SubnetId: aws.String("subnet-b"), AvailabilityZoneName: aws.String("eu-west-1b")},
			}}, nil
		},
		CreateMountTargetFunc: func(context.Context, *efs.CreateMountTargetInput) (*efs.CreateMountTargetOutput, error) {
			t.Fatal("CreateMountTarget should not be called")
			return nil, nil
		},
	}
	h := &MountTargetHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "mount-eu-west-1b", Inputs: resource.Properties{
		"fileSystemId":     "fs-1",
		"subnetId":         "subnet-b",
		"securityGroupIds": []string{"sg-1"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "fsmt-b", res.ID)
	assert.Equal(t, "eu-west-1b", res.Outputs["availabilityZone"])
}

func TestMountTargetHandler_CreateRetriesWhileFileSystemCreating(t *testing.T) {
	t.Parallel()

	calls := 0
	m := &mockEFS{
		CreateMountTargetFunc: func(_ context.Context, in *efs.CreateMountTargetInput) (*efs.CreateMountTargetOutput, error) {
			calls++
			if calls == 1 {
				return nil, apiError("IncorrectFileSystemLifeCycleState")
			}
			assert.Equal(t, []string{"sg-1"}, in.SecurityGroups)
			return &efs.CreateMountTargetOutput{MountTargetId: aws.String("fsmt-a"), AvailabilityZoneName: aws.String("eu-west-1a")}, nil
		},
	}
	h := &MountTargetHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "mount-eu-west-1a", Inputs: resource.Properties{
		"fileSystemId":     "fs-1",
		"subnetId":         "subnet-a",
		"securityGroupIds": []any{"sg-1"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "fsmt-a", res.ID)
	assert.Equal(t, 2, calls)
}

func TestAccessPointHandler_Create(t *testing.T) {
	t.Parallel()

	m := &mockEFS{
		CreateAccessPointFunc: func(_ context.Context, in *efs.CreateAccessPointInput) (*efs.CreateAccessPointOutput, error) {
			assert.NotEmpty(t, aws.ToString(in.ClientToken))
			assert.Equal(t, int64(1000), aws.ToInt64(in.PosixUser.Uid))
			assert.Equal(t, int64(1000), aws.ToInt64(in.PosixUser.Gid))
			assert.Equal(t, "/data", aws.ToString(in.RootDirectory.Path))
			assert.Equal(t, "0755", aws.ToString(in.RootDirectory.CreationInfo.Permissions))
			return &efs.CreateAccessPointOutput{AccessPointId: aws.String("fsap-1"), AccessPointArn: aws.String("arn:fsap-1")}, nil
		},
	}
	h := &AccessPointHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "access-point", Inputs: resource.Properties{
		"fileSystemId":  "fs-1",
		"posixUid":      1000,
		"posixGid":      1000,
		"rootDirectory": "/data",
	}})
	require.NoError(t, err)
	assert.Equal(t, "fsap-1", res.ID)
	assert.Equal(t, "arn:fsap-1", res.Outputs[resource.OutputARN])
}
