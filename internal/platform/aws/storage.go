package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/efs"
	efstypes "github.com/aws/aws-sdk-go-v2/service/efs/types"
	"github.com/google/uuid"

	"github.com/imamik/searchstack/internal/resource"
)

func tagEFS(ctx context.Context, b base, api EFSAPI, id string, p resource.Properties) error {
	m := tagMap(p)
	if len(m) == 0 {
		return nil
	}
	return b.create(ctx, func(ctx context.Context) error {
		_, err := api.TagResource(ctx, &efs.TagResourceInput{ResourceId: aws.String(id), Tags: efsTags(m)})
		return err
	})
}

// FileSystemHandler manages aws:efs:FileSystem. The creation token makes
// creation idempotent.
//
// Inputs: creationToken, encrypted, transitionToIA, tags.
// Outputs: id, arn.
type FileSystemHandler struct {
	base
	api EFSAPI
}

// ReplaceOnChange implements resource.Replacer.
func (h *FileSystemHandler) ReplaceOnChange() []string {
	return []string{"creationToken", "encrypted"}
}

func (h *FileSystemHandler) describe(ctx context.Context, in *efs.DescribeFileSystemsInput) (*efstypes.FileSystemDescription, error) {
	out, err := h.api.DescribeFileSystems(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(out.FileSystems) == 0 {
		return nil, nil
	}
	return &out.FileSystems[0], nil
}

// Create implements resource.Handler.
func (h *FileSystemHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	token, err := required(req.Inputs, "creationToken")
	if err != nil {
		return nil, err
	}
	fs, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (*efstypes.FileSystemDescription, bool, error) {
			fs, err := h.describe(ctx, &efs.DescribeFileSystemsInput{CreationToken: aws.String(token)})
			if err != nil || fs == nil || !adoptable(req, aws.ToString(fs.FileSystemId)) {
				return nil, false, err
			}
			return fs, true, nil
		},
		func(ctx context.Context) (*efstypes.FileSystemDescription, error) {
			out, err := h.api.CreateFileSystem(ctx, &efs.CreateFileSystemInput{
				CreationToken:   aws.String(token),
				Encrypted:       aws.Bool(req.Inputs.Bool("encrypted")),
				PerformanceMode: efstypes.PerformanceModeGeneralPurpose,
				ThroughputMode:  efstypes.ThroughputModeBursting,
				Tags:            efsTags(tagMap(req.Inputs)),
			})
			if err != nil {
				return nil, err
			}
			return &efstypes.FileSystemDescription{FileSystemId: out.FileSystemId, FileSystemArn: out.FileSystemArn}, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create file system %s: %w", token, err)
	}
	id := aws.ToString(fs.FileSystemId)

	if err := h.setLifecycle(ctx, id, req.Inputs.String("transitionToIA")); err != nil {
		return nil, err
	}
	return &resource.Result{ID: id, Outputs: resource.Properties{
		resource.OutputID:  id,
		resource.OutputARN: aws.ToString(fs.FileSystemArn),
	}}, nil
}

func (h *FileSystemHandler) setLifecycle(ctx context.Context, id, transition string) error {
	var policies []efstypes.LifecyclePolicy
	if transition != "" {
		policies = []efstypes.LifecyclePolicy{{TransitionToIA: efstypes.TransitionToIARules(transition)}}
	}
	err := h.create(ctx, func(ctx context.Context) error {
		_, err := h.api.PutLifecycleConfiguration(ctx, &efs.PutLifecycleConfigurationInput{
			FileSystemId:      aws.String(id),
			LifecyclePolicies: policies,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set lifecycle of %s: %w", id, err)
	}
	return nil
}

// Update implements resource.Handler.
func (h *FileSystemHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if changed(req, "transitionToIA") {
		if err := h.setLifecycle(ctx, req.ID, req.Inputs.String("transitionToIA")); err != nil {
			return nil, err
		}
	}
	if changed(req, keyTags) {
		if err := tagEFS(ctx, h.base, h.api, req.ID, req.Inputs); err != nil {
			return nil, fmt.Errorf("failed to tag file system %s: %w", req.ID, err)
		}
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler. Deletion is retried until the last
// mount target is gone.
func (h *FileSystemHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteFileSystem(ctx, &efs.DeleteFileSystemInput{FileSystemId: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete file system %s: %w", req.ID, err)
	}
	return nil
}

// Read implements resource.Reader.
func (h *FileSystemHandler) Read(ctx context.Context, id string, outputs resource.Properties) (resource.Properties, bool, error) {
	fs, err := h.describe(ctx, &efs.DescribeFileSystemsInput{FileSystemId: aws.String(id)})
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to describe file system %s: %w", id, err)
	}
	if fs == nil || fs.LifeCycleState == efstypes.LifeCycleStateDeleted || fs.LifeCycleState == efstypes.LifeCycleStateDeleting {
		return nil, false, nil
	}
	return outputs, true, nil
}

// WaitReady implements resource.Waiter.
func (h *FileSystemHandler) WaitReady(ctx context.Context, id string, _ resource.Properties) error {
	return h.waitFor(ctx, "file system "+id, func(ctx context.Context) (bool, error) {
		fs, err := h.describe(ctx, &efs.DescribeFileSystemsInput{FileSystemId: aws.String(id)})
		if err != nil {
			return false, err
		}
		return fs != nil && fs.LifeCycleState == efstypes.LifeCycleStateAvailable, nil
	})
}

// MountTargetHandler manages aws:efs:MountTarget, one per subnet.
//
// Inputs: fileSystemId, subnetId, securityGroupIds.
// Outputs: id, availabilityZone, ipAddress.
type MountTargetHandler struct {
	base
	api EFSAPI
}

// ReplaceOnChange implements resource.Replacer.
func (h *MountTargetHandler) ReplaceOnChange() []string {
	return []string{"fileSystemId", "subnetId"}
}

func mountTargetOutputs(mt efstypes.MountTargetDescription) resource.Properties {
	return resource.Properties{
		resource.OutputID:  aws.ToString(mt.MountTargetId),
		"availabilityZone": aws.ToString(mt.AvailabilityZoneName),
		"ipAddress":        aws.ToString(mt.IpAddress),
	}
}

// Create implements resource.Handler.
func (h *MountTargetHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	fsID, err := required(req.Inputs, "fileSystemId")
	if err != nil {
		return nil, err
	}
	subnetID, err := required(req.Inputs, "subnetId")
	if err != nil {
		return nil, err
	}

	mt, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (efstypes.MountTargetDescription, bool, error) {
			out, err := h.api.DescribeMountTargets(ctx, &efs.DescribeMountTargetsInput{FileSystemId: aws.String(fsID)})
			if err != nil {
				return efstypes.MountTargetDescription{}, false, err
			}
			for _, mt := range out.MountTargets {
				if aws.ToString(mt.SubnetId) == subnetID && adoptable(req, aws.ToString(mt.MountTargetId)) {
					return mt, true, nil
				}
			}
			return efstypes.MountTargetDescription{}, false, nil
		},
		func(ctx context.Context) (efstypes.MountTargetDescription, error) {
			out, err := h.api.CreateMountTarget(ctx, &efs.CreateMountTargetInput{
				FileSystemId:   aws.String(fsID),
				SubnetId:       aws.String(subnetID),
				SecurityGroups: req.Inputs.Strings(keySecurityGroupIDs),
			})
			if err != nil {
				return efstypes.MountTargetDescription{}, err
			}
			return efstypes.MountTargetDescription{
				MountTargetId:        out.MountTargetId,
				AvailabilityZoneName: out.AvailabilityZoneName,
				IpAddress:            out.IpAddress,
			}, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create mount target in %s: %w", subnetID, err)
	}
	return &resource.Result{ID: aws.ToString(mt.MountTargetId), Outputs: mountTargetOutputs(mt)}, nil
}

// Update implements resource.Handler.
func (h *MountTargetHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if changed(req, keySecurityGroupIDs) && !sameSet(req.OldInputs.Strings(keySecurityGroupIDs), req.Inputs.Strings(keySecurityGroupIDs)) {
		err := h.create(ctx, func(ctx context.Context) error {
			_, err := h.api.ModifyMountTargetSecurityGroups(ctx, &efs.ModifyMountTargetSecurityGroupsInput{
				MountTargetId:  aws.String(req.ID),
				SecurityGroups: req.Inputs.Strings(keySecurityGroupIDs),
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update security groups of %s: %w", req.ID, err)
		}
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler.
func (h *MountTargetHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteMountTarget(ctx, &efs.DeleteMountTargetInput{MountTargetId: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete mount target %s: %w", req.ID, err)
	}
	return nil
}

func (h *MountTargetHandler) describe(ctx context.Context, id string) (*efstypes.MountTargetDescription, error) {
	out, err := h.api.DescribeMountTargets(ctx, &efs.DescribeMountTargetsInput{MountTargetId: aws.String(id)})
	if err != nil {
		return nil, err
	}
	if len(out.MountTargets) == 0 {
		return nil, nil
	}
	return &out.MountTargets[0], nil
}

// Read implements resource.Reader.
func (h *MountTargetHandler) Read(ctx context.Context, id string, outputs resource.Properties) (resource.Properties, bool, error) {
	mt, err := h.describe(ctx, id)
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to describe mount target %s: %w", id, err)
	}
	if mt == nil {
		return nil, false, nil
	}
	return mountTargetOutputs(*mt), true, nil
}

// WaitReady implements resource.Waiter.
func (h *MountTargetHandler) WaitReady(ctx context.Context, id string, _ resource.Properties) error {
	return h.waitFor(ctx, "mount target "+id, func(ctx context.Context) (bool, error) {
		mt, err := h.describe(ctx, id)
		if err != nil {
			return false, err
		}
		return mt != nil && mt.LifeCycleState == efstypes.LifeCycleStateAvailable, nil
	})
}

// AccessPointHandler manages aws:efs:AccessPoint.
//
// Inputs: fileSystemId, posixUid, posixGid, rootDirectory, permissions, tags.
// Outputs: id, arn.
type AccessPointHandler struct {
	base
	api EFSAPI
}

// ReplaceOnChange implements resource.Replacer. Access points are immutable
// apart from their tags.
func (h *AccessPointHandler) ReplaceOnChange() []string {
	return []string{"fileSystemId", "posixUid", "posixGid", "rootDirectory", "permissions"}
}

// Create implements resource.Handler.
func (h *AccessPointHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	in := req.Inputs
	fsID, err := required(in, "fileSystemId")
	if err != nil {
		return nil, err
	}
	root := in.String("rootDirectory")
	if root == "" {
		root = "/"
	}
	perms := in.String("permissions")
	if perms == "" {
		perms = "0755"
	}
	uid, gid := int64(in.Int("posixUid")), int64(in.Int("posixGid"))
	name := nameTag(in)
	// Retries within this call reuse the token.
	token := uuid.NewString()

	ap, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (efstypes.AccessPointDescription, bool, error) {
			if name == "" {
				return efstypes.AccessPointDescription{}, false, nil
			}
			out, err := h.api.DescribeAccessPoints(ctx, &efs.DescribeAccessPointsInput{FileSystemId: aws.String(fsID)})
			if err != nil {
				return efstypes.AccessPointDescription{}, false, err
			}
			for _, ap := range out.AccessPoints {
				if aws.ToString(ap.Name) == name && adoptable(req, aws.ToString(ap.AccessPointId)) {
					return ap, true, nil
				}
			}
			return efstypes.AccessPointDescription{}, false, nil
		},
		func(ctx context.Context) (efstypes.AccessPointDescription, error) {
			out, err := h.api.CreateAccessPoint(ctx, &efs.CreateAccessPointInput{
				ClientToken:  aws.String(token),
				FileSystemId: aws.String(fsID),
				PosixUser:    &efstypes.PosixUser{Uid: aws.Int64(uid), Gid: aws.Int64(gid)},
				RootDirectory: &efstypes.RootDirectory{
					Path: aws.String(root),
					CreationInfo: &efstypes.CreationInfo{
						OwnerUid:    aws.Int64(uid),
						OwnerGid:    aws.Int64(gid),
						Permissions: aws.String(perms),
					},
				},
				Tags: efsTags(tagMap(in)),
			})
			if err != nil {
				return efstypes.AccessPointDescription{}, err
			}
			return efstypes.AccessPointDescription{AccessPointId: out.AccessPointId, AccessPointArn: out.AccessPointArn}, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create access point on %s: %w", fsID, err)
	}
	id := aws.ToString(ap.AccessPointId)
	return &resource.Result{ID: id, Outputs: resource.Properties{
		resource.OutputID:  id,
		resource.OutputARN: aws.ToString(ap.AccessPointArn),
	}}, nil
}

// Update implements resource.Handler.
func (h *AccessPointHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if err := tagEFS(ctx, h.base, h.api, req.ID, req.Inputs); err != nil {
		return nil, fmt.Errorf("failed to tag access point %s: %w", req.ID, err)
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler.
func (h *AccessPointHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteAccessPoint(ctx, &efs.DeleteAccessPointInput{AccessPointId: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete access point %s: %w", req.ID, err)
	}
	return nil
}

// WaitReady implements resource.Waiter.
func (h *AccessPointHandler) WaitReady(ctx context.Context, id string, _ resource.Properties) error {
	return h.waitFor(ctx, "access point "+id, func(ctx context.Context) (bool, error) {
		out, err := h.api.DescribeAccessPoints(ctx, &efs.DescribeAccessPointsInput{AccessPointId: aws.String(id)})
		if err != nil {
			return false, err
		}
		return len(out.AccessPoints) == 1 && out.AccessPoints[0].LifeCycleState == efstypes.LifeCycleStateAvailable, nil
	})
}
