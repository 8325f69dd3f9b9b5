package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// errorCode returns the AWS API error code of err, or "".
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func hasCode(err error, codes ...string) bool {
	code := errorCode(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

// isNotFound reports whether err means the resource does not exist.
func isNotFound(err error) bool {
	code := errorCode(err)
	if strings.HasSuffix(code, "NotFound") || strings.HasSuffix(code, "NotFoundException") {
		return true
	}
	return hasCode(err, "ServiceNotActiveException")
}

// isThrottled reports whether err is a rate limit.
func isThrottled(err error) bool {
	return hasCode(err,
		"Throttling",
		"ThrottlingException",
		"ThrottledException",
		"RequestLimitExceeded",
		"TooManyRequestsException",
	)
}

// isRetryableCreate covers throttling and the eventual consistency window
// right after a referenced resource was created.
func isRetryableCreate(err error) bool {
	if isThrottled(err) {
		return true
	}
	return hasCode(err,
		"InvalidVpcID.NotFound",
		"InvalidSubnetID.NotFound",
		"InvalidGroup.NotFound",
		"InvalidInternetGatewayID.NotFound",
		"InvalidRouteTableID.NotFound",
		"IncorrectFileSystemLifeCycleState",
		"IncorrectMountTargetState",
		"FileSystemNotFound",
		"TargetGroupNotFound",
		"TargetGroupNotFoundException",
		"ClusterNotFoundException",
		// ECS rejects a target group until its listener is attached.
		"InvalidParameterException",
	)
}

// isRetryableDelete covers throttling and dependents that are still being
// torn down, e.g. network interfaces of a stopping task.
func isRetryableDelete(err error) bool {
	if isThrottled(err) {
		return true
	}
	return hasCode(err,
		"DependencyViolation",
		"ResourceInUse",
		"ResourceInUseException",
		"FileSystemInUse",
		"IncorrectFileSystemLifeCycleState",
		"IncorrectMountTargetState",
		"InvalidNetworkInterface.InUse",
		"ClusterContainsServicesException",
		"ClusterContainsTasksException",
	)
}

// isDuplicate reports whether a create failed because the resource exists.
func isDuplicate(err error) bool {
	return hasCode(err,
		"InvalidPermission.Duplicate",
		"InvalidGroup.Duplicate",
		"RouteAlreadyExists",
		"Resource.AlreadyAssociated",
		"DuplicateLoadBalancerName",
		"DuplicateTargetGroupName",
		"DuplicateListener",
		"FileSystemAlreadyExists",
		"AccessPointAlreadyExists",
		"MountTargetConflict",
	)
}
