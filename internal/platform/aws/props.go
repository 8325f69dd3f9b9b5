package aws

import (
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	efstypes "github.com/aws/aws-sdk-go-v2/service/efs/types"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/util/tags"
)

// Input keys shared by several kinds.
const (
	keyTags             = "tags"
	keyName             = "name"
	keyVpcID            = "vpcId"
	keySubnetIDs        = "subnetIds"
	keySecurityGroupIDs = "securityGroupIds"
)

// required returns the string input key or an error naming it.
func required(p resource.Properties, key string) (string, error) {
	v := p.String(key)
	if v == "" {
		return "", fmt.Errorf("input %q is required", key)
	}
	return v, nil
}

// tagMap returns the "tags" input as a plain map.
func tagMap(p resource.Properties) map[string]string {
	if nested := p.Map(keyTags); nested != nil {
		return tags.FromAny(map[string]any(nested))
	}
	return tags.FromAny(p[keyTags])
}

// nameTag returns the Name tag used to adopt EC2 resources.
func nameTag(p resource.Properties) string {
	return tagMap(p)[tags.KeyName]
}

func ec2Tags(m map[string]string) []ec2types.Tag {
	out := make([]ec2types.Tag, 0, len(m))
	for _, k := range tags.SortedKeys(m) {
		out = append(out, ec2types.Tag{Key: aws.String(k), Value: aws.String(m[k])})
	}
	return out
}

func ec2TagSpec(rt ec2types.ResourceType, m map[string]string) []ec2types.TagSpecification {
	if len(m) == 0 {
		return nil
	}
	return []ec2types.TagSpecification{{ResourceType: rt, Tags: ec2Tags(m)}}
}

// nameFilter selects EC2 resources by Name tag, restricted to the stack.
func nameFilter(p resource.Properties) []ec2types.Filter {
	m := tagMap(p)
	filters := []ec2types.Filter{{Name: aws.String("tag:" + tags.KeyName), Values: []string{m[tags.KeyName]}}}
	if stack := m[tags.KeyStack]; stack != "" {
		filters = append(filters, ec2types.Filter{Name: aws.String("tag:" + tags.KeyStack), Values: []string{stack}})
	}
	return filters
}

func efsTags(m map[string]string) []efstypes.Tag {
	out := make([]efstypes.Tag, 0, len(m))
	for _, k := range tags.SortedKeys(m) {
		out = append(out, efstypes.Tag{Key: aws.String(k), Value: aws.String(m[k])})
	}
	return out
}

func elbTags(m map[string]string) []elbtypes.Tag {
	out := make([]elbtypes.Tag, 0, len(m))
	for _, k := range tags.SortedKeys(m) {
		out = append(out, elbtypes.Tag{Key: aws.String(k), Value: aws.String(m[k])})
	}
	return out
}

func ecsTags(m map[string]string) []ecstypes.Tag {
	out := make([]ecstypes.Tag, 0, len(m))
	for _, k := range tags.SortedKeys(m) {
		out = append(out, ecstypes.Tag{Key: aws.String(k), Value: aws.String(m[k])})
	}
	return out
}

// int32Of converts an int input to the SDK's int32.
func int32Of(p resource.Properties, key string) int32 {
	return int32(p.Int(key))
}

// sameSet reports whether two string lists hold the same elements.
func sameSet(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// adoptable reports whether an existing resource with id may be adopted by
// req. The instance being replaced never is.
func adoptable(req *resource.CreateRequest, id string) bool {
	return id != "" && id != req.ReplacingID
}

// changed reports whether key is among the changed inputs.
func changed(req *resource.UpdateRequest, keys ...string) bool {
	for _, k := range keys {
		if slices.Contains(req.ChangedKeys, k) {
			return true
		}
	}
	return false
}
