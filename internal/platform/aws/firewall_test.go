package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/searchstack/internal/resource"
)

func TestSecurityGroupHandler_CreateRevokesDefaultEgress(t *testing.T) {
	t.Parallel()

	var revoked *ec2.RevokeSecurityGroupEgressInput
	m := &mockEC2{
		CreateSecurityGroupFunc: func(_ context.Context, in *ec2.CreateSecurityGroupInput) (*ec2.CreateSecurityGroupOutput, error) {
			assert.Equal(t, "demo-prod-sg", aws.ToString(in.GroupName))
			assert.Equal(t, "vpc-1", aws.ToString(in.VpcId))
			return &ec2.CreateSecurityGroupOutput{GroupId: aws.String("sg-1")}, nil
		},
		RevokeSecurityGroupEgressFunc: func(_ context.Context, in *ec2.RevokeSecurityGroupEgressInput) (*ec2.RevokeSecurityGroupEgressOutput, error) {
			revoked = in
			return &ec2.RevokeSecurityGroupEgressOutput{}, nil
		},
	}
	h := &SecurityGroupHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "sg", Inputs: resource.Properties{
		"name":        "demo-prod-sg",
		"description": "search stack",
		"vpcId":       "vpc-1",
	}})
	require.NoError(t, err)
	assert.Equal(t, "sg-1", res.ID)

	require.NotNil(t, revoked)
	assert.Equal(t, "sg-1", aws.ToString(revoked.GroupId))
	require.Len(t, revoked.IpPermissions, 1)
	assert.Equal(t, "-1", aws.ToString(revoked.IpPermissions[0].IpProtocol))
	assert.Equal(t, "0.0.0.0/0", aws.ToString(revoked.IpPermissions[0].IpRanges[0].CidrIp))
}

func TestSecurityGroupHandler_AdoptedGroupKeepsRules(t *testing.T) {
	t.Parallel()

	m := &mockEC2{
		DescribeSecurityGroupsFunc: func(context.Context, *ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error) {
			return &ec2.DescribeSecurityGroupsOutput{SecurityGroups: []ec2types.SecurityGroup{{GroupId: aws.String("sg-7")}}}, nil
		},
		RevokeSecurityGroupEgressFunc: func(context.Context, *ec2.RevokeSecurityGroupEgressInput) (*ec2.RevokeSecurityGroupEgressOutput, error) {
			t.Fatal("adopted group must not be modified")
			return nil, nil
		},
	}
	h := &SecurityGroupHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "sg", Inputs: resource.Properties{
		"name":  "demo-prod-sg",
		"vpcId": "vpc-1",
	}})
	require.NoError(t, err)
	assert.Equal(t, "sg-7", res.ID)
}

func TestParseRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		inputs  resource.Properties
		wantErr string
	}{
		{
			name:   "cidr ingress",
			inputs: resource.Properties{"securityGroupId": "sg-1", "direction": "ingress", "fromPort": 80, "toPort": 80, "cidr": "0.0.0.0/0"},
		},
		{
			name:   "self referencing",
			inputs: resource.Properties{"securityGroupId": "sg-1", "direction": "ingress", "fromPort": 2049, "toPort": 2049, "sourceSecurityGroupId": "sg-1"},
		},
		{
			name:    "bad direction",
			inputs:  resource.Properties{"securityGroupId": "sg-1", "direction": "sideways", "cidr": "0.0.0.0/0"},
			wantErr: "invalid rule direction",
		},
		{
			name:    "both sources",
			inputs:  resource.Properties{"securityGroupId": "sg-1", "direction": "egress", "cidr": "0.0.0.0/0", "sourceSecurityGroupId": "sg-2"},
			wantErr: "exactly one of",
		},
		{
			name:    "no group",
			inputs:  resource.Properties{"direction": "egress", "cidr": "0.0.0.0/0"},
			wantErr: "securityGroupId",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parseRule(tt.inputs)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "tcp", r.protocol)
		})
	}
}

func TestSecurityGroupRuleHandler_CreateIngress(t *testing.T) {
	t.Parallel()

	m := &mockEC2{
		AuthorizeSecurityGroupIngressFunc: func(_ context.Context, in *ec2.AuthorizeSecurityGroupIngressInput) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
			require.Len(t, in.IpPermissions, 1)
			perm := in.IpPermissions[0]
			assert.Equal(t, int32(2049), aws.ToInt32(perm.FromPort))
			require.Len(t, perm.UserIdGroupPairs, 1)
			assert.Equal(t, "sg-1", aws.ToString(perm.UserIdGroupPairs[0].GroupId))
			assert.Empty(t, perm.IpRanges)
			return &ec2.AuthorizeSecurityGroupIngressOutput{SecurityGroupRules: []ec2types.SecurityGroupRule{
				{SecurityGroupRuleId: aws.String("sgr-nfs")},
			}}, nil
		},
	}
	h := &SecurityGroupRuleHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "rule-nfs", Inputs: resource.Properties{
		"securityGroupId":       "sg-1",
		"direction":             "ingress",
		"protocol":              "tcp",
		"fromPort":              2049,
		"toPort":                2049,
		"sourceSecurityGroupId": "sg-1",
	}})
	require.NoError(t, err)
	assert.Equal(t, "sgr-nfs", res.ID)
	assert.Equal(t, "ingress", res.Outputs["direction"])
	assert.Equal(t, "sg-1", res.Outputs["securityGroupId"])
}

func TestSecurityGroupRuleHandler_DuplicateAdoptsMatchingRule(t *testing.T) {
	t.Parallel()

	describes := 0
	m := &mockEC2{
		DescribeSecurityGroupRulesFunc: func(context.Context, *ec2.DescribeSecurityGroupRulesInput) (*ec2.DescribeSecurityGroupRulesOutput, error) {
			describes++
			if describes == 1 {
				return &ec2.DescribeSecurityGroupRulesOutput{}, nil
			}
			return &ec2.DescribeSecurityGroupRulesOutput{SecurityGroupRules: []ec2types.SecurityGroupRule{
				{SecurityGroupRuleId: aws.String("sgr-other"), IsEgress: aws.Bool(false), IpProtocol: aws.String("tcp"), FromPort: aws.Int32(80), ToPort: aws.Int32(80), CidrIpv4: aws.String("0.0.0.0/0")},
				{SecurityGroupRuleId: aws.String("sgr-egress"), IsEgress: aws.Bool(true), IpProtocol: aws.String("tcp"), FromPort: aws.Int32(0), ToPort: aws.Int32(65535), CidrIpv4: aws.String("0.0.0.0/0")},
			}}, nil
		},
		AuthorizeSecurityGroupEgressFunc: func(context.Context, *ec2.AuthorizeSecurityGroupEgressInput) (*ec2.AuthorizeSecurityGroupEgressOutput, error) {
			return nil, apiError("InvalidPermission.Duplicate")
		},
	}
	h := &SecurityGroupRuleHandler{base: testBase(), api: m}

	res, err := h.Create(context.Background(), &resource.CreateRequest{Name: "rule-egress", Inputs: resource.Properties{
		"securityGroupId": "sg-1",
		"direction":       "egress",
		"fromPort":        0,
		"toPort":          65535,
		"cidr":            "0.0.0.0/0",
	}})
	require.NoError(t, err)
	assert.Equal(t, "sgr-egress", res.ID)
}

func TestSecurityGroupRuleHandler_DeleteUsesRecordedDirection(t *testing.T) {
	t.Parallel()

	var revoked *ec2.RevokeSecurityGroupEgressInput
	m := &mockEC2{
		RevokeSecurityGroupEgressFunc: func(_ context.Context, in *ec2.RevokeSecurityGroupEgressInput) (*ec2.RevokeSecurityGroupEgressOutput, error) {
			revoked = in
			return &ec2.RevokeSecurityGroupEgressOutput{}, nil
		},
		RevokeSecurityGroupIngressFunc: func(context.Context, *ec2.RevokeSecurityGroupIngressInput) (*ec2.RevokeSecurityGroupIngressOutput, error) {
			t.Fatal("ingress revoke should not be called")
			return nil, nil
		},
	}
	h := &SecurityGroupRuleHandler{base: testBase(), api: m}

	err := h.Delete(context.Background(), &resource.DeleteRequest{
		Name:    "rule-egress",
		ID:      "sgr-egress",
		Outputs: resource.Properties{"securityGroupId": "sg-1", "direction": "egress"},
	})
	require.NoError(t, err)
	require.NotNil(t, revoked)
	assert.Equal(t, []string{"sgr-egress"}, revoked.SecurityGroupRuleIds)
}
