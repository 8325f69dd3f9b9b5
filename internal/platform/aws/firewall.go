package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/searchstack/internal/resource"
)

// Rule directions.
const (
	DirectionIngress = "ingress"
	DirectionEgress  = "egress"
)

// SecurityGroupHandler manages aws:ec2:SecurityGroup. New groups start
// without the default allow-all egress rule; every rule is declared
// separately.
//
// Inputs: name, description, vpcId, tags. Outputs: id.
type SecurityGroupHandler struct {
	base
	api EC2API
}

// ReplaceOnChange implements resource.Replacer.
func (h *SecurityGroupHandler) ReplaceOnChange() []string {
	return []string{keyName, "description", keyVpcID}
}

// Create implements resource.Handler.
func (h *SecurityGroupHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	name, err := required(req.Inputs, keyName)
	if err != nil {
		return nil, err
	}
	vpcID, err := required(req.Inputs, keyVpcID)
	if err != nil {
		return nil, err
	}
	description := req.Inputs.String("description")
	if description == "" {
		description = name
	}

	id, adopted, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) {
			out, err := h.api.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{Filters: []ec2types.Filter{
				{Name: aws.String("group-name"), Values: []string{name}},
				{Name: aws.String("vpc-id"), Values: []string{vpcID}},
			}})
			if err != nil {
				return "", false, err
			}
			for _, g := range out.SecurityGroups {
				if id := aws.ToString(g.GroupId); adoptable(req, id) {
					return id, true, nil
				}
			}
			return "", false, nil
		},
		func(ctx context.Context) (string, error) {
			out, err := h.api.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
				GroupName:         aws.String(name),
				Description:       aws.String(description),
				VpcId:             aws.String(vpcID),
				TagSpecifications: ec2TagSpec(ec2types.ResourceTypeSecurityGroup, tagMap(req.Inputs)),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.GroupId), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create security group %s: %w", name, err)
	}

	if !adopted {
		if err := h.revokeDefaultEgress(ctx, id); err != nil {
			return nil, err
		}
	}
	return &resource.Result{ID: id, Outputs: resource.Properties{resource.OutputID: id, keyName: name}}, nil
}

func (h *SecurityGroupHandler) revokeDefaultEgress(ctx context.Context, id string) error {
	err := h.create(ctx, func(ctx context.Context) error {
		_, err := h.api.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
			GroupId: aws.String(id),
			IpPermissions: []ec2types.IpPermission{{
				IpProtocol: aws.String("-1"),
				IpRanges:   []ec2types.IpRange{{CidrIp: aws.String(defaultRouteCIDR)}},
			}},
		})
		if hasCode(err, "InvalidPermission.NotFound") {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to revoke default egress of %s: %w", id, err)
	}
	return nil
}

// Update implements resource.Handler.
func (h *SecurityGroupHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if err := updateEC2Tags(ctx, h.base, h.api, req.ID, req.Inputs); err != nil {
		return nil, fmt.Errorf("failed to tag security group %s: %w", req.ID, err)
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler. Deletion is retried while network
// interfaces still reference the group.
func (h *SecurityGroupHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete security group %s: %w", req.ID, err)
	}
	return nil
}

// Read implements resource.Reader.
func (h *SecurityGroupHandler) Read(ctx context.Context, id string, outputs resource.Properties) (resource.Properties, bool, error) {
	out, err := h.api.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{GroupIds: []string{id}})
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to describe security group %s: %w", id, err)
	}
	return outputs, len(out.SecurityGroups) > 0, nil
}

// SecurityGroupRuleHandler manages aws:ec2:SecurityGroupRule.
//
// Inputs: securityGroupId, direction, protocol, fromPort, toPort and either
// cidr or sourceSecurityGroupId, plus an optional description.
// Outputs: id, securityGroupId, direction.
type SecurityGroupRuleHandler struct {
	base
	api EC2API
}

// ReplaceOnChange implements resource.Replacer. Only the description can
// change in place.
func (h *SecurityGroupRuleHandler) ReplaceOnChange() []string {
	return []string{"securityGroupId", "direction", "protocol", "fromPort", "toPort", "cidr", "sourceSecurityGroupId"}
}

type ruleInputs struct {
	groupID     string
	egress      bool
	protocol    string
	fromPort    int32
	toPort      int32
	cidr        string
	sourceGroup string
	description string
}

func parseRule(p resource.Properties) (ruleInputs, error) {
	groupID, err := required(p, "securityGroupId")
	if err != nil {
		return ruleInputs{}, err
	}
	r := ruleInputs{
		groupID:     groupID,
		protocol:    p.String("protocol"),
		fromPort:    int32Of(p, "fromPort"),
		toPort:      int32Of(p, "toPort"),
		cidr:        p.String("cidr"),
		sourceGroup: p.String("sourceSecurityGroupId"),
		description: p.String("description"),
	}
	switch p.String("direction") {
	case DirectionIngress:
	case DirectionEgress:
		r.egress = true
	default:
		return ruleInputs{}, fmt.Errorf("invalid rule direction %q", p.String("direction"))
	}
	if r.protocol == "" {
		r.protocol = "tcp"
	}
	if (r.cidr == "") == (r.sourceGroup == "") {
		return ruleInputs{}, fmt.Errorf("rule needs exactly one of cidr or sourceSecurityGroupId")
	}
	return r, nil
}

func (r ruleInputs) permission() ec2types.IpPermission {
	perm := ec2types.IpPermission{
		IpProtocol: aws.String(r.protocol),
		FromPort:   aws.Int32(r.fromPort),
		ToPort:     aws.Int32(r.toPort),
	}
	var desc *string
	if r.description != "" {
		desc = aws.String(r.description)
	}
	if r.cidr != "" {
		perm.IpRanges = []ec2types.IpRange{{CidrIp: aws.String(r.cidr), Description: desc}}
	} else {
		perm.UserIdGroupPairs = []ec2types.UserIdGroupPair{{GroupId: aws.String(r.sourceGroup), Description: desc}}
	}
	return perm
}

func (r ruleInputs) matches(rule ec2types.SecurityGroupRule) bool {
	if aws.ToBool(rule.IsEgress) != r.egress || aws.ToString(rule.IpProtocol) != r.protocol {
		return false
	}
	if aws.ToInt32(rule.FromPort) != r.fromPort || aws.ToInt32(rule.ToPort) != r.toPort {
		return false
	}
	if r.cidr != "" {
		return aws.ToString(rule.CidrIpv4) == r.cidr
	}
	return rule.ReferencedGroupInfo != nil && aws.ToString(rule.ReferencedGroupInfo.GroupId) == r.sourceGroup
}

func (r ruleInputs) direction() string {
	if r.egress {
		return DirectionEgress
	}
	return DirectionIngress
}

func (h *SecurityGroupRuleHandler) find(ctx context.Context, r ruleInputs) (string, bool, error) {
	out, err := h.api.DescribeSecurityGroupRules(ctx, &ec2.DescribeSecurityGroupRulesInput{Filters: []ec2types.Filter{
		{Name: aws.String("group-id"), Values: []string{r.groupID}},
	}})
	if err != nil {
		return "", false, err
	}
	for _, rule := range out.SecurityGroupRules {
		if r.matches(rule) {
			return aws.ToString(rule.SecurityGroupRuleId), true, nil
		}
	}
	return "", false, nil
}

// Create implements resource.Handler.
func (h *SecurityGroupRuleHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	r, err := parseRule(req.Inputs)
	if err != nil {
		return nil, err
	}

	id, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) { return h.find(ctx, r) },
		func(ctx context.Context) (string, error) {
			var rules []ec2types.SecurityGroupRule
			if r.egress {
				out, err := h.api.AuthorizeSecurityGroupEgress(ctx, &ec2.AuthorizeSecurityGroupEgressInput{
					GroupId:       aws.String(r.groupID),
					IpPermissions: []ec2types.IpPermission{r.permission()},
				})
				if err != nil {
					return "", err
				}
				rules = out.SecurityGroupRules
			} else {
				out, err := h.api.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
					GroupId:       aws.String(r.groupID),
					IpPermissions: []ec2types.IpPermission{r.permission()},
				})
				if err != nil {
					return "", err
				}
				rules = out.SecurityGroupRules
			}
			if len(rules) == 0 {
				return "", fmt.Errorf("no rule returned for %s", r.groupID)
			}
			return aws.ToString(rules[0].SecurityGroupRuleId), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to authorize %s rule on %s: %w", r.direction(), r.groupID, err)
	}
	return &resource.Result{ID: id, Outputs: resource.Properties{
		resource.OutputID: id,
		"securityGroupId": r.groupID,
		"direction":       r.direction(),
	}}, nil
}

// Update implements resource.Handler. Only the description is updated.
func (h *SecurityGroupRuleHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	r, err := parseRule(req.Inputs)
	if err != nil {
		return nil, err
	}
	ruleReq := &ec2types.SecurityGroupRuleRequest{
		IpProtocol:  aws.String(r.protocol),
		FromPort:    aws.Int32(r.fromPort),
		ToPort:      aws.Int32(r.toPort),
		Description: aws.String(r.description),
	}
	if r.cidr != "" {
		ruleReq.CidrIpv4 = aws.String(r.cidr)
	} else {
		ruleReq.ReferencedGroupId = aws.String(r.sourceGroup)
	}
	err = h.create(ctx, func(ctx context.Context) error {
		_, err := h.api.ModifySecurityGroupRules(ctx, &ec2.ModifySecurityGroupRulesInput{
			GroupId: aws.String(r.groupID),
			SecurityGroupRules: []ec2types.SecurityGroupRuleUpdate{{
				SecurityGroupRuleId: aws.String(req.ID),
				SecurityGroupRule:   ruleReq,
			}},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to modify rule %s: %w", req.ID, err)
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler.
func (h *SecurityGroupRuleHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	groupID := req.Outputs.String("securityGroupId")
	egress := req.Outputs.String("direction") == DirectionEgress
	err := h.remove(ctx, func(ctx context.Context) error {
		if egress {
			_, err := h.api.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
				GroupId:              aws.String(groupID),
				SecurityGroupRuleIds: []string{req.ID},
			})
			return err
		}
		_, err := h.api.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
			GroupId:              aws.String(groupID),
			SecurityGroupRuleIds: []string{req.ID},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to revoke rule %s: %w", req.ID, err)
	}
	return nil
}
