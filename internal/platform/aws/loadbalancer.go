package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/imamik/searchstack/internal/resource"
)

func tagELB(ctx context.Context, b base, api ELBAPI, arn string, p resource.Properties) error {
	m := tagMap(p)
	if len(m) == 0 {
		return nil
	}
	return b.create(ctx, func(ctx context.Context) error {
		_, err := api.AddTags(ctx, &elbv2.AddTagsInput{ResourceArns: []string{arn}, Tags: elbTags(m)})
		return err
	})
}

// LoadBalancerHandler manages aws:lb:LoadBalancer (application load
// balancers). The ID is the load balancer ARN.
//
// Inputs: name, subnetIds, securityGroupIds, scheme, tags.
// Outputs: id, arn, dnsName, zoneId.
type LoadBalancerHandler struct {
	base
	api ELBAPI
}

// ReplaceOnChange implements resource.Replacer.
func (h *LoadBalancerHandler) ReplaceOnChange() []string { return []string{keyName, "scheme"} }

func loadBalancerOutputs(lb elbtypes.LoadBalancer) resource.Properties {
	arn := aws.ToString(lb.LoadBalancerArn)
	return resource.Properties{
		resource.OutputID:      arn,
		resource.OutputARN:     arn,
		resource.OutputDNSName: aws.ToString(lb.DNSName),
		"zoneId":               aws.ToString(lb.CanonicalHostedZoneId),
	}
}

func (h *LoadBalancerHandler) describe(ctx context.Context, in *elbv2.DescribeLoadBalancersInput) (*elbtypes.LoadBalancer, error) {
	out, err := h.api.DescribeLoadBalancers(ctx, in)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(out.LoadBalancers) == 0 {
		return nil, nil
	}
	return &out.LoadBalancers[0], nil
}

// Create implements resource.Handler.
func (h *LoadBalancerHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	in := req.Inputs
	name, err := required(in, keyName)
	if err != nil {
		return nil, err
	}
	scheme := elbtypes.LoadBalancerSchemeEnumInternetFacing
	if s := in.String("scheme"); s != "" {
		scheme = elbtypes.LoadBalancerSchemeEnum(s)
	}

	lb, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (*elbtypes.LoadBalancer, bool, error) {
			lb, err := h.describe(ctx, &elbv2.DescribeLoadBalancersInput{Names: []string{name}})
			if err != nil || lb == nil || !adoptable(req, aws.ToString(lb.LoadBalancerArn)) {
				return nil, false, err
			}
			return lb, true, nil
		},
		func(ctx context.Context) (*elbtypes.LoadBalancer, error) {
			out, err := h.api.CreateLoadBalancer(ctx, &elbv2.CreateLoadBalancerInput{
				Name:           aws.String(name),
				Subnets:        in.Strings(keySubnetIDs),
				SecurityGroups: in.Strings(keySecurityGroupIDs),
				Scheme:         scheme,
				Type:           elbtypes.LoadBalancerTypeEnumApplication,
				IpAddressType:  elbtypes.IpAddressTypeIpv4,
				Tags:           elbTags(tagMap(in)),
			})
			if err != nil {
				return nil, err
			}
			if len(out.LoadBalancers) == 0 {
				return nil, fmt.Errorf("no load balancer returned for %s", name)
			}
			return &out.LoadBalancers[0], nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create load balancer %s: %w", name, err)
	}
	return &resource.Result{ID: aws.ToString(lb.LoadBalancerArn), Outputs: loadBalancerOutputs(*lb)}, nil
}

// Update implements resource.Handler.
func (h *LoadBalancerHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	arn := aws.String(req.ID)
	if changed(req, keySubnetIDs) {
		err := h.create(ctx, func(ctx context.Context) error {
			_, err := h.api.SetSubnets(ctx, &elbv2.SetSubnetsInput{LoadBalancerArn: arn, Subnets: req.Inputs.Strings(keySubnetIDs)})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set subnets of %s: %w", req.ID, err)
		}
	}
	if changed(req, keySecurityGroupIDs) {
		err := h.create(ctx, func(ctx context.Context) error {
			_, err := h.api.SetSecurityGroups(ctx, &elbv2.SetSecurityGroupsInput{LoadBalancerArn: arn, SecurityGroups: req.Inputs.Strings(keySecurityGroupIDs)})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set security groups of %s: %w", req.ID, err)
		}
	}
	if changed(req, keyTags) {
		if err := tagELB(ctx, h.base, h.api, req.ID, req.Inputs); err != nil {
			return nil, fmt.Errorf("failed to tag load balancer %s: %w", req.ID, err)
		}
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler.
func (h *LoadBalancerHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteLoadBalancer(ctx, &elbv2.DeleteLoadBalancerInput{LoadBalancerArn: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete load balancer %s: %w", req.ID, err)
	}
	return nil
}

// Read implements resource.Reader.
func (h *LoadBalancerHandler) Read(ctx context.Context, id string, _ resource.Properties) (resource.Properties, bool, error) {
	lb, err := h.describe(ctx, &elbv2.DescribeLoadBalancersInput{LoadBalancerArns: []string{id}})
	if err != nil {
		return nil, false, fmt.Errorf("failed to describe load balancer %s: %w", id, err)
	}
	if lb == nil {
		return nil, false, nil
	}
	return loadBalancerOutputs(*lb), true, nil
}

// WaitReady implements resource.Waiter.
func (h *LoadBalancerHandler) WaitReady(ctx context.Context, id string, _ resource.Properties) error {
	return h.waitFor(ctx, "load balancer "+id, func(ctx context.Context) (bool, error) {
		lb, err := h.describe(ctx, &elbv2.DescribeLoadBalancersInput{LoadBalancerArns: []string{id}})
		if err != nil {
			return false, err
		}
		if lb == nil || lb.State == nil {
			return false, nil
		}
		if lb.State.Code == elbtypes.LoadBalancerStateEnumFailed {
			return false, fmt.Errorf("load balancer failed: %s", aws.ToString(lb.State.Reason))
		}
		return lb.State.Code == elbtypes.LoadBalancerStateEnumActive, nil
	})
}

// TargetGroupHandler manages aws:lb:TargetGroup for IP targets.
//
// Inputs: name, vpcId, port, protocol, targetType, healthCheckPath,
// healthCheckMatcher. Outputs: id, arn, name.
type TargetGroupHandler struct {
	base
	api ELBAPI
}

// ReplaceOnChange implements resource.Replacer.
func (h *TargetGroupHandler) ReplaceOnChange() []string {
	return []string{keyName, keyVpcID, "port", "protocol", "targetType"}
}

func healthCheck(p resource.Properties) (path, matcher string) {
	path, matcher = p.String("healthCheckPath"), p.String("healthCheckMatcher")
	if path == "" {
		path = "/"
	}
	if matcher == "" {
		matcher = "200"
	}
	return path, matcher
}

// Create implements resource.Handler.
func (h *TargetGroupHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	in := req.Inputs
	name, err := required(in, keyName)
	if err != nil {
		return nil, err
	}
	vpcID, err := required(in, keyVpcID)
	if err != nil {
		return nil, err
	}
	protocol := elbtypes.ProtocolEnumHttp
	if p := in.String("protocol"); p != "" {
		protocol = elbtypes.ProtocolEnum(p)
	}
	targetType := elbtypes.TargetTypeEnumIp
	if t := in.String("targetType"); t != "" {
		targetType = elbtypes.TargetTypeEnum(t)
	}
	path, matcher := healthCheck(in)

	arn, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) {
			out, err := h.api.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{Names: []string{name}})
			if isNotFound(err) {
				return "", false, nil
			}
			if err != nil {
				return "", false, err
			}
			for _, tg := range out.TargetGroups {
				if arn := aws.ToString(tg.TargetGroupArn); adoptable(req, arn) {
					return arn, true, nil
				}
			}
			return "", false, nil
		},
		func(ctx context.Context) (string, error) {
			out, err := h.api.CreateTargetGroup(ctx, &elbv2.CreateTargetGroupInput{
				Name:               aws.String(name),
				VpcId:              aws.String(vpcID),
				Port:               aws.Int32(int32Of(in, "port")),
				Protocol:           protocol,
				TargetType:         targetType,
				HealthCheckEnabled: aws.Bool(true),
				HealthCheckPath:    aws.String(path),
				Matcher:            &elbtypes.Matcher{HttpCode: aws.String(matcher)},
				Tags:               elbTags(tagMap(in)),
			})
			if err != nil {
				return "", err
			}
			if len(out.TargetGroups) == 0 {
				return "", fmt.Errorf("no target group returned for %s", name)
			}
			return aws.ToString(out.TargetGroups[0].TargetGroupArn), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create target group %s: %w", name, err)
	}
	return &resource.Result{ID: arn, Outputs: resource.Properties{
		resource.OutputID:  arn,
		resource.OutputARN: arn,
		keyName:            name,
	}}, nil
}

// Update implements resource.Handler.
func (h *TargetGroupHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if changed(req, "healthCheckPath", "healthCheckMatcher") {
		path, matcher := healthCheck(req.Inputs)
		err := h.create(ctx, func(ctx context.Context) error {
			_, err := h.api.ModifyTargetGroup(ctx, &elbv2.ModifyTargetGroupInput{
				TargetGroupArn:  aws.String(req.ID),
				HealthCheckPath: aws.String(path),
				Matcher:         &elbtypes.Matcher{HttpCode: aws.String(matcher)},
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to modify target group %s: %w", req.ID, err)
		}
	}
	if changed(req, keyTags) {
		if err := tagELB(ctx, h.base, h.api, req.ID, req.Inputs); err != nil {
			return nil, fmt.Errorf("failed to tag target group %s: %w", req.ID, err)
		}
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler. Deletion is retried while a listener
// still forwards to the group.
func (h *TargetGroupHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteTargetGroup(ctx, &elbv2.DeleteTargetGroupInput{TargetGroupArn: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete target group %s: %w", req.ID, err)
	}
	return nil
}

// ListenerHandler manages aws:lb:Listener forwarding to one target group.
//
// Inputs: loadBalancerArn, port, protocol, targetGroupArn. Outputs: id, arn.
type ListenerHandler struct {
	base
	api ELBAPI
}

// ReplaceOnChange implements resource.Replacer.
func (h *ListenerHandler) ReplaceOnChange() []string { return []string{"loadBalancerArn", "port"} }

func forward(targetGroupArn string) []elbtypes.Action {
	return []elbtypes.Action{{Type: elbtypes.ActionTypeEnumForward, TargetGroupArn: aws.String(targetGroupArn)}}
}

func listenerProtocol(p resource.Properties) elbtypes.ProtocolEnum {
	if v := p.String("protocol"); v != "" {
		return elbtypes.ProtocolEnum(v)
	}
	return elbtypes.ProtocolEnumHttp
}

// Create implements resource.Handler.
func (h *ListenerHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	in := req.Inputs
	lbArn, err := required(in, "loadBalancerArn")
	if err != nil {
		return nil, err
	}
	tgArn, err := required(in, "targetGroupArn")
	if err != nil {
		return nil, err
	}
	port := int32Of(in, "port")

	arn, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) {
			out, err := h.api.DescribeListeners(ctx, &elbv2.DescribeListenersInput{LoadBalancerArn: aws.String(lbArn)})
			if err != nil {
				return "", false, err
			}
			for _, l := range out.Listeners {
				if arn := aws.ToString(l.ListenerArn); aws.ToInt32(l.Port) == port && adoptable(req, arn) {
					return arn, true, nil
				}
			}
			return "", false, nil
		},
		func(ctx context.Context) (string, error) {
			out, err := h.api.CreateListener(ctx, &elbv2.CreateListenerInput{
				LoadBalancerArn: aws.String(lbArn),
				Port:            aws.Int32(port),
				Protocol:        listenerProtocol(in),
				DefaultActions:  forward(tgArn),
			})
			if err != nil {
				return "", err
			}
			if len(out.Listeners) == 0 {
				return "", fmt.Errorf("no listener returned for port %d", port)
			}
			return aws.ToString(out.Listeners[0].ListenerArn), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on port %d: %w", port, err)
	}
	return &resource.Result{ID: arn, Outputs: resource.Properties{resource.OutputID: arn, resource.OutputARN: arn}}, nil
}

// Update implements resource.Handler.
func (h *ListenerHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	tgArn, err := required(req.Inputs, "targetGroupArn")
	if err != nil {
		return nil, err
	}
	err = h.create(ctx, func(ctx context.Context) error {
		_, err := h.api.ModifyListener(ctx, &elbv2.ModifyListenerInput{
			ListenerArn:    aws.String(req.ID),
			Protocol:       listenerProtocol(req.Inputs),
			DefaultActions: forward(tgArn),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to modify listener %s: %w", req.ID, err)
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler.
func (h *ListenerHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteListener(ctx, &elbv2.DeleteListenerInput{ListenerArn: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete listener %s: %w", req.ID, err)
	}
	return nil
}
