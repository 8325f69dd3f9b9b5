package infrastructure

import (
	"fmt"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/output"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/util/naming"
)

// Load balancing node names.
const (
	NodeLoadBalancer = "load-balancer"
	NodeTargetGroup  = "target-group"
	NodeListener     = "listener"
)

// ProvisionLoadBalancer declares the internet-facing load balancer, its IP
// target group and the listener forwarding to it.
func (p *Provisioner) ProvisionLoadBalancer(ctx *provisioning.Context) error {
	net := ctx.State.Network
	if net == nil {
		return ErrNetworkMissing
	}
	cfg := ctx.Config
	lbCfg := cfg.LoadBalancer
	if lbCfg.HealthCheckPath != config.LivenessPath {
		return fmt.Errorf("%w: got %q, want %q", ErrHealthCheck, lbCfg.HealthCheckPath, config.LivenessPath)
	}
	prefix := cfg.Prefix()
	lbName := naming.LoadBalancer(prefix)
	ctx.Observer.Printf("[%s] Declaring load balancer %s...", phase, lbName)

	declare := func(spec resource.Spec) (*resource.Ref, error) {
		return ctx.Declare(provisioning.ComponentLoadBalancer, spec)
	}
	securityGroups := []output.Output[string]{net.SecurityGroupID}

	lb, err := declare(resource.Spec{
		Name: NodeLoadBalancer,
		Kind: resource.KindLoadBalancer,
		Inputs: resource.Properties{
			"name":             lbName,
			"subnetIds":        net.SubnetIDs,
			"securityGroupIds": securityGroups,
			"scheme":           "internet-facing",
			"tags":             ctx.Tags(provisioning.ComponentLoadBalancer, lbName),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to declare load balancer: %w", err)
	}

	const protocol, targetType = "HTTP", "ip"
	tgName := naming.TargetGroup(prefix, lbCfg.ListenerPort, protocol, targetType)
	tg, err := declare(resource.Spec{
		Name: NodeTargetGroup,
		Kind: resource.KindTargetGroup,
		Inputs: resource.Properties{
			"name":               tgName,
			"vpcId":              net.VpcID,
			"port":               lbCfg.ListenerPort,
			"protocol":           protocol,
			"targetType":         targetType,
			"healthCheckPath":    lbCfg.HealthCheckPath,
			"healthCheckMatcher": "200",
			"tags":               ctx.Tags(provisioning.ComponentLoadBalancer, tgName),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to declare target group: %w", err)
	}

	// The target group ARN is consumed, which already orders the listener
	// after it; the strict edge also blocks the listener on a failed group.
	listener, err := declare(resource.Spec{
		Name: NodeListener,
		Kind: resource.KindListener,
		Inputs: resource.Properties{
			"loadBalancerArn": lb.Output(resource.OutputARN),
			"port":            lbCfg.ListenerPort,
			"protocol":        "HTTP",
			"targetGroupArn":  tg.Output(resource.OutputARN),
		},
		DependsOn: []string{tg.Name()},
	})
	if err != nil {
		return fmt.Errorf("failed to declare listener: %w", err)
	}

	ctx.State.LoadBalancer = &provisioning.LoadBalancer{
		ARN:             lb.Output(resource.OutputARN),
		DNSName:         lb.Output(resource.OutputDNSName),
		TargetGroupARN:  tg.Output(resource.OutputARN),
		ListenerARN:     listener.Output(resource.OutputARN),
		Listener:        listener,
		TargetPort:      lbCfg.ListenerPort,
		HealthCheckPath: lbCfg.HealthCheckPath,
	}
	return nil
}
