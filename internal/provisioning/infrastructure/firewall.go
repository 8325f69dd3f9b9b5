package infrastructure

import (
	"fmt"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/platform/aws"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/resource"
)

// Rule node names. The security group carries these three rules and no others.
const (
	NodeListenerIngress = "rule-listener-ingress"
	NodeNFSIngress      = "rule-nfs-ingress"
	NodeEgress          = "rule-egress"
)

const anywhere = "0.0.0.0/0"

// ProvisionFirewall declares the rules of the shared security group:
// public ingress on the listener port, NFS ingress from the group itself and
// unrestricted TCP egress.
func (p *Provisioner) ProvisionFirewall(ctx *provisioning.Context) error {
	net := ctx.State.Network
	if net == nil {
		return ErrNetworkMissing
	}
	port := ctx.Config.LoadBalancer.ListenerPort
	ctx.Observer.Printf("[%s] Declaring firewall rules (listener %d, nfs %d)...", phase, port, config.NFSPort)

	sg := net.SecurityGroupID
	listener, err := addRule(ctx, NodeListenerIngress, resource.Properties{
		"securityGroupId": sg,
		"direction":       aws.DirectionIngress,
		"fromPort":        port,
		"toPort":          port,
		"cidr":            anywhere,
		"description":     "public listener",
	})
	if err != nil {
		return err
	}

	nfs, err := addRule(ctx, NodeNFSIngress, resource.Properties{
		"securityGroupId":       sg,
		"direction":             aws.DirectionIngress,
		"fromPort":              config.NFSPort,
		"toPort":                config.NFSPort,
		"sourceSecurityGroupId": sg,
		"description":           "volume mounts",
	})
	if err != nil {
		return err
	}

	egress, err := addRule(ctx, NodeEgress, resource.Properties{
		"securityGroupId": sg,
		"direction":       aws.DirectionEgress,
		"fromPort":        0,
		"toPort":          65535,
		"cidr":            anywhere,
		"description":     "outbound",
	})
	if err != nil {
		return err
	}

	ctx.State.Firewall = &provisioning.Firewall{
		ListenerIngress: listener,
		NFSIngress:      nfs,
		Egress:          egress,
	}
	return nil
}

func addRule(ctx *provisioning.Context, name string, in resource.Properties) (*resource.Ref, error) {
	in["protocol"] = "tcp"
	ref, err := ctx.Declare(provisioning.ComponentFirewall, resource.Spec{
		Name:   name,
		Kind:   resource.KindSecurityGroupRule,
		Inputs: in,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare firewall rule %s: %w", name, err)
	}
	return ref, nil
}
