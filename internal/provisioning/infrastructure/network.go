package infrastructure

import (
	"fmt"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/output"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/util/naming"
)

// Node names of the network fabric.
const (
	NodeVpc             = "vpc"
	NodeInternetGateway = "internet-gateway"
	NodeRouteTable      = "route-table"
	NodeSecurityGroup   = "security-group"
)

// SubnetNode returns the node name of the subnet in zone.
func SubnetNode(zone string) string {
	return "subnet-" + zone
}

// RouteAssociationNode returns the node name of the route table
// association of the subnet in zone.
func RouteAssociationNode(zone string) string {
	return "route-table-association-" + zone
}

// ProvisionNetwork declares the VPC, the public routing, one subnet per zone
// and the shared security group.
func (p *Provisioner) ProvisionNetwork(ctx *provisioning.Context) error {
	cfg := ctx.Config
	prefix := cfg.Prefix()
	ctx.Observer.Printf("[%s] Declaring network %s (%s)...", phase, naming.Vpc(prefix), cfg.Network.CIDR)

	subnets, err := cfg.Subnets()
	if err != nil {
		return fmt.Errorf("failed to calculate subnets: %w", err)
	}
	if err := checkSubnets(subnets); err != nil {
		return err
	}

	declare := func(spec resource.Spec) (*resource.Ref, error) {
		return ctx.Declare(provisioning.ComponentNetwork, spec)
	}

	vpc, err := declare(resource.Spec{
		Name: NodeVpc,
		Kind: resource.KindVpc,
		Inputs: resource.Properties{
			"cidrBlock":          cfg.Network.CIDR,
			"enableDnsHostnames": true,
			"enableDnsSupport":   true,
			"tags":               ctx.Tags(provisioning.ComponentNetwork, naming.Vpc(prefix)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to declare vpc: %w", err)
	}

	igw, err := declare(resource.Spec{
		Name: NodeInternetGateway,
		Kind: resource.KindInternetGateway,
		Inputs: resource.Properties{
			"vpcId": vpc.ID(),
			"tags":  ctx.Tags(provisioning.ComponentNetwork, naming.InternetGateway(prefix)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to declare internet gateway: %w", err)
	}

	routes, err := declare(resource.Spec{
		Name: NodeRouteTable,
		Kind: resource.KindRouteTable,
		Inputs: resource.Properties{
			"vpcId":                vpc.ID(),
			"gatewayId":            igw.ID(),
			"destinationCidrBlock": "0.0.0.0/0",
			"tags":                 ctx.Tags(provisioning.ComponentNetwork, naming.RouteTable(prefix)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to declare route table: %w", err)
	}

	net := &provisioning.Network{
		VpcID:          vpc.ID(),
		SubnetIDByZone: make(map[string]output.Output[string], len(subnets)),
	}
	ids := make([]output.Output[string], 0, len(subnets))
	for _, s := range subnets {
		subnet, err := declare(resource.Spec{
			Name: SubnetNode(s.Zone),
			Kind: resource.KindSubnet,
			Inputs: resource.Properties{
				"vpcId":               vpc.ID(),
				"cidrBlock":           s.CIDR,
				"availabilityZone":    s.Zone,
				"mapPublicIpOnLaunch": true,
				"tags":                ctx.Tags(provisioning.ComponentNetwork, naming.Subnet(prefix, s.Zone)),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to declare subnet in %s: %w", s.Zone, err)
		}

		assoc, err := declare(resource.Spec{
			Name: RouteAssociationNode(s.Zone),
			Kind: resource.KindRouteTableAssociation,
			Inputs: resource.Properties{
				"routeTableId": routes.ID(),
				"subnetId":     subnet.ID(),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to declare route for %s: %w", s.Zone, err)
		}

		net.Zones = append(net.Zones, s.Zone)
		net.SubnetIDByZone[s.Zone] = subnet.ID()
		net.Routes = append(net.Routes, assoc)
		ids = append(ids, subnet.ID())
	}
	net.SubnetIDs = output.All(ids...)

	sg, err := declare(resource.Spec{
		Name: NodeSecurityGroup,
		Kind: resource.KindSecurityGroup,
		Inputs: resource.Properties{
			"name":        naming.SecurityGroup(prefix),
			"description": fmt.Sprintf("Search stack %s", prefix),
			"vpcId":       vpc.ID(),
			"tags":        ctx.Tags(provisioning.ComponentNetwork, naming.SecurityGroup(prefix)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to declare security group: %w", err)
	}
	net.SecurityGroupID = sg.ID()

	ctx.State.Network = net
	ctx.Observer.Printf("[%s] Network declared with %d subnets", phase, len(subnets))
	return nil
}

// checkSubnets enforces one subnet per zone.
func checkSubnets(subnets []config.Subnet) error {
	if len(subnets) == 0 {
		return ErrNoSubnets
	}
	seen := make(map[string]bool, len(subnets))
	for _, s := range subnets {
		if seen[s.Zone] {
			return fmt.Errorf("%w: %s", ErrDuplicateZone, s.Zone)
		}
		seen[s.Zone] = true
	}
	return nil
}
