package aws

import (
	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/resource"
)

// Register adds a handler for every AWS kind to reg.
func Register(reg resource.Registry, c *Clients, t *config.Timeouts) {
	b := base{timeouts: t}

	reg.Register(resource.KindVpc, &VpcHandler{base: b, api: c.EC2})
	reg.Register(resource.KindInternetGateway, &InternetGatewayHandler{base: b, api: c.EC2})
	reg.Register(resource.KindRouteTable, &RouteTableHandler{base: b, api: c.EC2})
	reg.Register(resource.KindSubnet, &SubnetHandler{base: b, api: c.EC2})
	reg.Register(resource.KindRouteTableAssociation, &RouteTableAssociationHandler{base: b, api: c.EC2})
	reg.Register(resource.KindSecurityGroup, &SecurityGroupHandler{base: b, api: c.EC2})
	reg.Register(resource.KindSecurityGroupRule, &SecurityGroupRuleHandler{base: b, api: c.EC2})

	reg.Register(resource.KindFileSystem, &FileSystemHandler{base: b, api: c.EFS})
	reg.Register(resource.KindMountTarget, &MountTargetHandler{base: b, api: c.EFS})
	reg.Register(resource.KindAccessPoint, &AccessPointHandler{base: b, api: c.EFS})

	reg.Register(resource.KindLoadBalancer, &LoadBalancerHandler{base: b, api: c.ELB})
	reg.Register(resource.KindTargetGroup, &TargetGroupHandler{base: b, api: c.ELB})
	reg.Register(resource.KindListener, &ListenerHandler{base: b, api: c.ELB})

	reg.Register(resource.KindCluster, &ClusterHandler{base: b, api: c.ECS})
	reg.Register(resource.KindTaskDefinition, &TaskDefinitionHandler{base: b, api: c.ECS})
	reg.Register(resource.KindService, &ServiceHandler{base: b, api: c.ECS})
}
