package resource

// Resource kinds handled by the platform adapters.
const (
	KindVpc                   Kind = "aws:ec2:Vpc"
	KindInternetGateway       Kind = "aws:ec2:InternetGateway"
	KindRouteTable            Kind = "aws:ec2:RouteTable"
	KindSubnet                Kind = "aws:ec2:Subnet"
	KindRouteTableAssociation Kind = "aws:ec2:RouteTableAssociation"
	KindSecurityGroup         Kind = "aws:ec2:SecurityGroup"
	KindSecurityGroupRule     Kind = "aws:ec2:SecurityGroupRule"

	KindFileSystem  Kind = "aws:efs:FileSystem"
	KindMountTarget Kind = "aws:efs:MountTarget"
	KindAccessPoint Kind = "aws:efs:AccessPoint"

	KindLoadBalancer Kind = "aws:lb:LoadBalancer"
	KindTargetGroup  Kind = "aws:lb:TargetGroup"
	KindListener     Kind = "aws:lb:Listener"

	KindCluster        Kind = "aws:ecs:Cluster"
	KindTaskDefinition Kind = "aws:ecs:TaskDefinition"
	KindService        Kind = "aws:ecs:Service"

	KindDNSRecord Kind = "cloudflare:dns:Record"
)

// Common output keys.
const (
	OutputID      = "id"
	OutputARN     = "arn"
	OutputDNSName = "dnsName"
)

// AllKinds lists every kind in declaration order.
func AllKinds() []Kind {
	return []Kind{
		KindVpc, KindInternetGateway, KindRouteTable, KindSubnet,
		KindRouteTableAssociation, KindSecurityGroup, KindSecurityGroupRule,
		KindFileSystem, KindMountTarget, KindAccessPoint,
		KindLoadBalancer, KindTargetGroup, KindListener,
		KindCluster, KindTaskDefinition, KindService,
		KindDNSRecord,
	}
}
