package provisioning

import (
	"github.com/imamik/searchstack/internal/output"
	"github.com/imamik/searchstack/internal/resource"
)

// Network is the published result of the network fabric.
type Network struct {
	VpcID output.Output[string]
	// Zones lists the availability zones in configuration order.
	Zones []string
	// SubnetIDs holds one subnet per zone, ordered like Zones.
	SubnetIDs       output.Output[[]string]
	SubnetIDByZone  map[string]output.Output[string]
	SecurityGroupID output.Output[string]
	// Routes are the route table associations; tasks need them to pull images.
	Routes []*resource.Ref
}

// Firewall holds the three rule nodes of the shared security group.
type Firewall struct {
	ListenerIngress *resource.Ref
	NFSIngress      *resource.Ref
	Egress          *resource.Ref
}

// Rules returns the rule nodes in declaration order.
func (f *Firewall) Rules() []*resource.Ref {
	return []*resource.Ref{f.ListenerIngress, f.NFSIngress, f.Egress}
}

// Volume is the persistent volume handed to the compute platform.
type Volume struct {
	FileSystemID  output.Output[string]
	AccessPointID output.Output[string]
	// TransitEncryption is always true; the volume is only mounted over TLS.
	TransitEncryption bool
	MountTargets      map[string]*resource.Ref
	AccessPoint       *resource.Ref
}

// LoadBalancer is the published result of the load balancing layer.
type LoadBalancer struct {
	ARN            output.Output[string]
	DNSName        output.Output[string]
	TargetGroupARN output.Output[string]
	ListenerARN    output.Output[string]
	// Listener must be ready before the service registers targets.
	Listener *resource.Ref
	// TargetPort is the port the target group sends traffic to.
	TargetPort      int
	HealthCheckPath string
}

// Compute is the published result of the compute platform.
type Compute struct {
	ClusterARN        output.Output[string]
	TaskDefinitionARN output.Output[string]
	Service           *resource.Ref
}

// DNS is the published result of external access.
type DNS struct {
	Record   *resource.Ref
	Hostname output.Output[string]
}

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase declares its nodes and is
// passed to subsequent phases that need earlier results.
type State struct {
	Network      *Network
	Firewall     *Firewall
	Volume       *Volume
	LoadBalancer *LoadBalancer
	Compute      *Compute
	DNS          *DNS

	// Components maps each component to the nodes it declared, in order.
	Components map[Component][]string
}

// NewState creates an empty provisioning state.
func NewState() *State {
	return &State{
		Components: make(map[Component][]string),
	}
}
