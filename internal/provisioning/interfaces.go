package provisioning

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision declares the resources of this phase into ctx.Set.
	Provision(ctx *Context) error
}

// Component names group declared nodes for stage tracking.
type Component string

const (
	ComponentNetwork      Component = "network"
	ComponentFirewall     Component = "firewall"
	ComponentStorage      Component = "storage"
	ComponentLoadBalancer Component = "load-balancer"
	ComponentCompute      Component = "compute"
	ComponentDNS          Component = "dns"
)
