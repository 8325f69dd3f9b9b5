package infrastructure

import (
	"errors"

	"github.com/imamik/searchstack/internal/provisioning"
)

const phase = "infrastructure"

// Errors returned for declarations that can never converge.
var (
	ErrNoSubnets      = errors.New("infrastructure: at least one subnet is required")
	ErrDuplicateZone  = errors.New("infrastructure: one subnet per availability zone")
	ErrHealthCheck    = errors.New("infrastructure: health check path must be the workload liveness path")
	ErrNetworkMissing = errors.New("infrastructure: network must be declared first")
)

// Provisioner handles infrastructure provisioning (network, firewall, load balancer).
type Provisioner struct{}

// NewProvisioner creates a new infrastructure provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	// 1. Network
	if err := p.ProvisionNetwork(ctx); err != nil {
		return err
	}

	// 2. Firewall
	if err := p.ProvisionFirewall(ctx); err != nil {
		return err
	}

	// 3. Load Balancer
	return p.ProvisionLoadBalancer(ctx)
}
