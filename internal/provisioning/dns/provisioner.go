package dns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/searchstack/internal/output"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/util/retry"
)

const phase = "dns"

// NodeRecord is the node name of the public record.
const NodeRecord = "dns-record"

// autoTTL lets the DNS provider choose; proxied records require it.
const autoTTL = 1

var (
	// ErrUnresolvedHostname is returned when the load balancer resolved to
	// an empty hostname. It is never retried.
	ErrUnresolvedHostname = errors.New("dns: load balancer hostname is empty")
	// ErrNoLoadBalancer is returned when the load balancer is not declared.
	ErrNoLoadBalancer = errors.New("dns: load balancer must be declared first")
)

// Provisioner declares the public DNS record.
type Provisioner struct{}

// NewProvisioner creates a new DNS provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	lb := ctx.State.LoadBalancer
	if lb == nil || lb.Listener == nil {
		return ErrNoLoadBalancer
	}
	cfg := ctx.Config
	hostname := cfg.Hostname()
	ctx.Observer.Printf("[%s] Declaring CNAME %s...", phase, hostname)

	// The hostname is published as soon as the balancer exists; the record
	// still waits for the listener so it never points at a balancer that
	// cannot serve traffic.
	record, err := ctx.Declare(provisioning.ComponentDNS, resource.Spec{
		Name: NodeRecord,
		Kind: resource.KindDNSRecord,
		Inputs: resource.Properties{
			"zoneId":  cfg.CloudflareZoneID,
			"type":    "CNAME",
			"name":    hostname,
			"content": Target(lb.DNSName),
			"proxied": true,
			"ttl":     autoTTL,
			"comment": fmt.Sprintf("managed by searchstack (%s)", cfg.Prefix()),
		},
		DependsOn: []string{lb.Listener.Name()},
	})
	if err != nil {
		return fmt.Errorf("failed to declare DNS record: %w", err)
	}

	ctx.State.DNS = &provisioning.DNS{
		Record:   record,
		Hostname: record.Output("hostname"),
	}
	return nil
}

// Target derives the record content from the load balancer hostname. An
// empty hostname fails the record instead of publishing a dangling CNAME.
func Target(dnsName output.Output[string]) output.Output[string] {
	return output.Map(dnsName, func(host string) (string, error) {
		host = strings.TrimSuffix(strings.TrimSpace(host), ".")
		if host == "" {
			return "", retry.Fatal(ErrUnresolvedHostname)
		}
		return host, nil
	})
}
