package testing

import (
	"maps"
	"slices"

	"github.com/imamik/searchstack/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a builder preloaded with the reference scenario:
// search.example.com in zone Z123 with admin key "secret".
func NewConfigBuilder() *ConfigBuilder {
	cfg := config.Config{
		Project:            "search",
		Stack:              "test",
		Region:             "us-east-1",
		AdminAPIKey:        "secret",
		Domain:             "example.com",
		Subdomain:          "search",
		CloudflareZoneID:   "Z123",
		CloudflareAPIToken: "cf-token",
		Network: config.NetworkConfig{
			AvailabilityZones: []string{"us-east-1a", "us-east-1b"},
		},
		Workload: config.WorkloadConfig{
			Image:       "typesense/typesense:27.1",
			TaskRoleArn: "arn:aws:iam::123456789012:role/search-task",
		},
	}
	cfg.ApplyDefaults()
	return &ConfigBuilder{cfg: cfg}
}

// WithZones replaces the availability zones.
func (b *ConfigBuilder) WithZones(zones ...string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Network.AvailabilityZones = slices.Clone(zones)
	return nb
}

// WithAdminKey sets the admin API key, literal or awssm:// reference.
func (b *ConfigBuilder) WithAdminKey(key string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.AdminAPIKey = key
	return nb
}

// WithExecutionRole sets the task execution role.
func (b *ConfigBuilder) WithExecutionRole(arn string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Workload.ExecutionRoleArn = arn
	return nb
}

// WithDesiredCount sets the service replica count.
func (b *ConfigBuilder) WithDesiredCount(n int) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Workload.DesiredCount = n
	return nb
}

// WithImage sets the container image.
func (b *ConfigBuilder) WithImage(image string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Workload.Image = image
	return nb
}

// WithDNS sets the public name and zone.
func (b *ConfigBuilder) WithDNS(subdomain, domain, zoneID string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Subdomain = subdomain
	nb.cfg.Domain = domain
	nb.cfg.CloudflareZoneID = zoneID
	return nb
}

// WithTransitionToIA sets the volume lifecycle policy.
func (b *ConfigBuilder) WithTransitionToIA(policy string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Storage.TransitionToIA = policy
	return nb
}

// Build returns the constructed config.
func (b *ConfigBuilder) Build() *config.Config {
	return &b.clone().cfg
}

// clone creates a deep copy of the builder for immutability.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	cfg := b.cfg
	cfg.Network.AvailabilityZones = slices.Clone(b.cfg.Network.AvailabilityZones)
	cfg.Workload.Environment = maps.Clone(b.cfg.Workload.Environment)
	cfg.Tags = maps.Clone(b.cfg.Tags)
	return &ConfigBuilder{cfg: cfg}
}

// MinimalConfig returns a valid config for simple tests.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().Build()
}
