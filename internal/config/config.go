package config

import (
	"strings"

	"github.com/imamik/searchstack/internal/util/naming"
)

// Fixed workload contract.
const (
	// DataDir is where the workload keeps its state inside the container.
	DataDir = "/data"
	// LivenessPath is the workload's health endpoint.
	LivenessPath = "/health"
	// NFSPort is the mount protocol port of the persistent volume.
	NFSPort = 2049
	// SecretsManagerScheme prefixes admin keys held in AWS Secrets Manager.
	SecretsManagerScheme = "awssm://"
)

// Config is the full deployment configuration.
type Config struct {
	Project string `yaml:"project"`
	Stack   string `yaml:"stack"`
	Region  string `yaml:"region"`

	// AdminAPIKey is the workload's admin credential, either a literal or an
	// awssm://<secret-id> reference. Usually supplied through the environment.
	AdminAPIKey string `yaml:"adminApiKey,omitempty"`

	Domain             string `yaml:"domain"`
	Subdomain          string `yaml:"subdomain"`
	CloudflareZoneID   string `yaml:"cloudflareZoneId"`
	CloudflareAPIToken string `yaml:"cloudflareApiToken,omitempty"`

	Network      NetworkConfig      `yaml:"network"`
	Storage      StorageConfig      `yaml:"storage"`
	LoadBalancer LoadBalancerConfig `yaml:"loadBalancer"`
	Workload     WorkloadConfig     `yaml:"workload"`
	State        StateConfig        `yaml:"state"`

	// Tags are added to every taggable cloud resource.
	Tags map[string]string `yaml:"tags,omitempty"`
}

// NetworkConfig describes the virtual network.
type NetworkConfig struct {
	CIDR              string   `yaml:"cidr"`
	AvailabilityZones []string `yaml:"availabilityZones"`
}

// StorageConfig describes the persistent volume.
type StorageConfig struct {
	// TransitionToIA is the EFS lifecycle policy, e.g. AFTER_30_DAYS.
	TransitionToIA string `yaml:"transitionToIA"`
	PosixUID       int64  `yaml:"posixUid"`
	PosixGID       int64  `yaml:"posixGid"`
}

// LoadBalancerConfig describes the public entry point.
type LoadBalancerConfig struct {
	ListenerPort    int    `yaml:"listenerPort"`
	HealthCheckPath string `yaml:"healthCheckPath"`
}

// WorkloadConfig describes the search container and its service.
type WorkloadConfig struct {
	Image            string            `yaml:"image"`
	CPU              int               `yaml:"cpu"`
	Memory           int               `yaml:"memory"`
	ContainerPort    int               `yaml:"containerPort"`
	DesiredCount     int               `yaml:"desiredCount"`
	ExecutionRoleArn string            `yaml:"executionRoleArn,omitempty"`
	TaskRoleArn      string            `yaml:"taskRoleArn"`
	EnableCORS       *bool             `yaml:"enableCors,omitempty"`
	Environment      map[string]string `yaml:"environment,omitempty"`
}

// StateConfig selects where observed state snapshots are kept.
type StateConfig struct {
	// Backend is one of file, bolt or s3.
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Subnet is one network partition bound to an availability zone.
type Subnet struct {
	Zone string
	CIDR string
}

// Prefix returns the physical name prefix of all resources.
func (c *Config) Prefix() string {
	return naming.Prefix(c.Project, c.Stack)
}

// Hostname returns the public DNS name.
func (c *Config) Hostname() string {
	return naming.Hostname(c.Subdomain, c.Domain)
}

// AdminKeySecretID returns the Secrets Manager id when the admin key is a
// reference rather than a literal.
func (c *Config) AdminKeySecretID() (string, bool) {
	if !strings.HasPrefix(c.AdminAPIKey, SecretsManagerScheme) {
		return "", false
	}
	return strings.TrimPrefix(c.AdminAPIKey, SecretsManagerScheme), true
}

// CORSEnabled reports whether the workload should answer CORS requests.
func (c *Config) CORSEnabled() bool {
	return c.Workload.EnableCORS == nil || *c.Workload.EnableCORS
}

// Subnets carves one subnet per availability zone out of the network CIDR,
// in the configured zone order. A zone's subnet is numbered by its letter
// suffix so that removing one zone leaves the other subnets untouched.
func (c *Config) Subnets() ([]Subnet, error) {
	nums := zoneNumbers(c.Network.AvailabilityZones)
	subnets := make([]Subnet, 0, len(c.Network.AvailabilityZones))
	for i, zone := range c.Network.AvailabilityZones {
		cidr, err := CIDRSubnet(c.Network.CIDR, subnetBits, nums[i])
		if err != nil {
			return nil, err
		}
		subnets = append(subnets, Subnet{Zone: zone, CIDR: cidr})
	}
	return subnets, nil
}

// zoneNumbers maps zones to subnet numbers by letter suffix ("a" is 0). It
// falls back to positions when a zone has no letter suffix or two zones
// share one.
func zoneNumbers(zones []string) []int {
	nums := make([]int, len(zones))
	seen := map[int]bool{}
	for i, z := range zones {
		if z == "" || z[len(z)-1] < 'a' || z[len(z)-1] > 'z' || seen[int(z[len(z)-1]-'a')] {
			for j := range nums {
				nums[j] = j
			}
			return nums
		}
		nums[i] = int(z[len(z)-1] - 'a')
		seen[nums[i]] = true
	}
	return nums
}
