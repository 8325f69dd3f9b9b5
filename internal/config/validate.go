package config

import (
	"fmt"
	"net/netip"
	"regexp"
	"slices"
	"strings"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a configuration validation error or warning.
type ValidationError struct {
	Field    string // Configuration field that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == SeverityError
}

// ValidationErrors is the outcome of Validate.
type ValidationErrors []ValidationError

// Errors returns the error-severity entries.
func (v ValidationErrors) Errors() ValidationErrors {
	var out ValidationErrors
	for _, e := range v {
		if e.IsError() {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns the warning-severity entries.
func (v ValidationErrors) Warnings() ValidationErrors {
	var out ValidationErrors
	for _, e := range v {
		if !e.IsError() {
			out = append(out, e)
		}
	}
	return out
}

// HasErrors reports whether any entry is an error.
func (v ValidationErrors) HasErrors() bool {
	return len(v.Errors()) > 0
}

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return "configuration validation failed:\n  " + strings.Join(msgs, "\n  ")
}

// Field returns the first entry for field.
func (v ValidationErrors) Field(field string) (ValidationError, bool) {
	for _, e := range v {
		if e.Field == field {
			return e, true
		}
	}
	return ValidationError{}, false
}

var (
	nameRegex      = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,18}[a-z0-9])?$`)
	labelRegex     = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)
	domainRegex    = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)
	zoneIDRegex    = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	envNameRegex   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reservedEnvVar = "TYPESENSE_"
)

// ValidTransitions are the EFS transition-to-IA lifecycle values.
var ValidTransitions = []string{
	"AFTER_1_DAY", "AFTER_7_DAYS", "AFTER_14_DAYS", "AFTER_30_DAYS",
	"AFTER_60_DAYS", "AFTER_90_DAYS", "AFTER_180_DAYS", "AFTER_270_DAYS",
	"AFTER_365_DAYS",
}

// fargateSizes maps Fargate CPU units to allowed memory sizes in MiB.
var fargateSizes = map[int][]int{
	256:  {512, 1024, 2048},
	512:  {1024, 2048, 3072, 4096},
	1024: {2048, 3072, 4096, 5120, 6144, 7168, 8192},
	2048: {4096, 5120, 6144, 7168, 8192, 9216, 10240, 11264, 12288, 13312, 14336, 15360, 16384},
	4096: {8192, 9216, 10240, 11264, 12288, 13312, 14336, 15360, 16384, 17408, 18432, 19456, 20480, 21504, 22528, 23552, 24576, 25600, 26624, 27648, 28672, 29696, 30720},
}

// Validate checks the configuration and returns every problem found. It
// returns nil when there are neither errors nor warnings.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, severity, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: severity})
	}

	// --- Identity ---

	if !nameRegex.MatchString(c.Project) {
		add("project", SeverityError, "must be 1-20 lowercase alphanumeric characters or hyphens, got %q", c.Project)
	}
	if !nameRegex.MatchString(c.Stack) {
		add("stack", SeverityError, "must be 1-20 lowercase alphanumeric characters or hyphens, got %q", c.Stack)
	}
	if c.Region == "" {
		add("region", SeverityError, "region is required (e.g., 'us-east-1')")
	}

	// --- Required inputs ---

	if c.AdminAPIKey == "" {
		add("adminApiKey", SeverityError, "admin API key is required (set %s)", EnvAdminAPIKey)
	} else if id, ok := c.AdminKeySecretID(); ok && id == "" {
		add("adminApiKey", SeverityError, "secret reference %q has no secret id", c.AdminAPIKey)
	}
	if c.Domain == "" {
		add("domain", SeverityError, "domain is required")
	} else if !domainRegex.MatchString(c.Domain) {
		add("domain", SeverityError, "invalid domain %q", c.Domain)
	}
	if c.Subdomain == "" {
		add("subdomain", SeverityError, "subdomain is required")
	} else if !labelRegex.MatchString(c.Subdomain) {
		add("subdomain", SeverityError, "invalid DNS label %q", c.Subdomain)
	}
	if c.CloudflareZoneID == "" {
		add("cloudflareZoneId", SeverityError, "cloudflare zone id is required")
	} else if !zoneIDRegex.MatchString(c.CloudflareZoneID) {
		add("cloudflareZoneId", SeverityError, "invalid zone id %q", c.CloudflareZoneID)
	}
	if c.CloudflareAPIToken == "" {
		add("cloudflareApiToken", SeverityError, "cloudflare API token is required (set %s)", EnvCloudflareAPIToken)
	}

	c.validateNetwork(add)
	c.validateStorage(add)
	c.validateLoadBalancer(add)
	c.validateWorkload(add)
	c.validateState(add)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

type addFunc func(field, severity, format string, args ...any)

func (c *Config) validateNetwork(add addFunc) {
	prefix, err := netip.ParsePrefix(c.Network.CIDR)
	switch {
	case err != nil:
		add("network.cidr", SeverityError, "invalid CIDR %q: %v", c.Network.CIDR, err)
	case !prefix.Addr().Is4():
		add("network.cidr", SeverityError, "only IPv4 networks are supported, got %q", c.Network.CIDR)
	case prefix.Bits() < minNetworkPrefixLength || prefix.Bits() > maxNetworkPrefixLength:
		add("network.cidr", SeverityError, "prefix length must be between /%d and /%d, got /%d",
			minNetworkPrefixLength, maxNetworkPrefixLength, prefix.Bits())
	case prefix.Masked() != prefix:
		add("network.cidr", SeverityWarning, "host bits set in %q, using %s", c.Network.CIDR, prefix.Masked())
	}

	zones := c.Network.AvailabilityZones
	if len(zones) == 0 {
		add("network.availabilityZones", SeverityError, "at least one availability zone is required")
		return
	}
	if len(zones) > maxAvailabilityZones {
		add("network.availabilityZones", SeverityError, "at most %d availability zones are supported", maxAvailabilityZones)
	}
	seen := map[string]bool{}
	for _, z := range zones {
		if seen[z] {
			add("network.availabilityZones", SeverityError, "duplicate availability zone %q", z)
		}
		seen[z] = true
		if c.Region != "" && !strings.HasPrefix(z, c.Region) {
			add("network.availabilityZones", SeverityError, "zone %q is not in region %q", z, c.Region)
		}
	}
	if len(zones) == 1 {
		add("network.availabilityZones", SeverityWarning, "an application load balancer needs subnets in at least two zones")
	}
}

func (c *Config) validateStorage(add addFunc) {
	if !slices.Contains(ValidTransitions, c.Storage.TransitionToIA) {
		add("storage.transitionToIA", SeverityError, "must be one of %v, got %q", ValidTransitions, c.Storage.TransitionToIA)
	}
	if c.Storage.PosixUID < 0 || c.Storage.PosixGID < 0 {
		add("storage.posixUid", SeverityError, "POSIX ids must not be negative")
	}
}

func (c *Config) validateLoadBalancer(add addFunc) {
	if c.LoadBalancer.ListenerPort < 1 || c.LoadBalancer.ListenerPort > 65535 {
		add("loadBalancer.listenerPort", SeverityError, "invalid port %d", c.LoadBalancer.ListenerPort)
	}
	if c.LoadBalancer.HealthCheckPath != LivenessPath {
		add("loadBalancer.healthCheckPath", SeverityError,
			"must match the workload liveness endpoint %q, got %q", LivenessPath, c.LoadBalancer.HealthCheckPath)
	}
}

func (c *Config) validateWorkload(add addFunc) {
	w := c.Workload
	if w.Image == "" {
		add("workload.image", SeverityError, "container image reference is required")
	}
	if mem, ok := fargateSizes[w.CPU]; !ok {
		add("workload.cpu", SeverityError, "unsupported Fargate CPU units %d", w.CPU)
	} else if !slices.Contains(mem, w.Memory) {
		add("workload.memory", SeverityError, "memory %d MiB is not valid for %d CPU units (allowed: %v)", w.Memory, w.CPU, mem)
	}
	if w.ContainerPort != c.LoadBalancer.ListenerPort {
		add("workload.containerPort", SeverityError,
			"must equal the listener port %d so health checks pass the single ingress rule", c.LoadBalancer.ListenerPort)
	}
	if w.DesiredCount != 1 {
		add("workload.desiredCount", SeverityError,
			"only a single instance is supported because the volume is not safe for concurrent writers, got %d", w.DesiredCount)
	}
	if w.TaskRoleArn == "" {
		add("workload.taskRoleArn", SeverityError, "task role is required for IAM-authorized volume access")
	}
	if _, ok := c.AdminKeySecretID(); ok && w.ExecutionRoleArn == "" {
		add("workload.executionRoleArn", SeverityError, "execution role is required to read the admin key from Secrets Manager")
	}
	for name := range w.Environment {
		if !envNameRegex.MatchString(name) {
			add("workload.environment", SeverityError, "invalid variable name %q", name)
		}
		if strings.HasPrefix(name, reservedEnvVar) {
			add("workload.environment", SeverityError, "%q is managed by searchstack", name)
		}
	}
}

func (c *Config) validateState(add addFunc) {
	switch c.State.Backend {
	case BackendFile, BackendBolt:
		if c.State.Path == "" {
			add("state.path", SeverityError, "path is required for the %s backend", c.State.Backend)
		}
	case BackendS3:
		if c.State.Bucket == "" {
			add("state.bucket", SeverityError, "bucket is required for the s3 backend")
		}
	default:
		add("state.backend", SeverityError, "must be one of file, bolt, s3, got %q", c.State.Backend)
	}
}
