package naming

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// maxBalancerName is the ELBv2 limit for load balancer and target group names.
const maxBalancerName = 32

// Prefix returns the common name prefix of a stack.
func Prefix(project, stack string) string {
	return fmt.Sprintf("%s-%s", project, stack)
}

func Vpc(prefix string) string {
	return fmt.Sprintf("%s-vpc", prefix)
}

func InternetGateway(prefix string) string {
	return fmt.Sprintf("%s-igw", prefix)
}

func RouteTable(prefix string) string {
	return fmt.Sprintf("%s-public", prefix)
}

func Subnet(prefix, zone string) string {
	return fmt.Sprintf("%s-%s", prefix, zone)
}

func SecurityGroup(prefix string) string {
	return fmt.Sprintf("%s-sg", prefix)
}

// FileSystemToken is the EFS creation token, which makes creation idempotent.
func FileSystemToken(prefix string) string {
	return fmt.Sprintf("%s-data", prefix)
}

func MountTarget(prefix, zone string) string {
	return fmt.Sprintf("%s-mt-%s", prefix, zone)
}

func AccessPoint(prefix string) string {
	return fmt.Sprintf("%s-data-ap", prefix)
}

func LoadBalancer(prefix string) string {
	return truncate(fmt.Sprintf("%s-lb", prefix), maxBalancerName)
}

// TargetGroup names a target group. Settings that force a replacement go
// into a short suffix so the new group can exist next to the old one.
func TargetGroup(prefix string, settings ...any) string {
	return revision(fmt.Sprintf("%s-tg", prefix), maxBalancerName, settings...)
}

func Cluster(prefix string) string {
	return fmt.Sprintf("%s-cluster", prefix)
}

func TaskFamily(prefix string) string {
	return fmt.Sprintf("%s-search", prefix)
}

func Service(prefix string) string {
	return fmt.Sprintf("%s-search", prefix)
}

// ContainerName is the name of the single essential container.
func ContainerName() string {
	return "search"
}

// Hostname joins a subdomain and domain into a fully qualified name.
func Hostname(subdomain, domain string) string {
	return fmt.Sprintf("%s.%s", subdomain, domain)
}

// revision appends a six-digit hash of settings to base, truncating base so
// the result fits in limit.
func revision(base string, limit int, settings ...any) string {
	if len(settings) == 0 {
		return truncate(base, limit)
	}
	suffix := fmt.Sprintf("-%06x", xxhash.Sum64String(fmt.Sprintf("%v", settings))&0xffffff)
	return truncate(base, limit-len(suffix)) + suffix
}

// truncate shortens name to limit characters without leaving a trailing hyphen.
func truncate(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	return strings.TrimRight(name[:limit], "-")
}
