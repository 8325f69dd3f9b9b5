package wizard

import (
	"context"
	"fmt"

	"github.com/imamik/searchstack/internal/config"
)

// Result holds all the answers from the interactive wizard.
type Result struct {
	Project string
	Stack   string
	Region  string

	Domain    string
	Subdomain string
	ZoneID    string

	Image            string
	Size             string
	TaskRoleArn      string
	ExecutionRoleArn string
}

// Function variables for dependency injection in tests.
var (
	identityGroup = runIdentityGroup
	dnsGroup      = runDNSGroup
	workloadGroup = runWorkloadGroup
)

// RunWizard runs the interactive configuration wizard.
// The context is used for cancellation support (e.g., Ctrl+C).
func RunWizard(ctx context.Context) (*Result, error) {
	result := &Result{}

	if err := identityGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	if err := dnsGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("public access: %w", err)
	}
	if err := workloadGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("workload: %w", err)
	}

	return result, nil
}

// BuildConfig creates a Config from the wizard result with defaults applied.
func BuildConfig(result *Result) *config.Config {
	size := sizeByLabel(result.Size)
	cfg := &config.Config{
		Project:          result.Project,
		Stack:            result.Stack,
		Region:           result.Region,
		Domain:           result.Domain,
		Subdomain:        result.Subdomain,
		CloudflareZoneID: result.ZoneID,
		Workload: config.WorkloadConfig{
			Image:            result.Image,
			CPU:              size.CPU,
			Memory:           size.Memory,
			TaskRoleArn:      result.TaskRoleArn,
			ExecutionRoleArn: result.ExecutionRoleArn,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}
