package wizard

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
)

var (
	nameRegex   = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,18}[a-z0-9])?$`)
	labelRegex  = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)
	domainRegex = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)
	roleRegex   = regexp.MustCompile(`^arn:aws[a-z-]*:iam::\d{12}:role/.+$`)
)

// runIdentityGroup prompts for project, stack and region.
func runIdentityGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project").
				Description("Prefix for every resource name").
				Placeholder("search").
				Value(&result.Project).
				Validate(validateName),
			huh.NewInput().
				Title("Stack").
				Description("Deployment name, e.g. dev or prod").
				Placeholder("prod").
				Value(&result.Stack).
				Validate(validateName),
			huh.NewSelect[string]().
				Title("Region").
				Options(RegionsToOptions()...).
				Value(&result.Region),
		).Title("Identity"),
	).RunWithContext(ctx)
}

// runDNSGroup prompts for the public name.
func runDNSGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Domain").
				Placeholder("example.com").
				Value(&result.Domain).
				Validate(validateDomain),
			huh.NewInput().
				Title("Subdomain").
				Placeholder("search").
				Value(&result.Subdomain).
				Validate(validateLabel),
			huh.NewInput().
				Title("Cloudflare Zone ID").
				Value(&result.ZoneID).
				Validate(validateZoneID),
		).Title("Public Access"),
	).RunWithContext(ctx)
}

// runWorkloadGroup prompts for the container and its roles.
func runWorkloadGroup(ctx context.Context, result *Result) error {
	result.Size = Sizes[0].Label
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Container Image").
				Placeholder("typesense/typesense:27.1").
				Value(&result.Image).
				Validate(validateImage),
			huh.NewSelect[string]().
				Title("Size").
				Options(SizesToOptions()...).
				Value(&result.Size),
			huh.NewInput().
				Title("Task Role ARN").
				Description("Role the task uses to mount the volume").
				Value(&result.TaskRoleArn).
				Validate(validateRoleArn),
			huh.NewInput().
				Title("Execution Role ARN (Optional)").
				Description("Needed when the admin key lives in Secrets Manager").
				Value(&result.ExecutionRoleArn).
				Validate(validateOptionalRoleArn),
		).Title("Workload"),
	).RunWithContext(ctx)
}

func validateName(s string) error {
	if s == "" {
		return errNameRequired
	}
	if !nameRegex.MatchString(s) {
		return errNameInvalid
	}
	return nil
}

func validateDomain(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errDomainRequired
	}
	if !domainRegex.MatchString(s) {
		return errDomainInvalid
	}
	return nil
}

func validateLabel(s string) error {
	if !labelRegex.MatchString(s) {
		return errLabelInvalid
	}
	return nil
}

func validateZoneID(s string) error {
	if strings.TrimSpace(s) == "" {
		return errZoneRequired
	}
	return nil
}

func validateImage(s string) error {
	if strings.TrimSpace(s) == "" {
		return errImageRequired
	}
	return nil
}

func validateRoleArn(s string) error {
	if !roleRegex.MatchString(s) {
		return errArnInvalid
	}
	return nil
}

func validateOptionalRoleArn(s string) error {
	if s == "" {
		return nil
	}
	return validateRoleArn(s)
}
