package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errNameRequired   = errors.New("name is required")
	errNameInvalid    = errors.New("must be 1-20 lowercase alphanumeric characters or hyphens, starting and ending with alphanumeric")
	errDomainRequired = errors.New("domain is required")
	errDomainInvalid  = errors.New("invalid domain (expected: example.com)")
	errLabelInvalid   = errors.New("invalid DNS label")
	errZoneRequired   = errors.New("zone id is required")
	errImageRequired  = errors.New("container image is required")
	errArnInvalid     = errors.New("invalid IAM role ARN (expected: arn:aws:iam::<account>:role/<name>)")
)
