package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/imamik/searchstack/internal/config"
)

// ErrSecretNotFound is returned when a secret reference does not resolve.
var ErrSecretNotFound = errors.New("secret not found")

// SecretResolver checks Secrets Manager references before a deployment
// binds them into a task definition.
type SecretResolver struct {
	base
	api SecretsAPI
}

// NewSecretResolver returns a resolver backed by api.
func NewSecretResolver(api SecretsAPI, t *config.Timeouts) *SecretResolver {
	return &SecretResolver{base: base{timeouts: t}, api: api}
}

// ResolveARN returns the full ARN of the secret named or identified by id.
// Deleted secrets count as missing.
func (r *SecretResolver) ResolveARN(ctx context.Context, id string) (string, error) {
	var out *secretsmanager.DescribeSecretOutput
	err := r.create(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.api.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: aws.String(id)})
		return err
	})
	if isNotFound(err) {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to describe secret %s: %w", id, err)
	}
	if out.DeletedDate != nil {
		return "", fmt.Errorf("%w: %s is scheduled for deletion", ErrSecretNotFound, id)
	}
	return aws.ToString(out.ARN), nil
}
