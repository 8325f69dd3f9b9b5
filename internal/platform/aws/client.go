package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/efs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Clients bundles the service clients the handlers use.
type Clients struct {
	EC2     EC2API
	EFS     EFSAPI
	ELB     ELBAPI
	ECS     ECSAPI
	Secrets SecretsAPI
}

// Options configures NewClients.
type Options struct {
	Region string
	// Profile selects a shared config profile.
	Profile string
	// AccessKey and SecretKey switch from the default credential chain to
	// static credentials.
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// NewClients loads the default AWS configuration and creates every client.
func NewClients(ctx context.Context, opts Options) (*Clients, error) {
	cfg, err := LoadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Clients{
		EC2:     ec2.NewFromConfig(cfg),
		EFS:     efs.NewFromConfig(cfg),
		ELB:     elbv2.NewFromConfig(cfg),
		ECS:     ecs.NewFromConfig(cfg),
		Secrets: secretsmanager.NewFromConfig(cfg),
	}, nil
}

// LoadConfig resolves region and credentials.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, opts.SessionToken)))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
