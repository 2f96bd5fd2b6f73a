package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Options controls how the shared AWS config is loaded. Endpoint points every
// client at a single edge URL (LocalStack) when set.
type Options struct {
	Region   string
	Endpoint string
}

// LoadAWSConfig loads the default credential chain and applies region and
// endpoint overrides.
func LoadAWSConfig(ctx context.Context, opts Options) (sdkaws.Config, error) {
	var loaders []func(*config.LoadOptions) error
	if opts.Region != "" {
		loaders = append(loaders, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		cfg.BaseEndpoint = &endpoint
	}
	return cfg, nil
}
