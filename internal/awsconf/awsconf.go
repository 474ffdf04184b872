// Package awsconf loads the AWS SDK configuration shared by the S3 schema
// source and the SNS sink.
package awsconf

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/flowmesh/schemagate/internal/config"
)

const (
	localstackAccountID = "000000000000"
	awsAccountIDLength  = 12
)

// DefaultConfigLoader allows overriding the AWS config loader for testing.
var DefaultConfigLoader = awsconfig.LoadDefaultConfig

// Load builds an aws.Config from the service configuration. Region and
// static credentials override the default chain, and a custom endpoint
// (LocalStack) becomes the BaseEndpoint.
func Load(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(StaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey)))
	}

	awsCfg, err := DefaultConfigLoader(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Ensure region is set even if the loader ignores options
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}

	if cfg.Endpoint != "" {
		endpoint, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return aws.Config{}, fmt.Errorf("failed to parse AWS endpoint: %w", err)
		}
		awsCfg.BaseEndpoint = aws.String(endpoint.String())
	}

	return awsCfg, nil
}

// AccountID returns the configured account id. Against a custom endpoint an
// empty or malformed id falls back to the LocalStack default.
func AccountID(cfg config.AWSConfig) string {
	accountID := strings.Trim(cfg.AccountID, "\"' ")
	if cfg.Endpoint == "" {
		return accountID
	}
	if len(accountID) != awsAccountIDLength {
		return localstackAccountID
	}
	return accountID
}

// StaticCredentials returns a provider for a fixed key pair
func StaticCredentials(accessKeyID, secretAccessKey string) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
		}, nil
	})
}
