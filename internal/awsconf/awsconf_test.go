package awsconf

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/schemagate/internal/config"
)

func stubLoader(t *testing.T, fn func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error)) {
	t.Helper()
	orig := DefaultConfigLoader
	DefaultConfigLoader = fn
	t.Cleanup(func() { DefaultConfigLoader = orig })
}

func TestLoad_AppliesOverrides(t *testing.T) {
	var optCount int
	stubLoader(t, func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		optCount = len(optFns)
		return aws.Config{Region: "us-west-2"}, nil
	})

	cfg, err := Load(context.Background(), config.AWSConfig{
		Region:          "eu-central-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, optCount)
	assert.Equal(t, "eu-central-1", cfg.Region)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)
}

func TestLoad_LoaderError(t *testing.T) {
	stubLoader(t, func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no profile")
	})

	_, err := Load(context.Background(), config.AWSConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no profile")
}

func TestAccountID(t *testing.T) {
	assert.Equal(t, "123456789012", AccountID(config.AWSConfig{AccountID: "'123456789012'"}))
	assert.Equal(t, "", AccountID(config.AWSConfig{}))
	assert.Equal(t, localstackAccountID, AccountID(config.AWSConfig{Endpoint: "http://localhost:4566"}))
	assert.Equal(t, localstackAccountID, AccountID(config.AWSConfig{Endpoint: "http://localhost:4566", AccountID: "42"}))
}

func TestStaticCredentials(t *testing.T) {
	creds, err := StaticCredentials("id", "secret").Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}
