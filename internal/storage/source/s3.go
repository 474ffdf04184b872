package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// GetObjectAPI is the subset of the S3 client used by S3Source
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads schemas from s3://<bucket>/schemas/<schema_id>.
type S3Source struct {
	client GetObjectAPI
	bucket string
}

// NewS3Source creates a source over an existing client
func NewS3Source(client GetObjectAPI, bucket string) *S3Source {
	return &S3Source{client: client, bucket: bucket}
}

// NewS3SourceFromConfig builds the S3 client from an AWS config. A custom
// BaseEndpoint (LocalStack, MinIO) switches to path-style addressing.
func NewS3SourceFromConfig(awsCfg aws.Config, bucket string) *S3Source {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if awsCfg.BaseEndpoint != nil && *awsCfg.BaseEndpoint != "" {
			o.UsePathStyle = true
		}
	})
	return NewS3Source(client, bucket)
}

// Name implements Source
func (s *S3Source) Name() string {
	return "s3"
}

// Fetch implements Source
func (s *S3Source) Fetch(ctx context.Context, schemaID string) (data []byte, err error) {
	key := ObjectKey(schemaID)
	ctx, span := startFetchSpan(ctx, s.Name(), schemaID)
	defer func() { endFetchSpan(span, err) }()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
