package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Provider stores objects in an S3 bucket. Credentials come from the
// default AWS chain (env, shared config, instance role).
type S3Provider struct {
	client *s3.Client
	bucket string
	region string
	logger *slog.Logger
}

func NewS3Provider(ctx context.Context, bucket, region string, logger *slog.Logger) (*S3Provider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Provider{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
		logger: logger,
	}, nil
}

func (p *S3Provider) Upload(ctx context.Context, params UploadParams) (*UploadResult, error) {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(params.Key),
		Body:        bytes.NewReader(params.Body),
		ContentType: aws.String(params.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", params.Key, err)
	}

	p.logger.Debug("object stored in s3", "bucket", p.bucket, "key", params.Key, "bytes", len(params.Body))
	return &UploadResult{
		Key: params.Key,
		URL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, params.Key),
	}, nil
}

func (p *S3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
