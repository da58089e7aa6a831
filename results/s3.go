/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package results

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 writes results as objects in an S3 bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 creates a sink for s3://bucket/prefix from the default AWS
// configuration chain.
func NewS3(ctx context.Context, bucket, prefix string, opts ...Option) (*S3, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	var loadOpts []func(*config.LoadOptions) error
	if o.s3Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.s3Region))
	}
	if o.credentials != nil {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(o.credentials))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.s3Endpoint != "" {
			so.BaseEndpoint = aws.String(o.s3Endpoint)
			so.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: bucket, prefix: prefix}, nil
}

// Write implements Sink.
func (s *S3) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	key := objectKey(s.prefix, name)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return "", fmt.Errorf("writing s3://%s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
