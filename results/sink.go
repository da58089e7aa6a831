/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package results stores evaluation results in a local directory, a Google
// Cloud Storage bucket or an S3 bucket.
package results

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"google.golang.org/api/option"
)

// Sink stores one named result and returns where it went.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// Option configures the cloud sinks created by Open.
type Option func(*options)

type options struct {
	gcs         []option.ClientOption
	s3Endpoint  string
	s3Region    string
	credentials aws.CredentialsProvider
}

// WithGCSClientOptions passes options to the Cloud Storage client.
func WithGCSClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) { o.gcs = append(o.gcs, opts...) }
}

// WithS3Endpoint targets an S3-compatible endpoint such as MinIO, using path
// style addressing.
func WithS3Endpoint(endpoint string) Option {
	return func(o *options) { o.s3Endpoint = endpoint }
}

// WithS3Region overrides the region from the AWS configuration.
func WithS3Region(region string) Option {
	return func(o *options) { o.s3Region = region }
}

// WithS3Credentials overrides the default AWS credential chain.
func WithS3Credentials(p aws.CredentialsProvider) Option {
	return func(o *options) { o.credentials = p }
}

// Open returns the sink for location: gs://bucket/prefix, s3://bucket/prefix,
// or a local directory (optionally as a file:// URL).
func Open(ctx context.Context, location string, opts ...Option) (Sink, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if location == "" {
		return nil, errors.New("results location is empty")
	}
	if !strings.Contains(location, "://") {
		return NewDir(location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parsing results location: %w", err)
	}
	switch u.Scheme {
	case "file":
		return NewDir(u.Path)
	case "gs":
		if u.Host == "" {
			return nil, fmt.Errorf("results location %q has no bucket", location)
		}
		return NewGCS(ctx, u.Host, strings.Trim(u.Path, "/"), o.gcs...)
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("results location %q has no bucket", location)
		}
		return NewS3(ctx, u.Host, strings.Trim(u.Path, "/"), opts...)
	default:
		return nil, fmt.Errorf("unsupported results location scheme %q", u.Scheme)
	}
}

// checkName rejects names that would escape the sink's prefix.
func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid result name %q", name)
	}
	return nil
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
