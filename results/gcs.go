/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package results

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS writes results as objects in a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a sink for gs://bucket/prefix using application default
// credentials unless opts say otherwise.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// Write implements Sink. The object is only created if it does not exist.
func (g *GCS) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	key := objectKey(g.prefix, name)
	w := g.client.Bucket(g.bucket).Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/json"
	w.ChunkSize = 0
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("writing gs://%s/%s: %w", g.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("writing gs://%s/%s: %w", g.bucket, key, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, key), nil
}

// Close releases the client.
func (g *GCS) Close() error {
	return g.client.Close()
}
