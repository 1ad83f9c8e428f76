// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the parameters for an S3-compatible object store.
type S3Config struct {
	// Endpoint is the host[:port] of the service. Defaults to
	// s3.amazonaws.com.
	Endpoint string

	// Bucket is required.
	Bucket string

	// Prefix is prepended to every key, so several stores can share a
	// bucket.
	Prefix string

	// Region is passed through to request signing.
	Region string

	// Signed selects authenticated requests. Credentials come from
	// AccessKey/SecretKey when set, otherwise from the AWS and MinIO
	// environment variables and the AWS credentials file. Unsigned
	// requests can only read public buckets.
	Signed    bool
	AccessKey string
	SecretKey string

	// Insecure selects plain HTTP.
	Insecure bool
}

// S3Driver stores objects in an S3-compatible bucket. Configured with
// type "S3".
type S3Driver struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Driver builds the client. No request is made until first use.
func NewS3Driver(cfg S3Config, logger *slog.Logger) (*S3Driver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}

	var creds *credentials.Credentials
	switch {
	case !cfg.Signed:
		creds = credentials.NewStatic("", "", "", credentials.SignatureAnonymous)
	case cfg.AccessKey != "":
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	default:
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: s3 client for %s: %w", endpoint, err)
	}

	return &S3Driver{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

func (d *S3Driver) objectName(key string) string {
	if d.prefix == "" {
		return key
	}
	if key == "" {
		return d.prefix
	}
	return d.prefix + "/" + key
}

func (d *S3Driver) keyFromObject(name string) string {
	if d.prefix == "" {
		return name
	}
	return strings.TrimPrefix(name, d.prefix+"/")
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (d *S3Driver) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := d.client.GetObject(ctx, d.bucket, d.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: s3 get %s: %w", key, err)
	}
	defer object.Close()

	// GetObject is lazy; the missing-key error surfaces on read.
	data, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("storage: s3 get %s: %w", key, err)
	}
	return data, nil
}

func (d *S3Driver) Put(ctx context.Context, key string, data []byte) error {
	if !validKey(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	_, err := d.client.PutObject(ctx, d.bucket, d.objectName(key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("storage: s3 put %s: %w", key, err)
	}
	return nil
}

func (d *S3Driver) List(ctx context.Context, prefix string) ([]string, error) {
	listPrefix := d.objectName(prefix)
	if listPrefix != "" {
		listPrefix += "/"
	}

	var keys []string
	for object := range d.client.ListObjects(ctx, d.bucket, minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("storage: s3 list %q: %w", prefix, object.Err)
		}
		keys = append(keys, d.keyFromObject(object.Key))
	}
	// A prefix can also name a single object.
	if prefix != "" {
		if _, err := d.client.StatObject(ctx, d.bucket, d.objectName(prefix), minio.StatObjectOptions{}); err == nil {
			keys = append(keys, prefix)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (d *S3Driver) Delete(ctx context.Context, key string) error {
	keys, err := d.List(ctx, key)
	if err != nil {
		return err
	}
	for _, existing := range keys {
		err := d.client.RemoveObject(ctx, d.bucket, d.objectName(existing), minio.RemoveObjectOptions{})
		if err != nil && !isNoSuchKey(err) {
			return fmt.Errorf("storage: s3 delete %s: %w", existing, err)
		}
	}
	d.logger.Debug("deleted s3 objects", "bucket", d.bucket, "key", key, "count", len(keys))
	return nil
}

func (d *S3Driver) Close() error { return nil }
