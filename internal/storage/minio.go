// Package storage uploads and deletes gallery images in an S3-compatible
// object store. Deletes are best-effort: a failed cleanup after a committed
// database delete is logged by the caller, never rolled back.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"atelier/api/internal/util"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally visible base URL for objects in Bucket,
	// e.g. "https://cdn.example.com/atelier-images".
	PublicURL string
}

type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Client{
		mc:        mc,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// UploadImage streams one image into the bucket under a random object key
// and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, reader io.Reader, size int64, contentType, filename string) (string, error) {
	key := util.NewID("img")
	if ext := path.Ext(filename); ext != "" {
		key += ext
	}
	_, err := c.mc.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return c.publicURL + "/" + key, nil
}

// DeleteImage removes the object behind url. URLs outside this store's
// public prefix are skipped silently so foreign URLs (embeds, old hosts)
// never trigger delete attempts.
func (c *Client) DeleteImage(ctx context.Context, url string) error {
	key, ok := c.objectKey(url)
	if !ok {
		return nil
	}
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Owns reports whether url points into this store's bucket.
func (c *Client) Owns(url string) bool {
	_, ok := c.objectKey(url)
	return ok
}

func (c *Client) objectKey(url string) (string, bool) {
	if c.publicURL == "" || !strings.HasPrefix(url, c.publicURL+"/") {
		return "", false
	}
	key := strings.TrimPrefix(url, c.publicURL+"/")
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
