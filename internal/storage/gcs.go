package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	appconfig "greenery/internal/config"
	"greenery/internal/state"

	gcstorage "cloud.google.com/go/storage"
	"github.com/googleapis/google-cloud-go-testing/storage/stiface"
	"google.golang.org/api/option"
)

type GCSClient struct {
	client stiface.Client
	bucket stiface.BucketHandle
	prefix string
}

func NewGCSClient(ctx context.Context, cfg appconfig.GCSConfig) (*GCSClient, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	prefix, err := normalizePrefix(cfg.Prefix)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		path, err := state.ExpandPath(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("gcs credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentialsFile(path))
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return newGCSClient(stiface.AdaptClient(client), bucket, prefix), nil
}

func newGCSClient(client stiface.Client, bucket, prefix string) *GCSClient {
	return &GCSClient{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
	}
}

func (c *GCSClient) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	obj, err := c.object(key)
	if err != nil {
		return err
	}

	w := obj.NewWriter(ctx)
	if contentType != "" {
		w.ObjectAttrs().ContentType = contentType
	}
	w.ObjectAttrs().CacheControl = "no-cache,max-age=0"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("put object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (c *GCSClient) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.object(key)
	if err != nil {
		return nil, err
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil, fmt.Errorf("get object %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

func (c *GCSClient) Ping(ctx context.Context) error {
	if c.bucket == nil {
		return errors.New("gcs bucket is not configured")
	}
	if _, err := c.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("bucket attrs: %w", err)
	}
	return nil
}

func (c *GCSClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *GCSClient) object(key string) (stiface.ObjectHandle, error) {
	if c.bucket == nil {
		return nil, errors.New("gcs bucket is not configured")
	}
	fullKey, err := prefixedKey(c.prefix, key)
	if err != nil {
		return nil, err
	}
	return c.bucket.Object(fullKey), nil
}
