package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	appconfig "greenery/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithy "github.com/aws/smithy-go"
)

const (
	defaultS3GetTimeout         = 30 * time.Second
	defaultS3PutTimeout         = 60 * time.Second
	defaultS3PingTimeout        = 5 * time.Second
	defaultS3CredentialsTimeout = 10 * time.Second
)

type objectUploader interface {
	UploadObject(ctx context.Context, input *transfermanager.UploadObjectInput, optFns ...func(*transfermanager.Options)) (*transfermanager.UploadObjectOutput, error)
}

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type S3Client struct {
	api         s3API
	uploader    objectUploader
	bucket      string
	prefix      string
	getTimeout  time.Duration
	putTimeout  time.Duration
	pingTimeout time.Duration
}

// NewS3Client resolves credentials and builds the shared S3 handle.
// Credentials are retrieved eagerly; an unresolvable chain is a construction error.
func NewS3Client(ctx context.Context, cfg appconfig.S3Config) (*S3Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		return nil, errors.New("s3 region is required")
	}
	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	prefix, err := normalizePrefix(cfg.Prefix)
	if err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	provider, err := credentialsProvider(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	if provider != nil {
		opts = append(opts, awsconfig.WithCredentialsProvider(provider))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	credsCtx, cancel := context.WithTimeout(ctx, defaultS3CredentialsTimeout)
	defer cancel()
	if awsCfg.Credentials == nil {
		return nil, errors.New("resolve aws credentials: no credentials provider")
	}
	if _, err := awsCfg.Credentials.Retrieve(credsCtx); err != nil {
		return nil, fmt.Errorf("resolve aws credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		api:         client,
		uploader:    transfermanager.New(client),
		bucket:      bucket,
		prefix:      prefix,
		getTimeout:  defaultS3GetTimeout,
		putTimeout:  defaultS3PutTimeout,
		pingTimeout: defaultS3PingTimeout,
	}, nil
}

func credentialsProvider(cfg appconfig.CredentialsConfig) (aws.CredentialsProvider, error) {
	switch cfg.Source {
	case "", appconfig.CredentialsDefault:
		return nil, nil
	case appconfig.CredentialsStatic:
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, errors.New("static s3 credentials require access_key_id and secret_access_key")
		}
		return credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken), nil
	case appconfig.CredentialsEnv:
		id := os.Getenv("AWS_ACCESS_KEY_ID")
		secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return nil, errors.New("env s3 credentials require AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
		}
		return credentials.NewStaticCredentialsProvider(id, secret, os.Getenv("AWS_SESSION_TOKEN")), nil
	default:
		return nil, fmt.Errorf("unknown s3 credentials source %q", cfg.Source)
	}
}

func normalizeEndpoint(raw string) (string, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("s3 endpoint %q must be a valid http(s) URL", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("s3 endpoint %q must use http or https", endpoint)
	}
	return strings.TrimRight(endpoint, "/"), nil
}

func (c *S3Client) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if c.uploader == nil {
		return errors.New("s3 uploader is not configured")
	}
	fullKey, err := c.prefixedKey(key)
	if err != nil {
		return err
	}

	ctx, cancel := withOptionalTimeout(ctx, c.putTimeout)
	defer cancel()

	input := &transfermanager.UploadObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := c.uploader.UploadObject(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (c *S3Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	if c.api == nil {
		return nil, errors.New("s3 api client is not configured")
	}
	fullKey, err := c.prefixedKey(key)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withOptionalTimeout(ctx, c.getTimeout)
	defer cancel()

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get object %s: %w", fullKey, ErrNotFound)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

func (c *S3Client) Ping(ctx context.Context) error {
	if c.api == nil {
		return errors.New("s3 api client is not configured")
	}
	ctx, cancel := withOptionalTimeout(ctx, c.pingTimeout)
	defer cancel()

	if _, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("head bucket: %w", err)
	}
	return nil
}

func (c *S3Client) Close() error { return nil }

func (c *S3Client) prefixedKey(key string) (string, error) {
	return prefixedKey(c.prefix, key)
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// StatusCode extracts the HTTP status of a failed storage call, if the error
// carries one.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode(), true
	}
	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatusCode(), true
	}
	return 0, false
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		case "NoSuchBucket":
			return false
		}
	}
	if status, ok := StatusCode(err); ok {
		return status == http.StatusNotFound
	}
	return false
}
