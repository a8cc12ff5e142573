package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

const (
	DefaultListenAddr  = "127.0.0.1:5000"
	DefaultBucket      = "greenery-datastore"
	DefaultRegion      = "us-west-2"
	DefaultMaxBodySize = "1M"
)

const (
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendLocal = "local"
)

const (
	CredentialsDefault = "default"
	CredentialsStatic  = "static"
	CredentialsEnv     = "env"
)

type Config struct {
	ListenAddr string        `toml:"listen_addr"`
	Storage    StorageConfig `toml:"storage"`
	S3         S3Config      `toml:"s3"`
	GCS        GCSConfig     `toml:"gcs"`
	HTTP       HTTPConfig    `toml:"http"`
	Log        LogConfig     `toml:"log"`
}

type StorageConfig struct {
	Backend  string `toml:"backend"`
	LocalDir string `toml:"local_dir"`
}

type S3Config struct {
	Endpoint    string            `toml:"endpoint"`
	Region      string            `toml:"region"`
	Bucket      string            `toml:"bucket"`
	Prefix      string            `toml:"prefix"`
	Credentials CredentialsConfig `toml:"credentials"`
}

type CredentialsConfig struct {
	Source          string `toml:"source"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	SessionToken    string `toml:"session_token"`
}

type GCSConfig struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	CredentialsFile string `toml:"credentials_file"`
}

type HTTPConfig struct {
	AllowOrigin string `toml:"allow_origin"`
	MaxBodySize string `toml:"max_body_size"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenAddr: DefaultListenAddr,
		Storage: StorageConfig{
			Backend: BackendS3,
		},
		S3: S3Config{
			Region: DefaultRegion,
			Bucket: DefaultBucket,
			Credentials: CredentialsConfig{
				Source: CredentialsDefault,
			},
		},
		HTTP: HTTPConfig{
			AllowOrigin: "*",
			MaxBodySize: DefaultMaxBodySize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendS3
	}
	if c.S3.Region == "" {
		c.S3.Region = DefaultRegion
	}
	if c.S3.Bucket == "" {
		c.S3.Bucket = DefaultBucket
	}
	if c.S3.Credentials.Source == "" {
		c.S3.Credentials.Source = CredentialsDefault
	}
	if c.HTTP.AllowOrigin == "" {
		c.HTTP.AllowOrigin = "*"
	}
	if c.HTTP.MaxBodySize == "" {
		c.HTTP.MaxBodySize = DefaultMaxBodySize
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Normalize() {
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Storage.LocalDir = strings.TrimSpace(c.Storage.LocalDir)
	c.S3.Endpoint = strings.TrimSpace(c.S3.Endpoint)
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.Prefix = strings.TrimSpace(c.S3.Prefix)
	c.S3.Credentials.Source = strings.ToLower(strings.TrimSpace(c.S3.Credentials.Source))
	c.GCS.Bucket = strings.TrimSpace(c.GCS.Bucket)
	c.GCS.Prefix = strings.TrimSpace(c.GCS.Prefix)
	c.GCS.CredentialsFile = strings.TrimSpace(c.GCS.CredentialsFile)
	c.HTTP.AllowOrigin = strings.TrimSpace(c.HTTP.AllowOrigin)
	c.HTTP.MaxBodySize = strings.TrimSpace(c.HTTP.MaxBodySize)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))

	if c.S3.Prefix != "" && !strings.HasSuffix(c.S3.Prefix, "/") {
		c.S3.Prefix += "/"
	}
	if c.GCS.Prefix != "" && !strings.HasSuffix(c.GCS.Prefix, "/") {
		c.GCS.Prefix += "/"
	}
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}

	switch c.Storage.Backend {
	case BackendS3:
		if err := c.S3.validate(); err != nil {
			return err
		}
	case BackendGCS:
		if c.GCS.Bucket == "" {
			return errors.New("gcs.bucket is required when storage.backend is gcs")
		}
	case BackendLocal:
	default:
		return errors.New("storage.backend must be s3, gcs, or local")
	}

	if _, err := c.HTTP.MaxBodyBytes(); err != nil {
		return err
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("log.format must be text or json")
	}
	return nil
}

func (s S3Config) validate() error {
	if s.Bucket == "" {
		return errors.New("s3.bucket is required")
	}
	if s.Region == "" {
		return errors.New("s3.region is required")
	}
	switch s.Credentials.Source {
	case CredentialsDefault, CredentialsEnv:
		return nil
	case CredentialsStatic:
		if s.Credentials.AccessKeyID == "" || s.Credentials.SecretAccessKey == "" {
			return errors.New("s3.credentials: static source requires access_key_id and secret_access_key")
		}
		return nil
	default:
		return errors.New("s3.credentials.source must be default, static, or env")
	}
}

// MaxBodyBytes parses max_body_size ("512K", "1M", "2MB").
func (h HTTPConfig) MaxBodyBytes() (int64, error) {
	raw := h.MaxBodySize
	if raw == "" {
		raw = DefaultMaxBodySize
	}
	n, err := bytefmt.ToBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("http.max_body_size %q: %w", raw, err)
	}
	if n == 0 || n > 1<<40 {
		return 0, fmt.Errorf("http.max_body_size %q is out of range", raw)
	}
	return int64(n), nil
}
