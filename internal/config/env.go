package config

import (
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "GREENERY"

// overrideKeys lists the settings that can be replaced from the environment
// or command-line flags, e.g. GREENERY_S3_BUCKET for "s3.bucket".
var overrideKeys = []string{
	"listen_addr",
	"storage.backend",
	"storage.local_dir",
	"s3.endpoint",
	"s3.region",
	"s3.bucket",
	"s3.prefix",
	"s3.credentials.source",
	"gcs.bucket",
	"log.level",
	"log.format",
}

func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range overrideKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// ApplyOverrides copies non-empty values from v over the loaded file values,
// then normalizes and re-validates the result.
func (c *Config) ApplyOverrides(v *viper.Viper) error {
	if v == nil {
		return nil
	}
	targets := map[string]*string{
		"listen_addr":           &c.ListenAddr,
		"storage.backend":       &c.Storage.Backend,
		"storage.local_dir":     &c.Storage.LocalDir,
		"s3.endpoint":           &c.S3.Endpoint,
		"s3.region":             &c.S3.Region,
		"s3.bucket":             &c.S3.Bucket,
		"s3.prefix":             &c.S3.Prefix,
		"s3.credentials.source": &c.S3.Credentials.Source,
		"gcs.bucket":            &c.GCS.Bucket,
		"log.level":             &c.Log.Level,
		"log.format":            &c.Log.Format,
	}
	changed := false
	for _, key := range overrideKeys {
		value := strings.TrimSpace(v.GetString(key))
		if value == "" {
			continue
		}
		*targets[key] = value
		changed = true
	}
	if !changed {
		return nil
	}

	c.ApplyDefaults()
	c.Normalize()
	return c.Validate()
}
