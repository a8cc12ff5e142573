package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"greenery/internal/config"
	"greenery/internal/state"
)

// ErrNotFound is returned by every backend when the requested key does not exist.
var ErrNotFound = errors.New("object not found")

type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// NewFromConfig builds the store selected by cfg.Storage.Backend. It is meant
// to be called once at startup; the returned store is safe for concurrent use.
func NewFromConfig(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendLocal:
		dir, err := localDir(cfg.Storage.LocalDir)
		if err != nil {
			return nil, err
		}
		return NewLocalClient(dir), nil
	case config.BackendGCS:
		return NewGCSClient(ctx, cfg.GCS)
	case config.BackendS3, "":
		return NewS3Client(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func localDir(configured string) (string, error) {
	if strings.TrimSpace(configured) == "" {
		return state.ObjectStoreDir()
	}
	return state.ExpandPath(configured)
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("invalid object key: empty")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid object key %q: absolute", key)
	}
	for _, part := range strings.Split(key, "/") {
		switch part {
		case "", ".", "..":
			return fmt.Errorf("invalid object key %q", key)
		}
	}
	return nil
}

func normalizePrefix(prefix string) (string, error) {
	prefix = strings.TrimSpace(strings.ReplaceAll(prefix, "\\", "/"))
	if prefix == "" {
		return "", nil
	}
	if strings.HasPrefix(prefix, "/") {
		return "", fmt.Errorf("invalid prefix %q: must be relative", prefix)
	}

	parts := strings.Split(prefix, "/")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "":
			continue
		case ".", "..":
			return "", fmt.Errorf("invalid prefix %q: must not contain . or .. segments", prefix)
		}
		kept = append(kept, part)
	}
	if len(kept) == 0 {
		return "", nil
	}
	return strings.Join(kept, "/") + "/", nil
}

func prefixedKey(prefix, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return prefix + key, nil
}
