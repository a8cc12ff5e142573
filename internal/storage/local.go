package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// LocalClient keeps objects as files under rootDir. Content types are not
// persisted.
type LocalClient struct {
	rootDir string
}

func NewLocalClient(rootDir string) *LocalClient {
	return &LocalClient{rootDir: rootDir}
}

func (c *LocalClient) PutObject(_ context.Context, key string, data []byte, _ string) error {
	fullPath, err := c.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), fullPath)
}

func (c *LocalClient) GetObject(_ context.Context, key string) ([]byte, error) {
	fullPath, err := c.objectPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (c *LocalClient) Ping(_ context.Context) error {
	if err := os.MkdirAll(c.rootDir, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(c.rootDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("object root is not a directory")
	}
	return nil
}

func (c *LocalClient) Close() error { return nil }

func (c *LocalClient) objectPath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", errors.New("invalid key path")
	}
	return filepath.Join(c.rootDir, cleaned), nil
}
