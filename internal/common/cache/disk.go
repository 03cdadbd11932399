package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// DiskCache keeps one file per key in a flat directory. Entries never expire;
// the ttl argument is ignored.
type DiskCache struct {
	dir string
}

// NewDiskCache creates dir if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		return nil, appErr.ValidationError("dir", "required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "create cache dir failed")
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (d *DiskCache) Dir() string { return d.dir }

func (d *DiskCache) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", appErr.ValidationError("key", "must be a plain file name")
	}
	return filepath.Join(d.dir, key), nil
}

func (d *DiskCache) Get(ctx context.Context, key string) (string, error) {
	p, err := d.path(key)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", miss(key)
	}
	if err != nil {
		return "", appErr.Wrapf(err, appErr.CacheError, "read cache entry failed")
	}
	return string(data), nil
}

// Set writes through a temp file so readers never observe a partial entry.
func (d *DiskCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheSetFailed, "create temp entry failed")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return appErr.Wrapf(err, appErr.CacheSetFailed, "write cache entry failed")
	}
	if err := tmp.Close(); err != nil {
		return appErr.Wrapf(err, appErr.CacheSetFailed, "close cache entry failed")
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return appErr.Wrapf(err, appErr.CacheSetFailed, "commit cache entry failed")
	}
	return nil
}

func (d *DiskCache) Ping(ctx context.Context) error {
	_, err := os.Stat(d.dir)
	return err
}

func (d *DiskCache) Close() error { return nil }
