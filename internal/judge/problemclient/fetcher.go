package problemclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/common/storage"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

const maxObjectBytes = 64 << 20

// Fetcher reads a catalog file by its slash-separated relative path.
type Fetcher interface {
	Fetch(ctx context.Context, relPath string) ([]byte, error)
}

// HTTPFetcher reads the catalog from a static web host.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher rooted at baseURL.
func NewHTTPFetcher(baseURL string, timeout time.Duration) (*HTTPFetcher, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, appErr.ValidationError("baseURL", "must be an absolute URL")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{baseURL: u.String(), client: &http.Client{Timeout: timeout}}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, relPath string) ([]byte, error) {
	segments := strings.Split(relPath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	target := f.baseURL + "/" + strings.Join(segments, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.TestCaseFetchFailed, "build request failed")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.TestCaseFetchFailed, "GET %s failed", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, appErr.Newf(appErr.NotFound, "%s not found", relPath)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, appErr.Newf(appErr.TestCaseFetchFailed, "GET %s: unexpected status %d", target, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes))
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.TestCaseFetchFailed, "read %s failed", target)
	}
	return data, nil
}

// ObjectFetcher reads the catalog from an object storage bucket.
type ObjectFetcher struct {
	store  storage.ObjectStorage
	bucket string
	prefix string
}

// NewObjectFetcher creates a fetcher for bucket/prefix.
func NewObjectFetcher(store storage.ObjectStorage, bucket, prefix string) (*ObjectFetcher, error) {
	if store == nil {
		return nil, appErr.ValidationError("storage", "required")
	}
	if bucket == "" {
		return nil, appErr.ValidationError("bucket", "required")
	}
	return &ObjectFetcher{store: store, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (f *ObjectFetcher) Fetch(ctx context.Context, relPath string) ([]byte, error) {
	key := path.Join(f.prefix, relPath)
	rc, err := f.store.GetObject(ctx, f.bucket, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxObjectBytes))
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.TestCaseFetchFailed, "read object %s failed", key)
	}
	return data, nil
}

func manifestPath(slug string) string {
	return fmt.Sprintf("database/problems/%s.json", slug)
}

func testCasePath(slug, file string) string {
	return fmt.Sprintf("database/testcases/%s/%s", slug, file)
}
