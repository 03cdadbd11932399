// Package problemclient resolves the canonical test cases of a problem from the
// remote catalog, with a local cache in front of every network read.
package problemclient

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/common/cache"
	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const manifestFile = "manifest.json"

// manifest is the problem document; each test case names an input and an output file.
type manifest struct {
	TestCases []struct {
		Input  string `json:"input"`
		Output string `json:"output"`
	} `json:"testCases"`
}

// Client fetches test cases for a problem.
type Client struct {
	fetcher Fetcher
	cache   cache.Cache
	timeout time.Duration

	group singleflight.Group
	memo  *xsync.MapOf[string, []model.TestCase]
}

// NewClient creates a new client. Cache entries never expire.
func NewClient(fetcher Fetcher, c cache.Cache, timeout time.Duration) (*Client, error) {
	if fetcher == nil {
		return nil, appErr.ValidationError("fetcher", "required")
	}
	if c == nil {
		return nil, appErr.ValidationError("cache", "required")
	}
	return &Client{
		fetcher: fetcher,
		cache:   c,
		timeout: timeout,
		memo:    xsync.NewMapOf[string, []model.TestCase](),
	}, nil
}

// FetchTestCases returns the ordered test cases of slug. A problem without test
// cases yields an empty list and no error. Files that cannot be loaded are skipped.
func (c *Client) FetchTestCases(ctx context.Context, slug string) ([]model.TestCase, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, appErr.New(appErr.ProblemSlugRequired)
	}
	if strings.Contains(slug, "..") {
		return nil, appErr.ValidationError("problemSlug", "must not contain ..")
	}
	if cached, ok := c.memo.Load(slug); ok {
		return cloneCases(cached), nil
	}

	v, err, _ := c.group.Do(slug, func() (interface{}, error) {
		return c.load(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	res := v.(resolved)
	if res.complete && len(res.cases) > 0 {
		c.memo.Store(slug, res.cases)
	}
	return cloneCases(res.cases), nil
}

// resolved is one load of a problem. complete is false when a file was skipped,
// so the list is not memoised and the next call retries the missing files.
type resolved struct {
	cases    []model.TestCase
	complete bool
}

func (c *Client) load(ctx context.Context, slug string) (resolved, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := cache.GetOrLoad(ctx, c.cache, cacheKey(slug, manifestFile), 0, func(ctx context.Context) (string, error) {
		data, err := c.fetcher.Fetch(ctx, manifestPath(slug))
		return string(data), err
	})
	if err != nil {
		return resolved{}, appErr.Wrapf(err, appErr.TestCaseFetchFailed, "fetch problem %s failed", slug)
	}
	var m manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return resolved{}, appErr.Wrapf(err, appErr.TestCaseFetchFailed, "decode problem %s failed", slug)
	}

	res := resolved{cases: make([]model.TestCase, 0, len(m.TestCases)), complete: true}
	for _, tc := range m.TestCases {
		input, err := c.loadFile(ctx, slug, tc.Input)
		if err != nil {
			logger.Warn(ctx, "skip test case, input unavailable", zap.String("problem_slug", slug), zap.String("file", tc.Input), zap.Error(err))
			res.complete = false
			continue
		}
		output, err := c.loadFile(ctx, slug, tc.Output)
		if err != nil {
			logger.Warn(ctx, "skip test case, output unavailable", zap.String("problem_slug", slug), zap.String("file", tc.Output), zap.Error(err))
			res.complete = false
			continue
		}
		res.cases = append(res.cases, model.TestCase{Input: input, ExpectedOutput: output})
	}
	logger.Info(ctx, "loaded test cases", zap.String("problem_slug", slug), zap.Int("count", len(res.cases)), zap.Bool("complete", res.complete))
	return res, nil
}

// loadFile returns the trimmed file content, from cache when present.
func (c *Client) loadFile(ctx context.Context, slug, file string) (string, error) {
	if file == "" || strings.ContainsAny(file, `/\`) || strings.Contains(file, "..") {
		return "", appErr.ValidationError("file", "invalid test case file name")
	}
	return cache.GetOrLoad(ctx, c.cache, cacheKey(slug, file), 0, func(ctx context.Context) (string, error) {
		data, err := c.fetcher.Fetch(ctx, testCasePath(slug, file))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	})
}

// cacheKey flattens slug and file into one file-system safe key.
func cacheKey(slug, file string) string {
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(slug)
	return safe + "__" + file
}

func cloneCases(in []model.TestCase) []model.TestCase {
	out := make([]model.TestCase, len(in))
	copy(out, in)
	return out
}
