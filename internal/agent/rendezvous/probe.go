package rendezvous

import (
	"context"
	"io"
	"net/http"
	"time"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// Prober wakes a relay host that may be suspended.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber issues a plain GET against the relay base URL.
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber creates a prober bounded by timeout.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProber{url: url, client: &http.Client{Timeout: timeout}}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return appErr.Wrapf(err, appErr.WakeProbeFailed, "build probe request failed")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return appErr.Wrapf(err, appErr.WakeProbeFailed, "probe %s failed", p.url)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return appErr.Newf(appErr.WakeProbeFailed, "probe %s returned status %d", p.url, resp.StatusCode)
	}
	return nil
}
