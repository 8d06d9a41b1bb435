package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/osm-audit/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RateLimiters map[string]*rate.Limiter
	// Retry overrides backoff timing; MaxRetries still sets the attempt count.
	Retry *resilience.RetryConfig
}

// HTTPFetcher implements Fetcher using net/http with retry and per-host
// rate limiting.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns limiters for the public OSM mirrors, which ask
// clients to keep request rates low.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"download.geofabrik.de":     rate.NewLimiter(1, 2),
		"planet.openstreetmap.org":  rate.NewLimiter(1, 1),
		"overpass-api.de":           rate.NewLimiter(rate.Every(2*time.Second), 1),
		"api.openstreetmap.org":     rate.NewLimiter(1, 1),
		"extract.bbbike.org":        rate.NewLimiter(1, 1),
		"download.openstreetmap.fr": rate.NewLimiter(1, 2),
	}
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "osm-audit/1.0"
	}
	limiters := DefaultRateLimiters()
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: limiters,
	}
}

// limiterFor returns the host's limiter, creating a default one on first use.
func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(5, 5)
		f.limiters[host] = lim
	}
	return lim
}

func (f *HTTPFetcher) retryConfig(rawURL string) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	if f.opts.Retry != nil {
		cfg = *f.opts.Retry
	}
	cfg = cfg.WithAttempts(f.opts.MaxRetries)
	cfg.OnRetry = resilience.RetryLogger("fetcher", rawURL)
	return cfg
}

// do sends req with retry. 429, 5xx and network failures are retried;
// any other non-2xx/304 status is returned as a permanent error.
func (f *HTTPFetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := f.limiterFor(req.URL.String())

	return resilience.DoVal(ctx, f.retryConfig(req.URL.String()), func(ctx context.Context) (*http.Response, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "http request")
			}
			return nil, resilience.NewTransientError(eris.Wrap(err, "http request"), 0)
		}

		switch {
		case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNotModified:
			return resp, nil
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			resp.Body.Close() //nolint:errcheck
			return nil, resilience.NewTransientError(
				eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String()), resp.StatusCode)
		default:
			resp.Body.Close() //nolint:errcheck
			return nil, eris.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.String())
		}
	})
}

func (f *HTTPFetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	return req, nil
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck
		return nil, eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL and writes it to the given path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck
	return writeFile(path, body)
}

// DownloadIfChanged fetches the URL only if the ETag has changed.
// Returns (body, newETag, changed, error). If not changed, body is nil.
func (f *HTTPFetcher) DownloadIfChanged(ctx context.Context, rawURL string, etag string) (io.ReadCloser, string, bool, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, "", false, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, "", false, eris.Wrap(err, "download if changed")
	}
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close() //nolint:errcheck
		return nil, etag, false, nil
	}
	return resp.Body, resp.Header.Get("ETag"), true, nil
}

// MirrorResult reports the outcome of Mirror.
type MirrorResult struct {
	Bytes   int64
	ETag    string
	Changed bool
}

// Mirror keeps path in sync with rawURL. The last seen ETag is kept next to
// path in a ".etag" file; an unchanged remote leaves path untouched.
func (f *HTTPFetcher) Mirror(ctx context.Context, rawURL, path string) (MirrorResult, error) {
	etagPath := path + ".etag"
	var etag string
	if _, err := os.Stat(path); err == nil {
		if b, err := os.ReadFile(etagPath); err == nil {
			etag = strings.TrimSpace(string(b))
		}
	}

	body, newETag, changed, err := f.DownloadIfChanged(ctx, rawURL, etag)
	if err != nil {
		return MirrorResult{}, err
	}
	if !changed {
		zap.L().Info("extract unchanged", zap.String("component", "fetcher"), zap.String("url", rawURL), zap.String("etag", etag))
		return MirrorResult{ETag: etag}, nil
	}
	defer body.Close() //nolint:errcheck

	n, err := writeFile(path, body)
	if err != nil {
		return MirrorResult{Bytes: n}, err
	}
	if newETag != "" {
		if err := os.WriteFile(etagPath, []byte(newETag+"\n"), 0o644); err != nil {
			return MirrorResult{Bytes: n}, eris.Wrap(err, "write etag")
		}
	} else {
		os.Remove(etagPath) //nolint:errcheck
	}
	return MirrorResult{Bytes: n, ETag: newETag, Changed: true}, nil
}
