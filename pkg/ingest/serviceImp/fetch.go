package serviceImp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"umbra/pkg/ai"
	"umbra/pkg/ingest/service"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const maxRedirects = 10

// Fetcher downloads publication pages.
type Fetcher struct {
	httpc    *http.Client
	guard    URLGuard
	maxBytes int64
	retry    ai.RetryConfig
	log      *slog.Logger
}

// Page is a fetched document and the URL it was finally served from.
type Page struct {
	URL  *url.URL
	Body string
}

func NewFetcher(guard URLGuard, maxBytes int, log *slog.Logger) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	if log == nil {
		log = slog.Default()
	}
	f := &Fetcher{
		guard:    guard,
		maxBytes: int64(maxBytes),
		retry: ai.RetryConfig{
			MaxAttempts:       3,
			BackoffBase:       2 * time.Second,
			BackoffMultiplier: 1.5,
			MaxBackoff:        10 * time.Second,
		},
		log: log,
	}
	f.httpc = &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ai.NewFatalError(fmt.Errorf("stopped after %d redirects", maxRedirects))
			}
			if _, err := f.guard.Check(req.Context(), req.URL.String()); err != nil {
				return ai.NewFatalError(err)
			}
			return nil
		},
	}
	return f
}

// WithRetry replaces the retry policy.
func (f *Fetcher) WithRetry(cfg ai.RetryConfig) *Fetcher {
	f.retry = cfg
	return f
}

// Fetch returns the page at u, retrying network errors, 429 and 5xx.
func (f *Fetcher) Fetch(ctx context.Context, u string) (Page, error) {
	var page Page
	err := ai.Retry(ctx, f.retry, f.log, func() error {
		p, err := f.get(ctx, u)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		if errors.Is(err, service.ErrURLRejected) {
			return Page{}, err
		}
		return Page{}, fmt.Errorf("%w: %s: %v", service.ErrFetch, u, err)
	}
	return page, nil
}

func (f *Fetcher) get(ctx context.Context, u string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, ai.NewFatalError(err)
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpc.Do(req)
	if err != nil {
		if ai.IsFatal(err) {
			return Page{}, err
		}
		return Page{}, ai.NewTransientError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return Page{}, ai.NewTransientError(err)
		}
		return Page{}, ai.NewFatalError(err)
	}
	if resp.ContentLength > f.maxBytes {
		return Page{}, ai.NewFatalError(fmt.Errorf("page too large (%d bytes)", resp.ContentLength))
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "text/plain") {
		return Page{}, ai.NewFatalError(fmt.Errorf("unsupported content-type: %s", ct))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return Page{}, ai.NewTransientError(err)
	}
	return Page{URL: resp.Request.URL, Body: string(b)}, nil
}
