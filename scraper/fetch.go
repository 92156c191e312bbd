package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/aluiziolira/go-book-harvester/config"
)

// Status tags the result of a fetch.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusTransportError
	StatusHTTPError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusTransportError:
		return "transport_error"
	case StatusHTTPError:
		return "http_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the tagged result of a fetch. Only StatusFound carries a body.
type Outcome struct {
	Status     Status
	URL        string
	StatusCode int
	Location   string
	Header     http.Header
	Body       []byte
	Cause      error
}

// Found reports whether the fetch produced content.
func (o Outcome) Found() bool {
	return o.Status == StatusFound
}

// Err converts a non-found outcome into the matching typed error.
func (o Outcome) Err() error {
	switch o.Status {
	case StatusFound:
		return nil
	case StatusNotFound:
		return ErrNotFound{URL: o.URL, StatusCode: o.StatusCode, Location: o.Location}
	case StatusTransportError:
		return ErrTransport{URL: o.URL, Err: o.Cause}
	default:
		return ErrHTTPStatus{URL: o.URL, StatusCode: o.StatusCode}
	}
}

// Fetcher issues GET requests without following redirects, so a redirect can
// be reported as a missing item instead of silently landing on another page.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxRetries   int
	retryBackoff time.Duration
	backoffMax   time.Duration
	metrics      *Metrics
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) *Fetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:    cfg.UserAgent,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		backoffMax:   cfg.RetryBackoffMax,
		metrics:      metrics,
	}
}

// WithTransport replaces the underlying round tripper.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.client.Transport = rt
}

// Fetch retrieves url. Transport failures are retried up to MaxRetries times;
// status outcomes, including redirects, are final.
func (f *Fetcher) Fetch(ctx context.Context, url string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	var out Outcome
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(f.maxRetries + 1)),
		retry.Delay(f.retryBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			f.metrics.IncRetries()
			slog.Debug("retrying request",
				slog.String("url", url),
				slog.Uint64("attempt", uint64(n+1)),
				slog.Any("error", err),
			)
		}),
	}
	if f.backoffMax > 0 {
		opts = append(opts, retry.MaxDelay(f.backoffMax))
	}

	err := retry.Do(func() error {
		o, err := f.do(ctx, url)
		if err != nil {
			return err
		}
		out = o
		return nil
	}, opts...)
	if err != nil {
		out = Outcome{Status: StatusTransportError, URL: url, Cause: err}
	}

	f.metrics.IncRequest(out.Status.String())
	return out
}

func (f *Fetcher) do(ctx context.Context, url string) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{}, retry.Unrecoverable(err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	f.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		return Outcome{}, fmt.Errorf("read body: %w", err)
	}

	return classifyResponse(url, resp, body), nil
}

func classifyResponse(url string, resp *http.Response, body []byte) Outcome {
	out := Outcome{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}
	location := resp.Header.Get("Location")

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400 && location != "":
		out.Status = StatusNotFound
		out.Location = location
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		out.Status = StatusFound
		out.Body = body
	default:
		out.Status = StatusHTTPError
	}
	return out
}
