// Package anthropic fetches organization spend from the Anthropic Admin
// cost_report API. The endpoint buckets cost by time and paginates with a
// cursor: each call returns a page of buckets plus has_more, and the next
// call's starting_at is the last bucket's ending_at.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1/organizations"
	apiVersion     = "2023-06-01"
	maxBodySize    = 1 << 20 // 1 MB
)

var (
	// ErrUnavailable indicates cost data could not be obtained for the
	// requested range. Callers degrade; this is a terminal state, not a
	// request failure to propagate.
	ErrUnavailable = errors.New("anthropic: cost data unavailable")
	// ErrRateLimited indicates retries were exhausted on 429 responses.
	// It matches errors.Is(err, ErrUnavailable) so callers that only care
	// about availability need not distinguish the two.
	ErrRateLimited = fmt.Errorf("anthropic: rate limited: %w", ErrUnavailable)
)

// Options configures the client. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	Retries     int           // attempts per page, default 4
	BackoffBase time.Duration // default 2s, doubled per attempt
	BucketWidth string        // "1d" or "1mo", default "1d"
	HTTPClient  *http.Client
}

// Client is a thin wrapper over http.Client with admin-key auth.
// Use NewClient to construct it.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	retries     int
	backoffBase time.Duration
	bucketWidth string
}

// NewClient creates a cost_report client for the given admin API key.
func NewClient(apiKey string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Retries <= 0 {
		opts.Retries = 4
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 2 * time.Second
	}
	if opts.BucketWidth == "" {
		opts.BucketWidth = "1d"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		retries:     opts.Retries,
		backoffBase: opts.BackoffBase,
		bucketWidth: opts.BucketWidth,
	}
}

// FetchCosts returns the total USD spend between start and end (inclusive,
// whole days). It drains every page before returning: a single failed page
// fails the whole range, so a deflated partial sum is never reported as if
// complete. Returns ErrRateLimited when 429s exhausted the retry budget and
// ErrUnavailable for any other upstream failure.
func (c *Client) FetchCosts(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64

	cursor := start.UTC().Format("2006-01-02") + "T00:00:00Z"
	finalEnd := end.UTC().Format("2006-01-02") + "T23:59:59Z"

	// RFC 3339 UTC timestamps compare lexicographically.
	for cursor < finalEnd {
		page, err := c.fetchPage(ctx, cursor, finalEnd)
		if err != nil {
			return 0, err
		}

		for _, bucket := range page.Data {
			for _, r := range bucket.Results {
				v, ok := r.amountUSD()
				if !ok {
					slog.Warn("anthropic.amount.unparseable", "bucket", bucket.StartingAt)
					continue
				}
				total += v
			}
		}

		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		cursor = page.Data[len(page.Data)-1].EndingAt
	}

	return total, nil
}

// fetchPage requests one page, retrying on 429 with exponential backoff.
// An explicit Retry-After hint from the API takes precedence over the
// computed delay.
func (c *Client) fetchPage(ctx context.Context, startingAt, endingAt string) (*costPage, error) {
	q := url.Values{
		"starting_at":  {startingAt},
		"ending_at":    {endingAt},
		"bucket_width": {c.bucketWidth},
	}
	rawURL := c.baseURL + "/cost_report?" + q.Encode()

	for attempt := 0; attempt < c.retries; attempt++ {
		status, retryHint, body, err := c.get(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
			slog.Warn("anthropic.request.failed", "err", err)
			return nil, ErrUnavailable
		}

		if status == http.StatusOK {
			var page costPage
			if err := json.Unmarshal(body, &page); err != nil {
				slog.Warn("anthropic.body.malformed", "err", err)
				return nil, ErrUnavailable
			}
			return &page, nil
		}

		if status != http.StatusTooManyRequests {
			slog.Error("anthropic.api.error", "status", status, "body", truncate(string(body), 200))
			return nil, ErrUnavailable
		}

		if attempt == c.retries-1 {
			break
		}
		wait := c.backoffBase << (attempt + 1)
		if retryHint > 0 {
			wait = retryHint
		}
		slog.Info("anthropic.rate.limited", "wait", wait, "attempt", attempt+1, "retries", c.retries)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}

	return nil, ErrRateLimited
}

// get performs one authenticated GET. retryHint carries the parsed
// Retry-After header, zero when absent.
func (c *Client) get(ctx context.Context, rawURL string) (status int, retryHint time.Duration, body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("reading response: %w", err)
	}

	if s := resp.Header.Get("Retry-After"); s != "" {
		if sec, perr := strconv.Atoi(s); perr == nil && sec > 0 {
			retryHint = time.Duration(sec) * time.Second
		}
	}
	return resp.StatusCode, retryHint, body, nil
}

// Probe performs one small cost_report request and reports the raw outcome
// together with an admin-key fingerprint. Served by the debug endpoint.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	res := ProbeResult{
		KeyPresent: c.apiKey != "",
		KeyLength:  len(c.apiKey),
	}
	if n := len(c.apiKey); n > 0 {
		if n > 20 {
			n = 20
		}
		res.KeyPrefix = c.apiKey[:n] + "..."
	}

	q := url.Values{
		"starting_at":  {"2026-02-19T00:00:00Z"},
		"ending_at":    {"2026-02-20T23:59:59Z"},
		"bucket_width": {c.bucketWidth},
	}
	status, _, body, err := c.get(ctx, c.baseURL+"/cost_report?"+q.Encode())
	if err != nil {
		res.APIError = err.Error()
		return res
	}
	res.APIStatus = status
	res.APIBody = truncate(string(body), 500)
	return res
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
