package fetch

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iAL-2/fed-soma-pipeline/config"
	"github.com/iAL-2/fed-soma-pipeline/logging"
	"github.com/iAL-2/fed-soma-pipeline/resilience"
	"github.com/iAL-2/fed-soma-pipeline/store"
)

// ErrEmptyBody reports a 200 response carrying no bytes. It exhausts the
// same retry budget as an HTTP failure: a success with no data is as useless
// to the pipeline as a 500.
var ErrEmptyBody = errors.New("empty response body")

// ErrNoRows reports a response that parsed as CSV but held no data rows.
var ErrNoRows = errors.New("csv contained no data rows")

// HTTPStatusError reports a non-success status from the remote endpoint.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("request failed with status %s", e.Status)
}

// Client fetches weekly summary snapshots, one single-day window per
// request. The endpoint rejects wider windows, which is why startDt and
// endDt are always the same date.
type Client struct {
	cfg    config.SourceConfig
	http   *http.Client
	retry  *resilience.RetryManager
	logger *logging.ComponentLogger
}

// NewClient creates a snapshot client with the configured retry budget.
func NewClient(cfg config.SourceConfig, logger *logging.ComponentLogger) *Client {
	policy := &resilience.RetryPolicy{
		MaxAttempts:   cfg.Retries,
		BaseDelay:     time.Second,
		MaxDelay:      5 * time.Minute,
		BackoffFactor: cfg.Backoff,
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout()},
		retry:  resilience.NewRetryManager(policy, logger),
		logger: logger,
	}
}

// SetRetrySleep replaces the inter-attempt wait. Tests use it to observe
// backoff without sleeping.
func (c *Client) SetRetrySleep(fn func(ctx context.Context, d time.Duration) error) {
	c.retry.SetSleep(fn)
}

// RetryMetrics returns the retry counters accumulated so far.
func (c *Client) RetryMetrics() resilience.RetryMetrics {
	return c.retry.GetMetrics()
}

// SnapshotURL builds the request target for one as-of date.
func (c *Client) SnapshotURL(asOf time.Time) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.cfg.BaseURL, err)
	}

	day := asOf.Format(store.DateLayout)
	q := url.Values{}
	q.Set("productCode", c.cfg.ProductCode)
	q.Set("query", c.cfg.Query)
	q.Set("startDt", day)
	q.Set("endDt", day)
	q.Set("format", "csv")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// FetchSnapshot retrieves the snapshot published for asOf, retrying
// transient failures within the configured budget. HTTP failures, empty
// bodies, and empty parsed tables all count as transient; the last error is
// returned once the budget is spent.
func (c *Client) FetchSnapshot(ctx context.Context, asOf time.Time) (*store.Table, error) {
	target, err := c.SnapshotURL(asOf)
	if err != nil {
		return nil, err
	}

	day := asOf.Format(store.DateLayout)
	c.logger.Info().
		Str("as_of_date", day).
		Str("url", target).
		Msg("Fetching weekly snapshot")

	return resilience.ExecuteWithResult(ctx, c.retry, "fetch "+day, func() (*store.Table, error) {
		return c.attempt(ctx, target)
	})
}

// attempt performs one bounded-timeout request and classifies its outcome.
func (c *Client) attempt(ctx context.Context, target string) (*store.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, resilience.Retryable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, resilience.Retryable(&HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Retryable(fmt.Errorf("reading response body: %w", err))
	}
	if len(body) == 0 {
		return nil, resilience.Retryable(ErrEmptyBody)
	}

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return nil, resilience.Retryable(fmt.Errorf("malformed csv: %w", err))
	}
	if len(records) < 2 {
		return nil, resilience.Retryable(ErrNoRows)
	}

	return &store.Table{Header: records[0], Rows: records[1:]}, nil
}
