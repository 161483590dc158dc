// Package client fetches the dashboard dataset from a remote /api/data
// endpoint.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"txdash/internal/core"
	"txdash/internal/sources"
)

// maxBody bounds the payload read from the remote endpoint.
const maxBody = 32 << 20

type Options struct {
	URL        string
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	url        string
	httpClient *http.Client
	attempts   uint
	delay      time.Duration
	logger     *slog.Logger
}

var _ sources.DatasetReader = (*Client)(nil)

var errBadRequest = errors.New("build request")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:        opts.URL,
		httpClient: hc,
		attempts:   uint(attempts),
		delay:      opts.RetryDelay,
		logger:     logger,
	}
}

// ReadDataset implements sources.DatasetReader.
func (c *Client) ReadDataset(ctx context.Context) (core.Dataset, error) {
	ds, report, err := c.Fetch(ctx)
	if err != nil {
		return core.Dataset{}, err
	}
	if report.Skipped() > 0 || report.CoercedAmounts > 0 || report.BlankedNames > 0 {
		c.logger.WarnContext(ctx, "Remote dataset contained invalid records",
			"url", c.url,
			"skipped_customers", report.SkippedCustomers,
			"skipped_transactions", report.SkippedTransactions,
			"coerced_amounts", report.CoercedAmounts,
			"blanked_names", report.BlankedNames)
	}
	return ds, nil
}

// Fetch issues GET requests until one succeeds or the attempts run out.
// Network failures, 5xx and 429 responses are retried; anything else
// fails at once. Every returned error wraps core.ErrFetchFailure.
func (c *Client) Fetch(ctx context.Context) (core.Dataset, core.DecodeReport, error) {
	var (
		ds     core.Dataset
		report core.DecodeReport
	)

	err := retry.Do(
		func() error {
			var err error
			ds, report, err = c.fetchOnce(ctx)
			return err
		},
		retry.Context(ctx),
		retry.RetryIf(isTransient),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "Dataset fetch failed, retrying",
				"url", c.url, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return core.Dataset{}, core.DecodeReport{}, fmt.Errorf("%w: GET %s: %w", core.ErrFetchFailure, c.url, err)
	}
	return ds, report, nil
}

func (c *Client) fetchOnce(ctx context.Context) (core.Dataset, core.DecodeReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return core.Dataset{}, core.DecodeReport{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Dataset{}, core.DecodeReport{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return core.Dataset{}, core.DecodeReport{}, &StatusError{Code: resp.StatusCode}
	}

	return core.DecodeDataset(io.LimitReader(resp.Body, maxBody))
}

func isTransient(err error) bool {
	if errors.Is(err, core.ErrMalformedInput) || errors.Is(err, errBadRequest) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true
}
