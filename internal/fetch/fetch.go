// Package fetch provides the HTTP client used to download schedule pages.
//
// The client joins site-relative paths onto a base URL, retries transient
// failures (transport errors, 5xx, 429) with a constant backoff, validates
// that responses are non-empty HTML, and decodes legacy charsets (the source
// site serves windows-1251) to UTF-8.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetries    = 2
	DefaultRetryDelay = 1500 * time.Millisecond
	DefaultUserAgent  = "schedule-parser/1.0 (github.com/avkuzmin/schedule-parser)"
)

var (
	ErrEmptyPath          = errors.New("fetch: empty path")
	ErrEmptyDocument      = errors.New("fetch: empty document body")
	ErrUnsupportedContent = errors.New("fetch: unexpected content type")
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: status %d for %s", e.StatusCode, e.URL)
}

// Client fetches site pages with bounded retry.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries uint64
	RetryDelay time.Duration
}

// New creates a Client for the given site base URL with default timeout and
// retry settings.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  DefaultUserAgent,
		MaxRetries: DefaultRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Get downloads one page and returns its body decoded to UTF-8. Transport
// errors, 5xx and 429 responses are retried with a constant backoff; any
// other non-2xx status fails immediately.
func (c *Client) Get(ctx context.Context, path string) (string, error) {
	url, err := c.buildURL(path)
	if err != nil {
		return "", err
	}

	var body string
	attempt := func() error {
		var err error
		body, err = c.tryOnce(ctx, url)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.RetryDelay), c.MaxRetries),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return "", err
	}
	return body, nil
}

// buildURL joins a site-relative path onto the base URL. Absolute URLs pass
// through unchanged.
func (c *Client) buildURL(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", ErrEmptyPath
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p, nil
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(p, "/"), nil
}

func (c *Client) tryOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		// Transport errors are usually transient.
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode}
		if retriableStatus(resp.StatusCode) {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "text/html") {
		return "", backoff.Permanent(fmt.Errorf("%w: %q for %s", ErrUnsupportedContent, contentType, url))
	}

	reader, err := charset.NewReader(resp.Body, contentType)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("detecting charset for %s: %w", url, err))
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading body of %s: %w", url, err)
	}

	body := string(data)
	if strings.TrimSpace(body) == "" {
		return "", backoff.Permanent(fmt.Errorf("%w: %s", ErrEmptyDocument, url))
	}
	return body, nil
}

// retriableStatus reports whether a status is worth another attempt: 429 and
// server errors are, other client errors are permanent for this site.
func retriableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}
