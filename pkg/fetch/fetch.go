// Package fetch is the HTTP GET primitive shared by every network tier of
// prompt retrieval.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-cleanhttp"
)

const (
	// DefaultTimeout bounds a single request, including reading the body.
	DefaultTimeout = 60 * time.Second

	maxBodyBytes = 10 << 20
	userAgent    = "prun"
)

var (
	// ErrRequestTimeout is returned when the request deadline expires. It is
	// kept distinct from other network errors so callers can tell a slow
	// host from a rejecting one.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrHTTPStatus is wrapped by every StatusError.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	ErrResponseTooLarge = errors.New("response body too large")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap returns ErrHTTPStatus so callers can use errors.Is.
func (e *StatusError) Unwrap() error { return ErrHTTPStatus }

type (
	Client struct {
		httpClient *http.Client
		timeout    time.Duration
	}

	Option func(*Client)
)

// WithHTTPClient replaces the underlying client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Client) {
		f.httpClient = c
	}
}

// WithTimeout sets the hard per-request timeout. Non-positive values keep
// the default.
func WithTimeout(d time.Duration) Option {
	return func(f *Client) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: cleanhttp.DefaultPooledClient(),
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Get performs a single GET and returns the body. headers are added verbatim;
// pass nil for an anonymous request.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", url)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, c.classify(ctx, url, err)
	}
	if len(body) > maxBodyBytes {
		return nil, errors.Wrapf(ErrResponseTooLarge, "GET %s: more than %d bytes", url, maxBodyBytes)
	}
	return body, nil
}

func (c *Client) classify(ctx context.Context, url string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrapf(ErrRequestTimeout, "GET %s after %s", url, c.timeout)
	}
	return errors.Wrapf(err, "GET %s", url)
}
