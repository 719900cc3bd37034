package stacapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	stac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/go-geoquery/pkg/logging"
)

// ErrInvalidBaseURL is returned by NewClient for relative or empty URLs.
var ErrInvalidBaseURL = errors.New("stacapi: invalid base URL")

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	URL    string `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Title != "" && e.Detail != "":
		return fmt.Sprintf("stacapi: %s: %s (%s)", e.URL, e.Title, e.Detail)
	case e.Title != "" || e.Detail != "":
		return fmt.Sprintf("stacapi: %s: %s%s", e.URL, e.Title, e.Detail)
	}
	return fmt.Sprintf("stacapi: %s: status %d", e.URL, e.Status)
}

// Temporary reports whether the request may succeed when retried.
func (e *APIError) Temporary() bool {
	return e != nil && e.Status >= 500 && e.Status < 600
}

// Middleware manipulates an outgoing request before it is sent.
type Middleware func(context.Context, *http.Request) error

// NextHandler picks the URL of the following page from a page's links. It
// returns nil when there is no next page.
type NextHandler func([]*stac.Link) (*url.URL, error)

// RetryPolicy decides whether a failed round trip is tried again and after
// how long.
type RetryPolicy func(resp *http.Response, err error) (bool, time.Duration)

// RetryServerErrors retries transport failures and 5xx answers with a
// linear backoff.
func RetryServerErrors(resp *http.Response, err error) (bool, time.Duration) {
	if err != nil || resp.StatusCode >= 500 {
		return true, 500 * time.Millisecond
	}
	return false, 0
}

// Client talks to one STAC API.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	nextHandler NextHandler
	middleware  []Middleware
	retry       RetryPolicy
	maxAttempts int
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithNextHandler(h NextHandler) Option {
	return func(c *Client) { c.nextHandler = h }
}

// WithMiddleware registers request middleware, run in order.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Client) { c.middleware = append(c.middleware, mw...) }
}

// WithRetry retries requests according to policy, at most attempts times in
// total.
func WithRetry(policy RetryPolicy, attempts int) Option {
	return func(c *Client) { c.retry, c.maxAttempts = policy, attempts }
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if u.RawPath != "" && !strings.HasSuffix(u.RawPath, "/") {
		u.RawPath += "/"
	}
	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		nextHandler: DefaultNextHandler,
		maxAttempts: 1,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// DefaultNextHandler follows the first rel="next" link.
func DefaultNextHandler(links []*stac.Link) (*url.URL, error) {
	for _, l := range links {
		if l == nil || !strings.EqualFold(l.Rel, "next") {
			continue
		}
		if l.Href == "" {
			return nil, errors.New("next link without href")
		}
		u, err := url.Parse(l.Href)
		if err != nil {
			return nil, fmt.Errorf("invalid next link %q: %w", l.Href, err)
		}
		return u, nil
	}
	return nil, nil
}

// itemPage is one page of an items or search response.
type itemPage struct {
	Features []*stac.Item `json:"features"`
	Links    []*stac.Link `json:"links"`
}

// pages streams the items of start and every page reachable through the
// next handler. Nothing is requested before the first pull.
func (c *Client) pages(ctx context.Context, start *url.URL) iter.Seq2[*stac.Item, error] {
	return func(yield func(*stac.Item, error) bool) {
		current := c.baseURL.ResolveReference(start)
		for n := 1; ; n++ {
			var page itemPage
			if err := c.getJSON(ctx, current, &page); err != nil {
				yield(nil, err)
				return
			}
			logging.Debug().Str("url", current.String()).Int("page", n).Int("items", len(page.Features)).Msg("fetched page")

			for _, item := range page.Features {
				if item == nil {
					continue
				}
				if !yield(item, nil) {
					return
				}
			}

			next, err := c.nextHandler(page.Links)
			if err != nil {
				yield(nil, fmt.Errorf("next page after %s: %w", current, err))
				return
			}
			if next == nil {
				return
			}
			next = current.ResolveReference(next)
			if next.String() == current.String() || len(page.Features) == 0 {
				return
			}
			current = next
		}
	}
}

// getJSON fetches u and decodes a 200 answer into out.
func (c *Client) getJSON(ctx context.Context, u *url.URL, out any) error {
	resp, err := c.do(ctx, http.MethodGet, u.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp, u)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", u, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, u *url.URL) error {
	apiErr := &APIError{Status: resp.StatusCode, URL: u.String()}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Title       string `json:"title"`
		Detail      string `json:"detail"`
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Title = payload.Title
		if apiErr.Title == "" {
			apiErr.Title = payload.Code
		}
		apiErr.Detail = payload.Detail
		if apiErr.Detail == "" {
			apiErr.Detail = payload.Description
		}
	}
	return apiErr
}

// do builds a request, runs the middleware and sends it, retrying as the
// retry policy allows.
func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request for %s: %w", rawURL, err)
		}
		req.Header.Set("Accept", "application/geo+json, application/json")
		for _, mw := range c.middleware {
			if err := mw(ctx, req); err != nil {
				return nil, fmt.Errorf("apply middleware for %s: %w", rawURL, err)
			}
		}

		resp, err := c.httpClient.Do(req)
		observeRequest(resp, err)
		if c.retry == nil || attempt >= c.maxAttempts || ctx.Err() != nil {
			return resp, err
		}
		again, delay := c.retry(resp, err)
		if !again {
			return resp, err
		}
		if resp != nil {
			resp.Body.Close()
		}
		logging.Debug().Err(err).Str("url", rawURL).Int("attempt", attempt).Msg("retrying request")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay * time.Duration(attempt)):
		}
	}
}

func statusLabel(resp *http.Response, err error) string {
	if err != nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode)
}
