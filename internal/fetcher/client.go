package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds every outbound fetch. The pipeline performs no
	// retries, so a slow origin costs at most this much per invocation.
	DefaultTimeout = 11 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 16 << 20 // 16 MB
)

type Options struct {
	Timeout      time.Duration
	UserAgent    string // literal user agent; takes precedence over BrowserAgent
	BrowserAgent string // browser family for the agent selector (chrome|firefox|safari|edge|auto)
	Cookies      []*http.Cookie
	MaxBodyBytes int64

	// CookieFunc, when set, supplies additional cookies per request URL. It
	// lets a composition root source cookies from a browser store scoped to
	// the host actually being fetched.
	CookieFunc func(rawURL string) []*http.Cookie

	// AllowPrivateHosts disables the private-IP dial guard. Only set by tests
	// that fetch from loopback servers.
	AllowPrivateHosts bool
}

// Client wraps http.Client with the fetch policy shared by the metadata and
// thumbnail downloads: browser-like headers, a configurable user agent and
// cookie set, a hard timeout, and bounded body reads.
type Client struct {
	httpClient *http.Client
	agents     *AgentSelector
	opts       Options
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	transport := &http.Transport{}
	if !opts.AllowPrivateHosts {
		transport.DialContext = safeDialContext(&net.Dialer{Timeout: opts.Timeout})
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		agents: NewAgentSelector(),
		opts:   opts,
	}
}

// Response holds the parts of an HTTP response the pipeline cares about.
type Response struct {
	Body       []byte
	Header     http.Header
	StatusCode int
}

// Get fetches a URL and returns the body. Non-2xx statuses are errors; the
// caller decides how a failed fetch degrades.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	userAgent := c.opts.UserAgent
	if userAgent == "" {
		userAgent = c.agents.UserAgent(c.opts.BrowserAgent)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")

	for _, cookie := range c.opts.Cookies {
		req.AddCookie(cookie)
	}
	if c.opts.CookieFunc != nil {
		for _, cookie := range c.opts.CookieFunc(rawURL) {
			req.AddCookie(cookie)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := readLimited(resp.Body, c.opts.MaxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	return &Response{
		Body:       body,
		Header:     resp.Header,
		StatusCode: resp.StatusCode,
	}, nil
}

// readLimited reads up to limit bytes from r and errors if the body is larger.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return data, nil
}
