// Package fetch provides the single HTTP primitive every network-touching
// collector uses. It never panics: timeouts, oversize bodies, and redirect
// caps all come back as error values.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultUserAgent    = "siteaudit/1.0 (+https://github.com/siteaudit/siteaudit)"
	defaultAccept       = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	defaultAcceptLang   = "en-US,en;q=0.9"
	defaultMaxRedirects = 10
	defaultMaxBytes     = 5 << 20 // 5 MiB
)

// Hop is one entry in a redirect chain.
type Hop struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

// Options tune a single request. Zero values take defaults.
type Options struct {
	Method          string
	Headers         map[string]string
	Body            string
	Timeout         time.Duration
	MaxBytes        int64
	FollowRedirects bool
	MaxRedirects    int
}

// Response is the outcome of a successful fetch.
type Response struct {
	FinalURL string
	Status   int
	// Headers holds the final response headers with lowercased names.
	Headers map[string]string
	Body    string
	Chain   []Hop
}

// Client wraps an http.Client with manual redirect handling so the full
// chain is recorded.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
}

// Do issues a request and walks redirects manually, recording each hop.
// All abnormal conditions are returned as errors; Do never panics.
func (c *Client) Do(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = defaultMaxRedirects
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	httpClient := c.httpClient()
	current := rawURL
	var chain []Hop

	for hops := 0; ; hops++ {
		u, err := url.Parse(current)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		if !isHTTPScheme(u) {
			return nil, fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
		}

		var payload io.Reader
		if opts.Body != "" {
			payload = strings.NewReader(opts.Body)
		}
		req, err := http.NewRequestWithContext(ctx, method, current, payload)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		c.setHeaders(req, opts.Headers)

		resp, err := httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("request timed out: %w", err)
			}
			return nil, err
		}

		if isRedirect(resp.StatusCode) && opts.FollowRedirects {
			loc := resp.Header.Get("Location")
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<12))
			resp.Body.Close()
			if loc == "" {
				return nil, fmt.Errorf("redirect without Location header at %s", current)
			}
			chain = append(chain, Hop{URL: current, Status: resp.StatusCode})
			if hops+1 > maxRedirects {
				return nil, errors.New("Exceeded maximum redirect hops")
			}
			next, err := u.Parse(loc)
			if err != nil {
				return nil, fmt.Errorf("resolve redirect target %q: %w", loc, err)
			}
			current = next.String()
			continue
		}

		body, err := readBounded(resp, maxBytes)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return &Response{
			FinalURL: current,
			Status:   resp.StatusCode,
			Headers:  lowerHeaders(resp.Header),
			Body:     body,
			Chain:    chain,
		}, nil
	}
}

func (c *Client) httpClient() *http.Client {
	base := c.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	// Redirects are walked manually in Do; stop the transport from following.
	clone := *base
	clone.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &clone
}

func (c *Client) setHeaders(req *http.Request, overrides map[string]string) {
	ua := c.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", defaultAccept)
	req.Header.Set("Accept-Language", defaultAcceptLang)
	for k, v := range overrides {
		req.Header.Set(k, v)
	}
}

// readBounded streams the body with a running byte counter. A declared
// Content-Length over the cap short-circuits before any read.
func readBounded(resp *http.Response, maxBytes int64) (string, error) {
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > maxBytes {
			return "", fmt.Errorf("declared body size %d exceeds limit %d", n, maxBytes)
		}
	}
	var b strings.Builder
	buf := make([]byte, 32<<10)
	var read int64
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			read += int64(n)
			if read > maxBytes {
				return "", fmt.Errorf("body exceeds limit of %d bytes", maxBytes)
			}
			b.Write(buf[:n])
		}
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
	}
}

func lowerHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) == 0 {
			continue
		}
		out[strings.ToLower(k)] = strings.Join(vs, ", ")
	}
	return out
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
