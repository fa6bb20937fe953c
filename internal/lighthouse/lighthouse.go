// Package lighthouse fetches and decodes Lighthouse reports via the
// PageSpeed Insights API.
package lighthouse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/siteaudit/siteaudit/internal/fetch"
)

const psiEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Metrics are the Core Web Vitals and supporting timings, milliseconds
// unless stated.
type Metrics struct {
	LCP  float64 `json:"lcp"`
	CLS  float64 `json:"cls"`
	TBT  float64 `json:"tbt"`
	FCP  float64 `json:"fcp"`
	TTFB float64 `json:"ttfb"`
}

// CategoryScores are 0–100 per Lighthouse category; -1 marks a category
// the report did not include.
type CategoryScores struct {
	Performance   float64 `json:"performance"`
	Accessibility float64 `json:"accessibility"`
	BestPractices float64 `json:"bestPractices"`
	SEO           float64 `json:"seo"`
	PWA           float64 `json:"pwa"`
}

// Report is the decoded slice of a Lighthouse JSON report the pipeline
// consumes.
type Report struct {
	FinalURL   string         `json:"finalUrl"`
	FetchTime  string         `json:"fetchTime"`
	Metrics    Metrics        `json:"metrics"`
	Categories CategoryScores `json:"categories"`
}

// Client runs PSI over the shared fetch primitive.
type Client struct {
	Fetch  *fetch.Client
	APIKey string
	// Endpoint overrides the PSI URL; tests point it at a stub.
	Endpoint string
}

// Run requests a performance report for the URL.
func (c *Client) Run(ctx context.Context, target string, timeout time.Duration) (*Report, error) {
	if c == nil || c.Fetch == nil {
		return nil, fmt.Errorf("lighthouse client not configured")
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = psiEndpoint
	}
	q := url.Values{}
	q.Set("url", target)
	q.Set("category", "performance")
	q.Add("category", "accessibility")
	q.Add("category", "best-practices")
	q.Add("category", "seo")
	resp, err := c.Fetch.Do(ctx, endpoint+"?"+q.Encode()+c.keyParam(), fetch.Options{
		Timeout:  timeout,
		MaxBytes: 20 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("psi request: %w", err)
	}
	if resp.Status != 200 {
		return nil, fmt.Errorf("psi status %d", resp.Status)
	}
	var envelope struct {
		LighthouseResult json.RawMessage `json:"lighthouseResult"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &envelope); err != nil {
		return nil, fmt.Errorf("decode psi envelope: %w", err)
	}
	if len(envelope.LighthouseResult) == 0 {
		return nil, fmt.Errorf("psi response missing lighthouseResult")
	}
	return Parse(envelope.LighthouseResult)
}

func (c *Client) keyParam() string {
	if c.APIKey == "" {
		return ""
	}
	return "&key=" + url.QueryEscape(c.APIKey)
}

// Parse decodes a raw Lighthouse report (the lighthouseResult object).
func Parse(raw []byte) (*Report, error) {
	var doc struct {
		FinalURL  string `json:"finalUrl"`
		FetchTime string `json:"fetchTime"`
		Audits    map[string]struct {
			NumericValue float64 `json:"numericValue"`
		} `json:"audits"`
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode lighthouse report: %w", err)
	}
	r := &Report{FinalURL: doc.FinalURL, FetchTime: doc.FetchTime}
	audit := func(id string) float64 {
		if a, ok := doc.Audits[id]; ok {
			return a.NumericValue
		}
		return -1
	}
	r.Metrics = Metrics{
		LCP:  audit("largest-contentful-paint"),
		CLS:  audit("cumulative-layout-shift"),
		TBT:  audit("total-blocking-time"),
		FCP:  audit("first-contentful-paint"),
		TTFB: audit("server-response-time"),
	}
	category := func(id string) float64 {
		if c, ok := doc.Categories[id]; ok && c.Score != nil {
			return *c.Score * 100
		}
		return -1
	}
	r.Categories = CategoryScores{
		Performance:   category("performance"),
		Accessibility: category("accessibility"),
		BestPractices: category("best-practices"),
		SEO:           category("seo"),
		PWA:           category("pwa"),
	}
	return r, nil
}
