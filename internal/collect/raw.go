// Package collect implements the collection layer: thirteen independent
// probes against the target site, fanned out under a per-run concurrency
// limit. Every probe returns an Output and never panics.
package collect

import (
	"time"

	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/identity"
	"github.com/siteaudit/siteaudit/internal/lighthouse"
	"github.com/siteaudit/siteaudit/internal/serp"
)

// Output is the typed partial-failure contract all collectors obey:
// exactly one of Data or Err is set.
type Output[T any] struct {
	Data *T     `json:"data"`
	Err  string `json:"error"`
}

// OK wraps a successful probe result.
func OK[T any](v T) Output[T] { return Output[T]{Data: &v} }

// Fail wraps a soft failure. Collectors never raise.
func Fail[T any](msg string) Output[T] { return Output[T]{Err: msg} }

// Failed reports whether the probe produced no data.
func (o Output[T]) Failed() bool { return o.Data == nil }

// Named probe timeouts.
const (
	TimeoutDNS        = 5 * time.Second
	TimeoutTLS        = 5 * time.Second
	TimeoutRobots     = 5 * time.Second
	TimeoutRoot       = 10 * time.Second
	TimeoutHTMLSample = 8 * time.Second
	TimeoutSitemap    = 15 * time.Second
	TimeoutWellKnown  = 5 * time.Second
	TimeoutScreenshot = 60 * time.Second
	TimeoutLighthouse = 60 * time.Second
	TimeoutSERP       = 15 * time.Second
)

// RootFetch is the initial page probe. Body is retained only when the
// response is HTML.
type RootFetch struct {
	FinalURL string            `json:"finalUrl"`
	Status   int               `json:"status"`
	Headers  map[string]string `json:"headers"`
	Body     string            `json:"body,omitempty"`
	IsHTML   bool              `json:"isHtml"`
	Chain    []fetch.Hop       `json:"chain,omitempty"`
}

// RobotsTxt captures /robots.txt and its sitemap references.
type RobotsTxt struct {
	Found       bool     `json:"found"`
	Body        string   `json:"body,omitempty"`
	SitemapRefs []string `json:"sitemapRefs,omitempty"`
	DisallowAll bool     `json:"disallowAll"`
}

// Sitemaps is the flattened result of the sitemap BFS.
type Sitemaps struct {
	Sources   []string `json:"sources"`
	URLs      []string `json:"urls"`
	Truncated bool     `json:"truncated"`
}

// SamplingPlan selects the URL subset the html sampler fetches.
type SamplingPlan struct {
	Samples []string            `json:"samples"`
	Groups  map[string][]string `json:"groups"`
}

// PageSample is one fetched sample. A sample can fail individually
// without failing the probe.
type PageSample struct {
	URL      string            `json:"url"`
	FinalURL string            `json:"finalUrl,omitempty"`
	Status   int               `json:"status"`
	Headers  map[string]string `json:"headers,omitempty"`
	Body     string            `json:"body,omitempty"`
	IsHTML   bool              `json:"isHtml"`
	Err      string            `json:"error,omitempty"`
}

// HTMLSamples collects the sampled pages.
type HTMLSamples struct {
	Pages []PageSample `json:"pages"`
}

// RedirectProbe is one of the four root-variant walks.
type RedirectProbe struct {
	StartURL string      `json:"startUrl"`
	FinalURL string      `json:"finalUrl,omitempty"`
	Status   int         `json:"status"`
	Chain    []fetch.Hop `json:"chain,omitempty"`
	Err      string      `json:"error,omitempty"`
}

// RedirectMap probes http/https × apex/www in parallel.
type RedirectMap struct {
	HTTPRoot  RedirectProbe `json:"httpRoot"`
	HTTPSRoot RedirectProbe `json:"httpsRoot"`
	HTTPWWW   RedirectProbe `json:"httpWww"`
	HTTPSWWW  RedirectProbe `json:"httpsWww"`
}

// DNSRecord is one address answer with its TTL.
type DNSRecord struct {
	Value string `json:"value"`
	TTL   uint32 `json:"ttl"`
}

// DNSFacts holds A/AAAA/CNAME answers.
type DNSFacts struct {
	A     []DNSRecord `json:"a,omitempty"`
	AAAA  []DNSRecord `json:"aaaa,omitempty"`
	CNAME *DNSRecord  `json:"cname,omitempty"`
}

// TLSFacts records a single handshake; no cipher probing.
type TLSFacts struct {
	Protocol        string    `json:"protocol"`
	Issuer          string    `json:"issuer"`
	NotAfter        time.Time `json:"notAfter"`
	DaysUntilExpiry int       `json:"daysUntilExpiry"`
	SANs            []string  `json:"sans,omitempty"`
}

// WellKnownEndpoint is one fixed-path probe, body truncated to a snippet.
type WellKnownEndpoint struct {
	Path    string `json:"path"`
	Status  int    `json:"status"`
	Snippet string `json:"snippet,omitempty"`
}

// WellKnown holds all fixed-path probes.
type WellKnown struct {
	Endpoints []WellKnownEndpoint `json:"endpoints"`
}

// Screenshots carries base64 PNGs for both viewports.
type Screenshots struct {
	Desktop string `json:"desktop,omitempty"`
	Mobile  string `json:"mobile,omitempty"`
	Backend string `json:"backend"`
}

// SecurityScan is the optional external CLI probe.
type SecurityScan struct {
	Tool   string `json:"tool"`
	Ran    bool   `json:"ran"`
	Output string `json:"output,omitempty"`
}

// RawSnapshot is the union of all collector outputs, immutable once
// built.
type RawSnapshot struct {
	Identity identity.Identity `json:"identity"`

	RootFetch    Output[RootFetch]          `json:"rootFetch"`
	RobotsTxt    Output[RobotsTxt]          `json:"robotsTxt"`
	Sitemaps     Output[Sitemaps]           `json:"sitemaps"`
	SamplingPlan Output[SamplingPlan]       `json:"urlSamplingPlan"`
	HTMLSamples  Output[HTMLSamples]        `json:"htmlSamples"`
	RedirectMap  Output[RedirectMap]        `json:"redirectMap"`
	DNSFacts     Output[DNSFacts]           `json:"dnsFacts"`
	TLSFacts     Output[TLSFacts]           `json:"tlsFacts"`
	WellKnown    Output[WellKnown]          `json:"wellKnown"`
	Screenshots  Output[Screenshots]        `json:"screenshots"`
	Lighthouse   Output[lighthouse.Report]  `json:"lighthouse"`
	SerpRaw      Output[serp.Results]       `json:"serpRaw"`
	SecurityScan Output[SecurityScan]       `json:"securityScan"`
}
