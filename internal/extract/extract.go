// Package extract is the pure transformation layer: RawSnapshot in,
// SiteSnapshot out. No network, no clock, no randomness — the same raw
// snapshot always produces the same site snapshot.
package extract

import (
	"sort"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/identity"
	"github.com/siteaudit/siteaudit/internal/tristate"
)

// SchemaEntry is one JSON-LD block found on a page.
type SchemaEntry struct {
	Type   string   `json:"type"`
	JSONLD string   `json:"jsonLd"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Image is one <img> occurrence.
type Image struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// Links classifies a page's anchors by target.
type Links struct {
	Internal []string `json:"internal,omitempty"`
	External []string `json:"external,omitempty"`
	Broken   []string `json:"broken,omitempty"`
	Nofollow []string `json:"nofollow,omitempty"`
}

// PageSignals are the normalized per-URL facts.
type PageSignals struct {
	URL             string        `json:"url"`
	Status          int           `json:"status"`
	Title           string        `json:"title"`
	TitleLength     int           `json:"titleLength"`
	MetaDescription string        `json:"metaDescription"`
	Canonical       string        `json:"canonical"`
	CanonicalSelf   bool          `json:"canonicalSelf"`
	H1              string        `json:"h1"`
	H1Count         int           `json:"h1Count"`
	Headings        map[string]int `json:"headings"`
	Schema          []SchemaEntry `json:"schema,omitempty"`
	Images          []Image       `json:"images,omitempty"`
	Links           Links         `json:"links"`
	MixedContent    bool          `json:"mixedContent"`
	HasViewport     bool          `json:"hasViewport"`
	HasLang         bool          `json:"hasLang"`
	HasCharset      bool          `json:"hasCharset"`
	WordCount       int           `json:"wordCount"`
}

// Infra holds the site-wide infrastructure facts synthesized from the
// network probes.
type Infra struct {
	CDN                 string                   `json:"cdn,omitempty"`
	Hosting             string                   `json:"hosting,omitempty"`
	ARecords            []string                 `json:"aRecords,omitempty"`
	CNAME               string                   `json:"cname,omitempty"`
	IPv6                tristate.Value[bool]     `json:"-"`
	CertExpiryDays      tristate.Value[int]      `json:"-"`
	TLSProtocol         tristate.Value[string]   `json:"-"`
	WWWConsistent       tristate.Value[bool]     `json:"-"`
	TrailingSlashStable bool                     `json:"trailingSlashStable"`
	RedirectChainHealth ChainHealth              `json:"redirectChainHealth"`
	RedirectLoops       []string                 `json:"redirectLoops,omitempty"`
	LongestChain        int                      `json:"longestChain"`
}

// ChainHealth classifies redirect chain length.
type ChainHealth string

const (
	ChainHealthy  ChainHealth = "healthy"
	ChainWarning  ChainHealth = "warning"
	ChainCritical ChainHealth = "critical"
	ChainUnknown  ChainHealth = "unknown"
)

// SiteWide aggregates cross-page facts. SecurityScore is the measured
// header-analysis score the scorer prefers over its deduction model.
type SiteWide struct {
	SecurityHeaders map[string]tristate.Value[string]
	SecurityScore   tristate.Value[float64]
	HTTPSEnforced   tristate.Value[bool]
	Infra           Infra
}

// URLSet is the arena of all URLs the run observed, keyed by normalized
// form. Links reference these keys, never page objects.
type URLSet struct {
	All map[string]struct{} `json:"all"`
}

// Contains reports membership of a normalized URL.
func (s URLSet) Contains(u string) bool {
	_, ok := s.All[u]
	return ok
}

// Sorted returns the arena in stable order.
func (s URLSet) Sorted() []string {
	out := make([]string, 0, len(s.All))
	for u := range s.All {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// SiteSnapshot is the fully resolved, normalized view the audits read.
type SiteSnapshot struct {
	Identity identity.Identity
	Pages    []PageSignals
	SiteWide SiteWide
	URLSet   URLSet
	Perf     PerfFacts
}

// Snapshot runs all extractors over the raw snapshot. Deterministic:
// bit-for-bit equal output for equal input.
func Snapshot(raw *collect.RawSnapshot) *SiteSnapshot {
	snap := &SiteSnapshot{
		Identity: raw.Identity,
		URLSet:   URLSet{All: map[string]struct{}{}},
	}

	snap.Pages = ExtractPages(raw)
	snap.SiteWide.SecurityHeaders = ExtractSecurityHeaders(raw)
	snap.SiteWide.SecurityScore = SecurityHeaderScore(snap.SiteWide.SecurityHeaders)
	snap.SiteWide.HTTPSEnforced, snap.SiteWide.Infra = ExtractInfra(raw)
	snap.Perf = ExtractPerf(raw)

	// Arena: samples ∪ sitemap URLs ∪ internal links, all normalized.
	addURL := func(u string) {
		if norm, err := identity.Normalize(u); err == nil {
			snap.URLSet.All[norm] = struct{}{}
		}
	}
	addURL(raw.Identity.NormalizedURL)
	if raw.Sitemaps.Data != nil {
		for _, u := range raw.Sitemaps.Data.URLs {
			addURL(u)
		}
	}
	for _, p := range snap.Pages {
		addURL(p.URL)
		for _, l := range p.Links.Internal {
			addURL(l)
		}
	}

	// Broken links resolve against the arena: a link is broken when its
	// target is a sampled URL that answered 404.
	notFound := map[string]struct{}{}
	for _, p := range snap.Pages {
		if p.Status == 404 {
			notFound[p.URL] = struct{}{}
		}
	}
	for i := range snap.Pages {
		snap.Pages[i].Links.Broken = markBroken(snap.Pages[i].Links.Internal, notFound)
	}
	return snap
}

func markBroken(internal []string, notFound map[string]struct{}) []string {
	var broken []string
	for _, l := range internal {
		if _, ok := notFound[l]; ok {
			broken = append(broken, l)
		}
	}
	return broken
}
