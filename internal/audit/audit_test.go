package audit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/extract"
	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/finding"
	"github.com/siteaudit/siteaudit/internal/identity"
	"github.com/siteaudit/siteaudit/internal/lighthouse"
	"github.com/siteaudit/siteaudit/internal/merge"
	"github.com/siteaudit/siteaudit/internal/score"
)

func testIdentity(t *testing.T) identity.Identity {
	t.Helper()
	id, err := identity.New("https://example.com/", "", "v1", "v1")
	require.NoError(t, err)
	return id
}

func findingsByType(fs []finding.Finding) map[finding.Type]finding.Finding {
	out := map[finding.Type]finding.Finding{}
	for _, f := range fs {
		out[f.Type] = f
	}
	return out
}

// Missing HSTS on an https-enforcing site must be critical and the
// enforcement signal present(true).
func TestSecurity_MissingHSTS(t *testing.T) {
	id := testIdentity(t)
	raw := &collect.RawSnapshot{Identity: id}
	raw.RootFetch = collect.OK(collect.RootFetch{
		Status:  200,
		Headers: map[string]string{"content-type": "text/html"},
	})
	raw.RedirectMap = collect.OK(collect.RedirectMap{
		HTTPRoot: collect.RedirectProbe{
			StartURL: "http://example.com/",
			FinalURL: "https://example.com/",
			Status:   200,
			Chain:    []fetch.Hop{{URL: "http://example.com/", Status: 301}},
		},
	})
	snap := extract.Snapshot(raw)

	enforced, ok := snap.SiteWide.HTTPSEnforced.Get()
	require.True(t, ok)
	assert.True(t, enforced)

	res := Security(snap, raw)
	byType := findingsByType(res.Findings)
	hsts, found := byType[finding.TypeMissingHSTS]
	require.True(t, found, "sec_missing_hsts expected")
	assert.Equal(t, finding.SeverityCritical, hsts.Severity)
	assert.Equal(t, finding.PriorityCritical, hsts.Priority)
}

// When the root fetch failed entirely, header rules become gaps, not
// absent-header findings.
func TestSecurity_UnknownHeadersBecomeGaps(t *testing.T) {
	id := testIdentity(t)
	raw := &collect.RawSnapshot{Identity: id, RootFetch: collect.Fail[collect.RootFetch]("timeout")}
	snap := extract.Snapshot(raw)

	res := Security(snap, raw)
	byType := findingsByType(res.Findings)
	_, found := byType[finding.TypeMissingHSTS]
	assert.False(t, found, "unknown header must not read as missing")
	assert.NotEmpty(t, res.Gaps)
}

func TestSecurity_PrivateFlagsSeparate(t *testing.T) {
	id := testIdentity(t)
	raw := &collect.RawSnapshot{Identity: id}
	raw.WellKnown = collect.OK(collect.WellKnown{Endpoints: []collect.WellKnownEndpoint{
		{Path: "/.well-known/security.txt", Status: 200, Snippet: `api_key = "sk_live_abcdef1234567890"`},
	}})
	raw.RootFetch = collect.OK(collect.RootFetch{
		Status: 200, IsHTML: true,
		Headers: map[string]string{"content-type": "text/html"},
		Body:    "<html></html>\n//# sourceMappingURL=app.js.map",
	})
	snap := extract.Snapshot(raw)

	res := Security(snap, raw)
	require.Len(t, res.Private, 2)
	for _, pf := range res.Private {
		assert.True(t, strings.HasPrefix(pf.FlagID, "pf-"), "private flags live in their own id space")
	}
	for _, f := range res.Findings {
		assert.True(t, strings.HasPrefix(f.ID, "f-"))
	}
}

// Two pages with the same title and overlong descriptions: duplicate
// title warning with both URLs, description-length info, and no
// missing-title finding.
func TestTechnical_TitleAndDescriptionCatalog(t *testing.T) {
	id := testIdentity(t)
	longDesc := strings.Repeat("x", 250)
	raw := &collect.RawSnapshot{Identity: id}
	snap := &extract.SiteSnapshot{Identity: id, Pages: []extract.PageSignals{
		{URL: "https://example.com/a", Status: 200, Title: "X", TitleLength: 1, MetaDescription: longDesc, H1Count: 1, HasViewport: true, HasLang: true, HasCharset: true, WordCount: 500, Headings: map[string]int{}},
		{URL: "https://example.com/b", Status: 200, Title: "X", TitleLength: 1, MetaDescription: longDesc, H1Count: 1, HasViewport: true, HasLang: true, HasCharset: true, WordCount: 500, Headings: map[string]int{}},
	}}

	res := Technical(snap, raw)
	byType := findingsByType(res.Findings)

	dup, found := byType[finding.TypeDuplicateTitle]
	require.True(t, found, "tech_duplicate_title expected")
	assert.Equal(t, finding.SeverityWarning, dup.Severity)
	assert.Len(t, dup.AffectedURLs, 2)

	tooLong, found := byType[finding.TypeMetaDescTooLong]
	require.True(t, found, "tech_meta_desc_too_long expected")
	assert.Equal(t, finding.SeverityInfo, tooLong.Severity)
	assert.Len(t, tooLong.AffectedURLs, 2)

	// Duplicate descriptions also register.
	_, found = byType[finding.TypeDuplicateMetaDesc]
	assert.True(t, found)

	_, found = byType[finding.TypeMissingTitle]
	assert.False(t, found, "titles exist, tech_missing_title must not fire")
}

// A redirect loop must surface as a critical unreachable finding with
// the loop URL recorded.
func TestCrawl_RedirectLoop(t *testing.T) {
	id := testIdentity(t)
	raw := &collect.RawSnapshot{Identity: id}
	raw.RobotsTxt = collect.OK(collect.RobotsTxt{Found: true})
	raw.Sitemaps = collect.OK(collect.Sitemaps{Sources: []string{"https://example.com/sitemap.xml"}})
	raw.RedirectMap = collect.OK(collect.RedirectMap{
		HTTPSRoot: collect.RedirectProbe{
			StartURL: "https://example.com/",
			Chain: []fetch.Hop{
				{URL: "https://example.com/a", Status: 301},
				{URL: "https://example.com/b", Status: 301},
				{URL: "https://example.com/a", Status: 301},
			},
			Err: "redirect loop detected",
		},
	})
	snap := extract.Snapshot(raw)
	require.Equal(t, extract.ChainCritical, snap.SiteWide.Infra.RedirectChainHealth)
	assert.Contains(t, snap.SiteWide.Infra.RedirectLoops, "https://example.com/a")

	res := Crawl(snap, raw)
	byType := findingsByType(res.Findings)
	unreachable, found := byType[finding.TypeUnreachable]
	require.True(t, found, "crawl_unreachable expected")
	assert.Equal(t, finding.SeverityCritical, unreachable.Severity)
}

// Poor vitals across the board must yield the three critical findings.
func TestPerformance_PoorVitals(t *testing.T) {
	id := testIdentity(t)
	raw := &collect.RawSnapshot{Identity: id}
	raw.Lighthouse = collect.OK(lighthouse.Report{
		Metrics: lighthouse.Metrics{LCP: 5200, CLS: 0.30, TBT: 700, FCP: 1800, TTFB: 420},
		Categories: lighthouse.CategoryScores{
			Performance: 23, Accessibility: -1, BestPractices: -1, SEO: -1, PWA: -1,
		},
	})
	snap := extract.Snapshot(raw)

	res := Performance(snap, raw)
	byType := findingsByType(res.Findings)
	for _, typ := range []finding.Type{finding.TypePoorLCP, finding.TypePoorCLS, finding.TypePoorFID} {
		f, found := byType[typ]
		require.True(t, found, "expected %s", typ)
		assert.Equal(t, finding.SeverityCritical, f.Severity)
		assert.Equal(t, finding.PriorityCritical, f.Priority)
	}
}

// When the vitals are measured but the Lighthouse category score is
// not, the deduction model must carry the performance score to 25 or
// below.
func TestPerformance_DeductionFallbackScore(t *testing.T) {
	id := testIdentity(t)
	raw := &collect.RawSnapshot{Identity: id}
	raw.Lighthouse = collect.OK(lighthouse.Report{
		Metrics: lighthouse.Metrics{LCP: 5200, CLS: 0.30, TBT: 700, FCP: 1800, TTFB: 420},
		Categories: lighthouse.CategoryScores{
			Performance: -1, Accessibility: -1, BestPractices: -1, SEO: -1, PWA: -1,
		},
	})
	snap := extract.Snapshot(raw)
	require.True(t, snap.Perf.Score.IsAbsent(), "category score must read as absent")

	res := Performance(snap, raw)
	merged := merge.Merge(res.Findings, merge.DefaultOptions())
	scores := score.Compute(merged, score.Measured{
		Performance: snap.Perf.Score,
		Security:    snap.SiteWide.SecurityScore,
	}, score.DefaultOptions())
	assert.LessOrEqual(t, scores.Performance, 25.0)
}

func TestPerformance_FailedProbeIsGapOnly(t *testing.T) {
	id := testIdentity(t)
	raw := &collect.RawSnapshot{Identity: id, Lighthouse: collect.Fail[lighthouse.Report]("quota exceeded")}
	snap := extract.Snapshot(raw)

	res := Performance(snap, raw)
	assert.Empty(t, res.Findings)
	assert.NotEmpty(t, res.Gaps)
}

// Audits only report URLs the run observed.
func TestFindings_AffectedURLsSubsetOfArena(t *testing.T) {
	id := testIdentity(t)
	raw := &collect.RawSnapshot{Identity: id}
	raw.HTMLSamples = collect.OK(collect.HTMLSamples{Pages: []collect.PageSample{
		{URL: "https://example.com/", Status: 200, IsHTML: true, Body: "<html><head></head><body><p>word word word</p></body></html>"},
	}})
	snap := extract.Snapshot(raw)

	for name, fn := range All() {
		res := fn(snap, raw)
		for _, f := range res.Findings {
			for _, u := range f.AffectedURLs {
				assert.True(t, snap.URLSet.Contains(u), "%s finding %s references unobserved url %s", name, f.Type, u)
			}
		}
	}
}
