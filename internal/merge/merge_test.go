package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteaudit/siteaudit/internal/finding"
)

func mkFinding(id, source, msg string, prio finding.Priority, cat finding.Category) finding.Finding {
	return finding.Finding{
		ID: id, Type: finding.TypeMissingTitle, Severity: finding.SeverityWarning,
		Message: msg, Priority: prio, Category: cat, Source: source,
		Evidence: finding.TextEv("evidence long enough to count as substantive"),
	}
}

func TestMerge_DuplicatesAcrossSources(t *testing.T) {
	fs := []finding.Finding{
		mkFinding("1", "technical-seo", "Missing title tag", finding.PriorityHigh, finding.CategorySEO),
		mkFinding("2", "on-page-seo", "Missing title tag", finding.PriorityMedium, finding.CategorySEO),
	}
	out := Merge(fs, DefaultOptions())
	require.Len(t, out, 1)
	assert.ElementsMatch(t, []string{"technical-seo", "on-page-seo"}, out[0].Sources)
	assert.Equal(t, ConfidenceHigh, out[0].Confidence)
	// base 4 (high) + 0.5 merged + 0.3 strong evidence
	assert.InDelta(t, 4.8, out[0].PriorityScore, 1e-9)
	// The more severe entry is kept.
	assert.Equal(t, finding.PriorityHigh, out[0].Priority)
}

func TestMerge_SameSourceNeverMerges(t *testing.T) {
	fs := []finding.Finding{
		mkFinding("1", "technical-seo", "Missing title tag", finding.PriorityHigh, finding.CategorySEO),
		mkFinding("2", "technical-seo", "Missing title tag", finding.PriorityHigh, finding.CategorySEO),
	}
	out := Merge(fs, DefaultOptions())
	assert.Len(t, out, 2)
}

func TestMerge_DifferentCategoryNeverMerges(t *testing.T) {
	fs := []finding.Finding{
		mkFinding("1", "technical-seo", "Missing title tag", finding.PriorityHigh, finding.CategorySEO),
		mkFinding("2", "security", "Missing title tag", finding.PriorityHigh, finding.CategorySecurity),
	}
	out := Merge(fs, DefaultOptions())
	assert.Len(t, out, 2)
}

func TestMerge_DissimilarMessagesStaySeparate(t *testing.T) {
	fs := []finding.Finding{
		mkFinding("1", "technical-seo", "Missing title tag on product pages", finding.PriorityHigh, finding.CategorySEO),
		mkFinding("2", "crawl", "Sitemap could not be located anywhere", finding.PriorityMedium, finding.CategorySEO),
	}
	out := Merge(fs, DefaultOptions())
	assert.Len(t, out, 2)
}

func TestMerge_KeyPhraseBoost(t *testing.T) {
	opts := DefaultOptions()
	// Pure Jaccard is 2/10 = 0.2; the shared "canonical" phrase adds the
	// 0.2 boost. Both stay below the 0.6 threshold.
	a := "Canonical URL missing from several pages"
	b := "Pages lack a canonical reference entirely here"
	simPlain := similarity(a, b, Options{Threshold: 0.6, KeyPhrases: nil, KeyPhraseBoost: 0})
	simBoosted := similarity(a, b, opts)
	assert.Greater(t, simBoosted, simPlain)
}

func TestMerge_Idempotent(t *testing.T) {
	fs := []finding.Finding{
		mkFinding("1", "technical-seo", "Missing title tag", finding.PriorityHigh, finding.CategorySEO),
		mkFinding("2", "on-page-seo", "Missing title tag", finding.PriorityMedium, finding.CategorySEO),
		mkFinding("3", "crawl", "Broken internal links found", finding.PriorityCritical, finding.CategoryTechnical),
		mkFinding("4", "security", "Response is missing the content-security-policy header", finding.PriorityHigh, finding.CategorySecurity),
	}
	once := Merge(fs, DefaultOptions())
	twice := Remerge(once, DefaultOptions())
	require.Equal(t, len(once), len(twice))
	for i := range once {
		assert.Equal(t, once[i].ID, twice[i].ID)
		assert.Equal(t, once[i].Sources, twice[i].Sources)
		assert.InDelta(t, once[i].PriorityScore, twice[i].PriorityScore, 1e-9)
	}
}

func TestMerge_SortedByPriorityScore(t *testing.T) {
	fs := []finding.Finding{
		mkFinding("low", "crawl", "No AAAA records present", finding.PriorityLow, finding.CategoryTechnical),
		mkFinding("crit", "security", "Plain http is not redirected", finding.PriorityCritical, finding.CategorySecurity),
		mkFinding("med", "technical-seo", "Several meta descriptions overflow", finding.PriorityMedium, finding.CategorySEO),
	}
	out := Merge(fs, DefaultOptions())
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].PriorityScore, out[i].PriorityScore)
	}
	assert.Equal(t, "crit", out[0].ID)
}

func TestMerge_ScoreCap(t *testing.T) {
	fs := []finding.Finding{
		mkFinding("1", "security", "Plain http not redirected to https anywhere", finding.PriorityCritical, finding.CategorySecurity),
		mkFinding("2", "crawl", "Plain http not redirected to https anywhere", finding.PriorityCritical, finding.CategorySecurity),
	}
	out := Merge(fs, DefaultOptions())
	require.Len(t, out, 1)
	assert.InDelta(t, 5.0, out[0].PriorityScore, 1e-9, "priority score caps at 5")
}
