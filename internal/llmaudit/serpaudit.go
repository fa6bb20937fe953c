package llmaudit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/extract"
	"github.com/siteaudit/siteaudit/internal/finding"
	"github.com/siteaudit/siteaudit/internal/provider"
)

const serpTimeout = 30 * time.Second

const serpSystemInstruction = `You review how a brand appears in organic search results.
Compare the result entries against the site's own page titles and report gaps: missing presence, weak titles, competitors owning brand terms, unhelpful snippets.
Respond with strict JSON only: {"findings":[{"category":"seo|conversion|content","severity":"critical|warning|info","description":"...","recommendation":"...","whyItMatters":"..."}]}.
Report at most 6 findings.`

// SERP feeds the query, organic results, and sampled page titles to a
// text provider. Hard 30s deadline; failures become gaps.
func SERP(ctx context.Context, reg *provider.Registry, snap *extract.SiteSnapshot, raw *collect.RawSnapshot) ([]finding.Finding, []string) {
	if raw.SerpRaw.Data == nil {
		return nil, []string{"serp audit skipped: " + raw.SerpRaw.Err}
	}
	results := raw.SerpRaw.Data
	if len(results.Results) == 0 {
		return nil, []string{"serp audit skipped: provider returned no results"}
	}

	ctx, cancel := context.WithTimeout(ctx, serpTimeout)
	defer cancel()

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %q (via %s)\nSite: %s\n\nOrganic results:\n", results.Query, results.Provider, snap.Identity.NormalizedURL)
	for _, r := range results.Results {
		fmt.Fprintf(&b, "%d. %s — %s\n", r.Position, r.Title, r.Link)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}
	b.WriteString("\nSampled page titles on the site:\n")
	count := 0
	for _, p := range snap.Pages {
		if p.Title == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", p.Title, p.URL)
		if count++; count >= 20 {
			break
		}
	}

	resp, err := reg.Generate(ctx, provider.Call{
		Kind: provider.AuditSERP,
		Mode: provider.ModeStructured,
		Request: provider.Request{
			Prompt:            b.String(),
			SystemInstruction: serpSystemInstruction,
			Temperature:       0.2,
			MaxTokens:         1536,
			Timeout:           serpTimeout,
			JSONOnly:          true,
		},
	})
	if err != nil {
		return nil, []string{"serp audit failed: " + err.Error()}
	}

	var out []finding.Finding
	for _, ef := range parseEnvelope(resp.Text, SourceSERP) {
		if ef.Description == "" {
			continue
		}
		sev := severityOf(ef.Severity)
		out = append(out, finding.New(finding.Finding{
			Type:         finding.TypeSERPIssue,
			Severity:     sev,
			Priority:     priorityOf(sev),
			Category:     categoryOf(ef.Category, finding.CategoryConversion),
			Message:      ef.Description,
			Evidence:     finding.TextEv(fmt.Sprintf("query %q on %s", results.Query, results.Provider)),
			Source:       SourceSERP,
			Fix:          ef.Recommendation,
			WhyItMatters: ef.WhyItMatters,
		}))
	}
	return out, nil
}
