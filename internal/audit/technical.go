package audit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/extract"
	"github.com/siteaudit/siteaudit/internal/finding"
)

// On-page length bounds, characters.
const (
	titleMin    = 10
	titleMax    = 60
	metaDescMin = 50
	metaDescMax = 160
	thinWords   = 150
)

// Technical covers the on-page catalog: titles, descriptions, headings,
// canonicals, markup hygiene, structured data. One finding per pattern
// with affected URLs aggregated.
func Technical(snap *extract.SiteSnapshot, raw *collect.RawSnapshot) Result {
	var res Result
	add := func(f finding.Finding) {
		f.Source = SourceTechnical
		res.Findings = append(res.Findings, finding.New(f))
	}
	pages := livePages(snap)
	if len(pages) == 0 {
		res.Gaps = append(res.Gaps, "no html samples available for on-page checks")
		return res
	}

	gather := func(pred func(extract.PageSignals) bool) []string {
		var urls []string
		for _, p := range pages {
			if pred(p) {
				urls = append(urls, p.URL)
			}
		}
		return urls
	}

	if urls := gather(func(p extract.PageSignals) bool { return p.Title == "" }); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMissingTitle, Severity: finding.SeverityCritical,
			Priority: finding.PriorityCritical, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d pages have no <title> tag", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Give every page a unique, descriptive title under 60 characters.",
			WhyItMatters: "The title is the strongest on-page relevance signal and the headline in results.",
		})
	}

	byTitle := map[string][]string{}
	for _, p := range pages {
		if p.Title != "" {
			byTitle[p.Title] = append(byTitle[p.Title], p.URL)
		}
	}
	var dupTitleURLs []string
	for _, urls := range byTitle {
		if len(urls) > 1 {
			dupTitleURLs = append(dupTitleURLs, urls...)
		}
	}
	if len(dupTitleURLs) > 0 {
		dupTitleURLs = dedupe(dupTitleURLs)
		sort.Strings(dupTitleURLs)
		add(finding.Finding{
			Type: finding.TypeDuplicateTitle, Severity: finding.SeverityWarning,
			Priority: finding.PriorityMedium, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d pages share a title with another page", len(dupTitleURLs)),
			Evidence:     finding.URLsEv(dupTitleURLs),
			AffectedURLs: dupTitleURLs,
			Fix:          "Differentiate titles so each page targets its own query space.",
			WhyItMatters: "Duplicate titles force search engines to pick a canonical page for you.",
		})
	}

	if urls := gather(func(p extract.PageSignals) bool {
		return p.Title != "" && p.TitleLength > titleMax
	}); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeTitleTooLong, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d titles exceed %d characters and will truncate in results", len(urls), titleMax),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Shorten titles to the essential query terms.",
			WhyItMatters: "Truncated titles lose their call to action in the results page.",
		})
	}
	if urls := gather(func(p extract.PageSignals) bool {
		return p.Title != "" && p.TitleLength < titleMin
	}); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeTitleTooShort, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d titles are under %d characters", len(urls), titleMin),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Expand titles with descriptive terms users actually search.",
			WhyItMatters: "Very short titles give both users and ranking systems little to work with.",
		})
	}

	if urls := gather(func(p extract.PageSignals) bool { return p.MetaDescription == "" }); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMissingMetaDesc, Severity: finding.SeverityWarning,
			Priority: finding.PriorityMedium, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d pages have no meta description", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Write a unique description of 50–160 characters per page.",
			WhyItMatters: "Without a description the snippet is scraped from arbitrary page text.",
		})
	}
	byDesc := map[string][]string{}
	for _, p := range pages {
		if p.MetaDescription != "" {
			byDesc[p.MetaDescription] = append(byDesc[p.MetaDescription], p.URL)
		}
	}
	var dupDescURLs []string
	for _, urls := range byDesc {
		if len(urls) > 1 {
			dupDescURLs = append(dupDescURLs, urls...)
		}
	}
	if len(dupDescURLs) > 0 {
		dupDescURLs = dedupe(dupDescURLs)
		sort.Strings(dupDescURLs)
		add(finding.Finding{
			Type: finding.TypeDuplicateMetaDesc, Severity: finding.SeverityWarning,
			Priority: finding.PriorityMedium, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d pages share a meta description", len(dupDescURLs)),
			Evidence:     finding.URLsEv(dupDescURLs),
			AffectedURLs: dupDescURLs,
			Fix:          "Differentiate descriptions per page.",
			WhyItMatters: "Duplicate snippets make result entries indistinguishable.",
		})
	}
	if urls := gather(func(p extract.PageSignals) bool {
		return len(p.MetaDescription) > metaDescMax
	}); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMetaDescTooLong, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d meta descriptions exceed %d characters", len(urls), metaDescMax),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Trim descriptions to 160 characters or fewer.",
			WhyItMatters: "Overlong descriptions are cut mid-sentence in results.",
		})
	}
	if urls := gather(func(p extract.PageSignals) bool {
		return p.MetaDescription != "" && len(p.MetaDescription) < metaDescMin
	}); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMetaDescTooShort, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d meta descriptions are under %d characters", len(urls), metaDescMin),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Expand thin descriptions into a full sentence with the page's value proposition.",
			WhyItMatters: "Short snippets waste the free ad space a description provides.",
		})
	}

	if urls := gather(func(p extract.PageSignals) bool { return p.H1Count == 0 }); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMissingH1, Severity: finding.SeverityWarning,
			Priority: finding.PriorityMedium, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d pages have no H1 heading", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Add a single H1 stating the page topic.",
			WhyItMatters: "The H1 anchors the document outline for assistive tech and crawlers alike.",
		})
	}
	if urls := gather(func(p extract.PageSignals) bool { return p.H1Count > 1 }); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMultipleH1, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d pages have more than one H1", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Demote secondary H1s to H2.",
			WhyItMatters: "Multiple H1s blur which heading states the page topic.",
		})
	}

	if urls := gather(func(p extract.PageSignals) bool { return p.Canonical == "" }); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMissingCanonical, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d pages declare no canonical URL", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Add a self-referencing rel=canonical to each indexable page.",
			WhyItMatters: "Canonicals guard against parameter and duplicate-content dilution.",
		})
	}
	if urls := gather(func(p extract.PageSignals) bool {
		return p.Canonical != "" && !p.CanonicalSelf
	}); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeCanonicalMismatch, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d pages canonicalize to a different URL", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Verify each cross-page canonical is intentional.",
			WhyItMatters: "A stray canonical silently deindexes the page carrying it.",
		})
	}

	if urls := gather(func(p extract.PageSignals) bool { return !p.HasViewport }); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMissingViewport, Severity: finding.SeverityWarning,
			Priority: finding.PriorityMedium, Category: finding.CategoryTechnical,
			Message:      fmt.Sprintf("%d pages lack a viewport meta tag", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          `Add <meta name="viewport" content="width=device-width, initial-scale=1">.`,
			WhyItMatters: "Without a viewport the page renders desktop-width on phones and fails mobile-friendliness checks.",
		})
	}
	if urls := gather(func(p extract.PageSignals) bool { return !p.HasLang }); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMissingLang, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategoryTechnical,
			Message:      fmt.Sprintf("%d pages have no lang attribute on <html>", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Declare the document language on the html element.",
			WhyItMatters: "Language detection drives regional serving and screen-reader pronunciation.",
		})
	}
	if urls := gather(func(p extract.PageSignals) bool { return !p.HasCharset }); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMissingCharset, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategoryTechnical,
			Message:      fmt.Sprintf("%d pages declare no character encoding", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          `Add <meta charset="utf-8"> as the first head element.`,
			WhyItMatters: "Browsers guess the encoding otherwise, which can garble non-ASCII text.",
		})
	}

	if urls := gather(func(p extract.PageSignals) bool { return p.MixedContent }); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeMixedContent, Severity: finding.SeverityWarning,
			Priority: finding.PriorityHigh, Category: finding.CategoryTechnical,
			Message:      fmt.Sprintf("%d pages load subresources over plain http", len(urls)),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Serve all scripts, images, and frames over https.",
			WhyItMatters: "Browsers block or downgrade mixed content and flag the page as not secure.",
		})
	}

	var altURLs []string
	var missingAlt int
	for _, p := range pages {
		n := 0
		for _, img := range p.Images {
			if strings.TrimSpace(img.Alt) == "" {
				n++
			}
		}
		if n > 0 {
			missingAlt += n
			altURLs = append(altURLs, p.URL)
		}
	}
	if missingAlt > 0 {
		add(finding.Finding{
			Type: finding.TypeImagesMissingAlt, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategoryContent,
			Message:      fmt.Sprintf("%d images across %d pages have no alt text", missingAlt, len(altURLs)),
			Evidence:     finding.URLsEv(altURLs),
			AffectedURLs: altURLs,
			Fix:          "Describe meaningful images in their alt attribute; leave decorative ones empty intentionally.",
			WhyItMatters: "Alt text is the only image signal for screen readers and image search.",
		})
	}

	if urls := gather(func(p extract.PageSignals) bool {
		return p.WordCount > 0 && p.WordCount < thinWords
	}); len(urls) > 0 {
		add(finding.Finding{
			Type: finding.TypeThinContent, Severity: finding.SeverityWarning,
			Priority: finding.PriorityMedium, Category: finding.CategoryContent,
			Message:      fmt.Sprintf("%d pages carry under %d words of content", len(urls), thinWords),
			Evidence:     finding.URLsEv(urls),
			AffectedURLs: urls,
			Fix:          "Expand thin pages with substantive content or fold them into stronger ones.",
			WhyItMatters: "Thin pages struggle to rank and drag down site-level quality assessments.",
		})
	}

	var anySchema bool
	var invalidURLs []string
	for _, p := range pages {
		for _, s := range p.Schema {
			anySchema = true
			if !s.Valid {
				invalidURLs = append(invalidURLs, p.URL)
				break
			}
		}
	}
	if !anySchema {
		add(finding.Finding{
			Type: finding.TypeMissingSchema, Severity: finding.SeverityInfo,
			Priority: finding.PriorityLow, Category: finding.CategorySEO,
			Message:      "No structured data found on any sampled page",
			Evidence:     finding.ExtraEv(map[string]string{"sampled": fmt.Sprintf("%d", len(pages))}),
			Fix:          "Add JSON-LD for the organization and key page types.",
			WhyItMatters: "Structured data unlocks rich results the plain listing cannot get.",
		})
	}
	if len(invalidURLs) > 0 {
		add(finding.Finding{
			Type: finding.TypeInvalidSchema, Severity: finding.SeverityWarning,
			Priority: finding.PriorityMedium, Category: finding.CategorySEO,
			Message:      fmt.Sprintf("%d pages carry JSON-LD that fails to parse", len(invalidURLs)),
			Evidence:     finding.URLsEv(invalidURLs),
			AffectedURLs: invalidURLs,
			Fix:          "Validate the JSON-LD blocks and fix the syntax errors.",
			WhyItMatters: "Broken structured data is ignored wholesale, losing its rich-result eligibility.",
		})
	}

	return res
}

// livePages filters samples down to pages that actually rendered.
func livePages(snap *extract.SiteSnapshot) []extract.PageSignals {
	var out []extract.PageSignals
	for _, p := range snap.Pages {
		if p.Status >= 200 && p.Status < 400 && (p.Title != "" || p.WordCount > 0 || p.H1Count > 0 || p.HasViewport) {
			out = append(out, p)
		}
	}
	return out
}
