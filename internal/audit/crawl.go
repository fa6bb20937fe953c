package audit

import (
	"fmt"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/extract"
	"github.com/siteaudit/siteaudit/internal/finding"
)

// Crawl checks reachability, robots, sitemaps, and redirect hygiene.
func Crawl(snap *extract.SiteSnapshot, raw *collect.RawSnapshot) Result {
	var res Result
	add := func(f finding.Finding) {
		f.Source = SourceCrawl
		res.Findings = append(res.Findings, finding.New(f))
	}

	if raw.RobotsTxt.Data != nil {
		r := raw.RobotsTxt.Data
		if !r.Found {
			add(finding.Finding{
				Type:         finding.TypeMissingRobots,
				Severity:     finding.SeverityWarning,
				Priority:     finding.PriorityMedium,
				Category:     finding.CategoryTechnical,
				Message:      "No robots.txt found",
				Evidence:     finding.HeaderEv("robots.txt", "404"),
				Fix:          "Publish a robots.txt at the site root declaring crawl rules and sitemap locations.",
				WhyItMatters: "Crawlers fall back to default behavior without robots.txt, and sitemap discovery suffers.",
			})
		} else if r.DisallowAll {
			add(finding.Finding{
				Type:         finding.TypeRobotsBlocksAll,
				Severity:     finding.SeverityCritical,
				Priority:     finding.PriorityCritical,
				Category:     finding.CategoryTechnical,
				Message:      "robots.txt disallows all crawling for every agent",
				Evidence:     finding.TextEv("User-agent: *\nDisallow: /"),
				Fix:          "Remove the blanket Disallow rule so search engines can index the site.",
				WhyItMatters: "A site-wide disallow removes the entire site from organic search.",
			})
		}
	} else {
		res.Gaps = append(res.Gaps, "robots.txt not checked: "+raw.RobotsTxt.Err)
	}

	if raw.Sitemaps.Failed() {
		add(finding.Finding{
			Type:         finding.TypeMissingSitemap,
			Severity:     finding.SeverityWarning,
			Priority:     finding.PriorityMedium,
			Category:     finding.CategoryTechnical,
			Message:      "No XML sitemap could be located",
			Evidence:     finding.TextEv(raw.Sitemaps.Err),
			Fix:          "Generate an XML sitemap and reference it from robots.txt.",
			WhyItMatters: "Sitemaps are the primary discovery channel for deep or recently changed pages.",
		})
	}

	infra := snap.SiteWide.Infra
	if len(infra.RedirectLoops) > 0 {
		add(finding.Finding{
			Type:         finding.TypeUnreachable,
			Severity:     finding.SeverityCritical,
			Priority:     finding.PriorityCritical,
			Category:     finding.CategoryTechnical,
			Message:      "Redirect loop makes the site unreachable for crawlers",
			Evidence:     finding.URLsEv(infra.RedirectLoops),
			AffectedURLs: infra.RedirectLoops,
			Fix:          "Break the redirect cycle so every entry URL resolves to a 200 response.",
			WhyItMatters: "Crawlers abandon looping URLs, dropping them and everything behind them from the index.",
		})
	} else if infra.RedirectChainHealth == extract.ChainWarning || infra.RedirectChainHealth == extract.ChainCritical {
		sev := finding.SeverityWarning
		prio := finding.PriorityMedium
		if infra.RedirectChainHealth == extract.ChainCritical {
			sev = finding.SeverityCritical
			prio = finding.PriorityCritical
		}
		add(finding.Finding{
			Type:         finding.TypeRedirectChainLong,
			Severity:     sev,
			Priority:     prio,
			Category:     finding.CategoryTechnical,
			Message:      fmt.Sprintf("Redirect chains reach %d hops before resolving", infra.LongestChain),
			Evidence:     finding.ThresholdEv("redirect_hops", float64(infra.LongestChain), 2, "hops"),
			Fix:          "Point every entry URL directly at its final destination with a single redirect.",
			WhyItMatters: "Each extra hop adds latency and dilutes link equity passed to the final URL.",
		})
	}

	if v, ok := infra.WWWConsistent.Get(); ok && !v {
		add(finding.Finding{
			Type:         finding.TypeWWWInconsistent,
			Severity:     finding.SeverityWarning,
			Priority:     finding.PriorityMedium,
			Category:     finding.CategoryTechnical,
			Message:      "www and apex hostnames resolve to different destinations",
			Evidence:     finding.ExtraEv(map[string]string{"check": "www-vs-apex final host"}),
			Fix:          "Redirect one hostname variant to the other permanently.",
			WhyItMatters: "Split hostnames fragment indexing signals across two duplicate sites.",
		})
	} else if infra.WWWConsistent.IsUnknown() {
		res.Gaps = append(res.Gaps, "www consistency not checked: "+infra.WWWConsistent.Reason())
	}

	var broken []string
	for _, p := range snap.Pages {
		broken = append(broken, p.Links.Broken...)
	}
	if len(broken) > 0 {
		broken = dedupe(broken)
		add(finding.Finding{
			Type:         finding.TypeBrokenLinks,
			Severity:     finding.SeverityWarning,
			Priority:     finding.PriorityHigh,
			Category:     finding.CategoryTechnical,
			Message:      fmt.Sprintf("%d internal links point at pages returning 404", len(broken)),
			Evidence:     finding.URLsEv(broken),
			AffectedURLs: broken,
			Fix:          "Update or remove links to the missing pages, or restore the pages.",
			WhyItMatters: "Broken internal links waste crawl budget and dead-end both users and bots.",
		})
	}

	if infra.IPv6.IsAbsent() {
		add(finding.Finding{
			Type:         finding.TypeNoIPv6,
			Severity:     finding.SeverityInfo,
			Priority:     finding.PriorityLow,
			Category:     finding.CategoryTechnical,
			Message:      "No AAAA records; the site is unreachable over IPv6",
			Evidence:     finding.HeaderEv("AAAA", ""),
			Fix:          "Publish AAAA records once the origin or CDN supports IPv6.",
			WhyItMatters: "IPv6-only networks reach the site through translation layers that add latency.",
		})
	}

	return res
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
