package audit

import (
	"fmt"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/extract"
	"github.com/siteaudit/siteaudit/internal/finding"
	"github.com/siteaudit/siteaudit/internal/tristate"
)

const (
	ttfbSlowMs    = 600
	lowScoreFloor = 50
)

// Performance turns the classified Core Web Vitals into findings.
func Performance(snap *extract.SiteSnapshot, raw *collect.RawSnapshot) Result {
	var res Result
	add := func(f finding.Finding) {
		f.Source = SourcePerformance
		res.Findings = append(res.Findings, finding.New(f))
	}
	perf := snap.Perf
	target := snap.Identity.NormalizedURL

	vitals := []struct {
		metric    string
		value     tristate.Value[extract.Metric]
		poorType  finding.Type
		needsType finding.Type
		threshold float64
		unit      string
		fix       string
		why       string
	}{
		{
			"largest-contentful-paint", perf.LCP,
			finding.TypePoorLCP, finding.TypeNeedsWorkLCP,
			extract.LCPGoodMs, "ms",
			"Preload the hero asset, trim render-blocking resources, and serve images in modern formats.",
			"LCP is the loading half of Core Web Vitals; poor values suppress rankings and conversions.",
		},
		{
			"cumulative-layout-shift", perf.CLS,
			finding.TypePoorCLS, finding.TypeNeedsWorkCLS,
			extract.CLSGood, "",
			"Reserve space for images, embeds, and ads so late content cannot push the layout.",
			"Layout shifts cause misclicks and are scored directly by Core Web Vitals.",
		},
		{
			"total-blocking-time", perf.TBT,
			finding.TypePoorFID, finding.TypeNeedsWorkFID,
			extract.TBTGoodMs, "ms",
			"Split long main-thread tasks and defer non-critical JavaScript.",
			"Main-thread blocking makes the page unresponsive to first input.",
		},
	}
	anyMeasured := false
	for _, v := range vitals {
		m, ok := v.value.Get()
		if !ok {
			if v.value.IsUnknown() {
				res.Gaps = append(res.Gaps, v.metric+" not measured: "+v.value.Reason())
			}
			continue
		}
		anyMeasured = true
		switch m.Rating {
		case extract.RatingPoor:
			add(finding.Finding{
				Type: v.poorType, Severity: finding.SeverityCritical,
				Priority: finding.PriorityCritical, Category: finding.CategoryTechnical,
				Message:      fmt.Sprintf("%s is %.2g%s, in the poor range", v.metric, m.Value, v.unit),
				Evidence:     finding.ThresholdEv(v.metric, m.Value, v.threshold, v.unit),
				AffectedURLs: []string{target},
				Fix:          v.fix,
				WhyItMatters: v.why,
			})
		case extract.RatingNeedsWork:
			add(finding.Finding{
				Type: v.needsType, Severity: finding.SeverityWarning,
				Priority: finding.PriorityMedium, Category: finding.CategoryTechnical,
				Message:      fmt.Sprintf("%s is %.2g%s, above the good threshold", v.metric, m.Value, v.unit),
				Evidence:     finding.ThresholdEv(v.metric, m.Value, v.threshold, v.unit),
				AffectedURLs: []string{target},
				Fix:          v.fix,
				WhyItMatters: v.why,
			})
		}
	}

	if ttfb, ok := perf.TTFB.Get(); ok && ttfb > ttfbSlowMs {
		add(finding.Finding{
			Type: finding.TypeSlowTTFB, Severity: finding.SeverityWarning,
			Priority: finding.PriorityMedium, Category: finding.CategoryTechnical,
			Message:      fmt.Sprintf("Server responds in %.0fms", ttfb),
			Evidence:     finding.ThresholdEv("server-response-time", ttfb, ttfbSlowMs, "ms"),
			AffectedURLs: []string{target},
			Fix:          "Cache rendered responses at the edge or speed up the origin.",
			WhyItMatters: "Every metric downstream of the first byte inherits a slow TTFB.",
		})
	}

	if score, ok := perf.Score.Get(); ok && score < lowScoreFloor {
		add(finding.Finding{
			Type: finding.TypeLowPerfScore, Severity: finding.SeverityWarning,
			Priority: finding.PriorityHigh, Category: finding.CategoryTechnical,
			Message:      fmt.Sprintf("Lighthouse performance score is %.0f of 100", score),
			Evidence:     finding.ThresholdEv("performance_score", score, lowScoreFloor, ""),
			AffectedURLs: []string{target},
			Fix:          "Work through the Lighthouse opportunities list, largest savings first.",
			WhyItMatters: "A failing performance score compounds across every visit and every vital.",
		})
	}

	if !anyMeasured && len(res.Gaps) == 0 && raw.Lighthouse.Failed() {
		res.Gaps = append(res.Gaps, "performance not measured: "+raw.Lighthouse.Err)
	}
	return res
}
