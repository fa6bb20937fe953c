package extract

import (
	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/tristate"
)

// CWVRating classifies one Core Web Vital against its fixed thresholds.
type CWVRating string

const (
	RatingGood      CWVRating = "good"
	RatingNeedsWork CWVRating = "needs_improvement"
	RatingPoor      CWVRating = "poor"
)

// CWV thresholds (milliseconds except CLS, which is unitless).
const (
	LCPGoodMs = 2500
	LCPPoorMs = 4000
	CLSGood   = 0.1
	CLSPoor   = 0.25
	TBTGoodMs = 200
	TBTPoorMs = 600
)

// Metric is one measured vital with its classification.
type Metric struct {
	Value  float64   `json:"value"`
	Rating CWVRating `json:"rating"`
}

// PerfFacts are the extracted performance signals.
type PerfFacts struct {
	LCP   tristate.Value[Metric]
	CLS   tristate.Value[Metric]
	TBT   tristate.Value[Metric]
	FCP   tristate.Value[float64]
	TTFB  tristate.Value[float64]
	Score tristate.Value[float64]
	SEO   tristate.Value[float64]
}

// ExtractPerf classifies the Lighthouse vitals. A failed probe yields
// unknown for every metric, never absent.
func ExtractPerf(raw *collect.RawSnapshot) PerfFacts {
	if raw.Lighthouse.Data == nil {
		reason := "lighthouse probe failed"
		if raw.Lighthouse.Err != "" {
			reason = "lighthouse probe failed: " + raw.Lighthouse.Err
		}
		return PerfFacts{
			LCP:   tristate.Unknown[Metric](reason),
			CLS:   tristate.Unknown[Metric](reason),
			TBT:   tristate.Unknown[Metric](reason),
			FCP:   tristate.Unknown[float64](reason),
			TTFB:  tristate.Unknown[float64](reason),
			Score: tristate.Unknown[float64](reason),
			SEO:   tristate.Unknown[float64](reason),
		}
	}
	r := raw.Lighthouse.Data
	facts := PerfFacts{}

	facts.LCP = classify(r.Metrics.LCP, LCPGoodMs, LCPPoorMs)
	facts.CLS = classify(r.Metrics.CLS, CLSGood, CLSPoor)
	facts.TBT = classify(r.Metrics.TBT, TBTGoodMs, TBTPoorMs)
	facts.FCP = maybe(r.Metrics.FCP)
	facts.TTFB = maybe(r.Metrics.TTFB)
	facts.Score = maybe(r.Categories.Performance)
	facts.SEO = maybe(r.Categories.SEO)
	return facts
}

func classify(value, good, poor float64) tristate.Value[Metric] {
	if value < 0 {
		return tristate.Absent[Metric]()
	}
	m := Metric{Value: value}
	switch {
	case value < good:
		m.Rating = RatingGood
	case value >= poor:
		m.Rating = RatingPoor
	default:
		m.Rating = RatingNeedsWork
	}
	return tristate.Present(m)
}

func maybe(value float64) tristate.Value[float64] {
	if value < 0 {
		return tristate.Absent[float64]()
	}
	return tristate.Present(value)
}
