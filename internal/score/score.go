// Package score turns merged findings into category scores and the
// bucketed action plan. Scoring is arithmetic only: the synthesis model
// narrates scores but can never change them.
package score

import (
	"strings"

	"github.com/siteaudit/siteaudit/internal/finding"
	"github.com/siteaudit/siteaudit/internal/merge"
	"github.com/siteaudit/siteaudit/internal/tristate"
)

// Dimension names one scored axis of the report.
type Dimension string

const (
	DimTechnical   Dimension = "technical"
	DimOnPage      Dimension = "onPage"
	DimContent     Dimension = "content"
	DimPerformance Dimension = "performance"
	DimSecurity    Dimension = "security"
	DimVisual      Dimension = "visual"
)

// Scores is the complete score card.
type Scores struct {
	Overall     float64 `json:"overall"`
	Technical   float64 `json:"technical"`
	OnPage      float64 `json:"onPage"`
	Content     float64 `json:"content"`
	Performance float64 `json:"performance"`
	Security    float64 `json:"security"`
	Visual      float64 `json:"visual"`
}

// Deductions per priority; exposed as config with the stock defaults.
type Deductions struct {
	Critical float64
	High     float64
	Medium   float64
	Low      float64
}

// PlanCaps bound each action-plan bucket.
type PlanCaps struct {
	Immediate int
	ShortTerm int
	LongTerm  int
}

// Options carry the tuning knobs.
type Options struct {
	Deductions Deductions
	Caps       PlanCaps
}

// DefaultOptions returns the stock deductions (25/15/8/3) and caps
// (5/7/5).
func DefaultOptions() Options {
	return Options{
		Deductions: Deductions{Critical: 25, High: 15, Medium: 8, Low: 3},
		Caps:       PlanCaps{Immediate: 5, ShortTerm: 7, LongTerm: 5},
	}
}

var dimensionWeights = map[Dimension]float64{
	DimTechnical:   0.20,
	DimOnPage:      0.25,
	DimContent:     0.20,
	DimPerformance: 0.15,
	DimSecurity:    0.10,
	DimVisual:      0.10,
}

// DimensionOf routes a finding to its score axis: perf_* types to
// performance, then by category.
func DimensionOf(f finding.Finding) Dimension {
	if strings.HasPrefix(string(f.Type), "perf_") {
		return DimPerformance
	}
	switch f.Category {
	case finding.CategorySecurity:
		return DimSecurity
	case finding.CategorySEO:
		return DimOnPage
	case finding.CategoryContent:
		return DimContent
	case finding.CategoryDesign, finding.CategoryConversion:
		return DimVisual
	default:
		return DimTechnical
	}
}

// Measured carries the two externally measured numbers: the Lighthouse
// performance score and the header-derived security score.
type Measured struct {
	Performance tristate.Value[float64]
	Security    tristate.Value[float64]
}

// Compute derives all scores from the merged findings plus the two
// externally measured numbers: the Lighthouse performance score and the
// header-derived security posture. Measured values win over the
// deduction model for their dimension.
func Compute(findings []merge.MergedFinding, measured Measured, opts Options) Scores {
	if opts.Deductions == (Deductions{}) {
		opts = DefaultOptions()
	}
	byDim := map[Dimension]float64{
		DimTechnical: 100, DimOnPage: 100, DimContent: 100,
		DimPerformance: 100, DimSecurity: 100, DimVisual: 100,
	}
	for _, f := range findings {
		if f.Severity == finding.SeverityPass {
			continue
		}
		dim := DimensionOf(f.Finding)
		byDim[dim] -= deduction(f.Priority, opts.Deductions)
	}
	for dim, v := range byDim {
		byDim[dim] = clamp(v)
	}

	// Measured values replace the deduction model for their dimension:
	// Lighthouse's category score for performance, the header-analysis
	// score for security.
	if v, ok := measured.Performance.Get(); ok {
		byDim[DimPerformance] = clamp(v)
	}
	if v, ok := measured.Security.Get(); ok {
		byDim[DimSecurity] = clamp(v)
	}

	s := Scores{
		Technical:   byDim[DimTechnical],
		OnPage:      byDim[DimOnPage],
		Content:     byDim[DimContent],
		Performance: byDim[DimPerformance],
		Security:    byDim[DimSecurity],
		Visual:      byDim[DimVisual],
	}
	var overall float64
	for dim, weight := range dimensionWeights {
		overall += byDim[dim] * weight
	}
	s.Overall = clamp(overall)
	return s
}

func deduction(p finding.Priority, d Deductions) float64 {
	switch p {
	case finding.PriorityCritical:
		return d.Critical
	case finding.PriorityHigh:
		return d.High
	case finding.PriorityMedium:
		return d.Medium
	default:
		return d.Low
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ActionPlan buckets fix strings by urgency.
type ActionPlan struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"shortTerm"`
	LongTerm  []string `json:"longTerm"`
}

// Plan derives the action plan from merged findings, which arrive
// sorted by priority score. Critical priorities go first, high next,
// everything else fills the long tail, each bucket capped.
func Plan(findings []merge.MergedFinding, opts Options) ActionPlan {
	if opts.Caps == (PlanCaps{}) {
		opts = DefaultOptions()
	}
	var plan ActionPlan
	for _, f := range findings {
		fix := strings.TrimSpace(f.Fix)
		if fix == "" {
			continue
		}
		switch {
		case f.Priority == finding.PriorityCritical && len(plan.Immediate) < opts.Caps.Immediate:
			plan.Immediate = append(plan.Immediate, fix)
		case f.Priority == finding.PriorityHigh && len(plan.ShortTerm) < opts.Caps.ShortTerm:
			plan.ShortTerm = append(plan.ShortTerm, fix)
		case f.Priority != finding.PriorityCritical && f.Priority != finding.PriorityHigh && len(plan.LongTerm) < opts.Caps.LongTerm:
			plan.LongTerm = append(plan.LongTerm, fix)
		}
	}
	return plan
}
