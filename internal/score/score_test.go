package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siteaudit/siteaudit/internal/finding"
	"github.com/siteaudit/siteaudit/internal/merge"
	"github.com/siteaudit/siteaudit/internal/tristate"
)

func mf(typ finding.Type, prio finding.Priority, cat finding.Category, fix string) merge.MergedFinding {
	return merge.MergedFinding{Finding: finding.Finding{
		Type: typ, Priority: prio, Category: cat, Fix: fix,
		Severity: finding.SeverityWarning, Message: string(typ),
	}}
}

func noMeasured() Measured {
	return Measured{
		Performance: tristate.Unknown[float64]("not measured"),
		Security:    tristate.Unknown[float64]("not measured"),
	}
}

func TestCompute_Deductions(t *testing.T) {
	findings := []merge.MergedFinding{
		mf(finding.TypeMissingHSTS, finding.PriorityCritical, finding.CategorySecurity, ""),
		mf(finding.TypeMissingTitle, finding.PriorityHigh, finding.CategorySEO, ""),
		mf(finding.TypeMissingH1, finding.PriorityMedium, finding.CategorySEO, ""),
	}
	s := Compute(findings, noMeasured(), DefaultOptions())
	assert.Equal(t, 75.0, s.Security, "one critical deducts 25")
	assert.Equal(t, 77.0, s.OnPage, "15 + 8 deducted")
	assert.Equal(t, 100.0, s.Content)
}

func TestCompute_MonotoneAndClamped(t *testing.T) {
	var findings []merge.MergedFinding
	prev := Compute(findings, noMeasured(), DefaultOptions())
	for i := 0; i < 10; i++ {
		findings = append(findings, mf(finding.TypeMissingHSTS, finding.PriorityCritical, finding.CategorySecurity, ""))
		next := Compute(findings, noMeasured(), DefaultOptions())
		assert.LessOrEqual(t, next.Security, prev.Security, "adding a critical never raises a score")
		assert.GreaterOrEqual(t, next.Security, 0.0)
		assert.LessOrEqual(t, next.Overall, prev.Overall)
		prev = next
	}
	assert.Equal(t, 0.0, prev.Security, "floor is 0")
}

func TestCompute_MeasuredPerformanceWins(t *testing.T) {
	findings := []merge.MergedFinding{
		mf(finding.TypePoorLCP, finding.PriorityHigh, finding.CategoryTechnical, ""),
		mf(finding.TypePoorCLS, finding.PriorityHigh, finding.CategoryTechnical, ""),
	}
	measured := noMeasured()
	measured.Performance = tristate.Present(23.0)
	s := Compute(findings, measured, DefaultOptions())
	assert.Equal(t, 23.0, s.Performance, "lighthouse category score wins when measured")

	s2 := Compute(findings, noMeasured(), DefaultOptions())
	assert.Equal(t, 70.0, s2.Performance, "deduction model applies otherwise")
}

func TestCompute_MeasuredSecurityWins(t *testing.T) {
	findings := []merge.MergedFinding{
		mf(finding.TypeMissingCSP, finding.PriorityHigh, finding.CategorySecurity, ""),
	}
	measured := noMeasured()
	measured.Security = tristate.Present(60.0)
	s := Compute(findings, measured, DefaultOptions())
	assert.Equal(t, 60.0, s.Security, "header-analysis score wins when measured")

	s2 := Compute(findings, noMeasured(), DefaultOptions())
	assert.Equal(t, 85.0, s2.Security, "deduction model applies otherwise")
}

// Three poor Core Web Vitals at critical priority and no measured
// Lighthouse category score must drive the deduction model to 25 or
// below.
func TestCompute_PoorVitalsDeductionFallback(t *testing.T) {
	findings := []merge.MergedFinding{
		mf(finding.TypePoorLCP, finding.PriorityCritical, finding.CategoryTechnical, ""),
		mf(finding.TypePoorCLS, finding.PriorityCritical, finding.CategoryTechnical, ""),
		mf(finding.TypePoorFID, finding.PriorityCritical, finding.CategoryTechnical, ""),
	}
	s := Compute(findings, noMeasured(), DefaultOptions())
	assert.LessOrEqual(t, s.Performance, 25.0)
}

func TestCompute_PerfTypesRouteToPerformance(t *testing.T) {
	findings := []merge.MergedFinding{
		mf(finding.TypePoorLCP, finding.PriorityHigh, finding.CategoryTechnical, ""),
	}
	s := Compute(findings, noMeasured(), DefaultOptions())
	assert.Equal(t, 85.0, s.Performance)
	assert.Equal(t, 100.0, s.Technical, "perf_ findings do not hit the technical axis")
}

func TestCompute_PassFindingsDoNotDeduct(t *testing.T) {
	f := mf(finding.TypeMissingCSP, finding.PriorityLow, finding.CategorySecurity, "")
	f.Severity = finding.SeverityPass
	s := Compute([]merge.MergedFinding{f}, noMeasured(), DefaultOptions())
	assert.Equal(t, 100.0, s.Security)
}

func TestCompute_OverallWeights(t *testing.T) {
	s := Compute(nil, noMeasured(), DefaultOptions())
	assert.Equal(t, 100.0, s.Overall)

	findings := []merge.MergedFinding{
		mf(finding.TypeMissingHSTS, finding.PriorityCritical, finding.CategorySecurity, ""),
	}
	s2 := Compute(findings, noMeasured(), DefaultOptions())
	// 25 off security at weight 0.10.
	assert.InDelta(t, 97.5, s2.Overall, 1e-9)
}

func TestPlan_BucketsAndCaps(t *testing.T) {
	var findings []merge.MergedFinding
	for i := 0; i < 8; i++ {
		findings = append(findings, mf(finding.TypeMissingHSTS, finding.PriorityCritical, finding.CategorySecurity, "fix critical"))
	}
	for i := 0; i < 9; i++ {
		findings = append(findings, mf(finding.TypeMissingTitle, finding.PriorityHigh, finding.CategorySEO, "fix high"))
	}
	for i := 0; i < 7; i++ {
		findings = append(findings, mf(finding.TypeMissingH1, finding.PriorityMedium, finding.CategorySEO, "fix medium"))
	}
	plan := Plan(findings, DefaultOptions())
	assert.Len(t, plan.Immediate, 5)
	assert.Len(t, plan.ShortTerm, 7)
	assert.Len(t, plan.LongTerm, 5)
}

func TestPlan_SkipsEmptyFixes(t *testing.T) {
	plan := Plan([]merge.MergedFinding{
		mf(finding.TypeMissingHSTS, finding.PriorityCritical, finding.CategorySecurity, ""),
	}, DefaultOptions())
	assert.Empty(t, plan.Immediate)
}
