// Package audit holds the deterministic micro-audits: pure rule catalogs
// over the site snapshot that emit at most one finding per detected
// pattern. Audits never raise; what they cannot check becomes a gap.
package audit

import (
	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/extract"
	"github.com/siteaudit/siteaudit/internal/finding"
)

// Source names for deterministic audits.
const (
	SourceCrawl       = "crawl"
	SourceTechnical   = "technical-seo"
	SourceSecurity    = "security"
	SourcePerformance = "performance"
)

// Result is one audit's output: public findings, private flags, and the
// measurement gaps the audit acknowledges.
type Result struct {
	Findings []finding.Finding
	Private  []finding.PrivateFlag
	Gaps     []string
}

// Func is the deterministic audit contract.
type Func func(snap *extract.SiteSnapshot, raw *collect.RawSnapshot) Result

// All returns the deterministic audit catalog keyed by source name. The
// map carries no order; the orchestrator runs the audits in sorted name
// order.
func All() map[string]Func {
	return map[string]Func{
		SourceCrawl:       Crawl,
		SourceTechnical:   Technical,
		SourceSecurity:    Security,
		SourcePerformance: Performance,
	}
}
