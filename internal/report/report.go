// Package report defines the terminal artifact of an audit run. The
// report type deliberately has no way to reference private flags.
package report

import (
	"github.com/siteaudit/siteaudit/internal/identity"
	"github.com/siteaudit/siteaudit/internal/merge"
	"github.com/siteaudit/siteaudit/internal/score"
)

// LayerTimings record wall-clock milliseconds per pipeline layer.
type LayerTimings struct {
	CollectionMs int64 `json:"collectionMs"`
	ExtractionMs int64 `json:"extractionMs"`
	AuditsMs     int64 `json:"auditsMs"`
	SynthesisMs  int64 `json:"synthesisMs"`
}

// Metadata carries run accounting.
type Metadata struct {
	RunID           string       `json:"runId"`
	Timings         LayerTimings `json:"timings"`
	TotalCostUSD    float64      `json:"totalCostUsd"`
	ProvidersUsed   []string     `json:"providersUsed"`
	CompletedAudits []string     `json:"completedAudits"`
	FailedAudits    []string     `json:"failedAudits,omitempty"`
}

// AuditReport is the public result of one run.
type AuditReport struct {
	Identity            identity.Identity     `json:"identity"`
	Scores              score.Scores          `json:"scores"`
	Findings            []merge.MergedFinding `json:"findings"`
	TopIssues           []string              `json:"topIssues"`
	ActionPlan          score.ActionPlan      `json:"actionPlan"`
	ExecutiveSummary    string                `json:"executiveSummary"`
	ScoreJustifications map[string]string     `json:"scoreJustifications,omitempty"`
	ExplicitGaps        []string              `json:"explicitGaps,omitempty"`
	UsedSynthesis       bool                  `json:"usedSynthesis"`
	Metadata            Metadata              `json:"metadata"`
}
