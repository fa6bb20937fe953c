// Package llmaudit holds the two model-backed micro-audits: the visual
// review of rendered screenshots and the SERP presence review. Both
// parse a strict JSON envelope; malformed output yields an empty finding
// list and a trace entry, never an error surfaced to the pipeline.
package llmaudit

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/siteaudit/siteaudit/internal/finding"
)

// Source names for the LLM audits.
const (
	SourceVisual = "visual-llm"
	SourceSERP   = "serp-llm"
)

// envelope is the JSON contract both prompts demand.
type envelope struct {
	Findings []envelopeFinding `json:"findings"`
}

type envelopeFinding struct {
	Category       string `json:"category"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
	WhyItMatters   string `json:"whyItMatters"`
}

// parseEnvelope decodes the model response leniently: code fences are
// stripped, anything unparseable is traced and dropped.
func parseEnvelope(raw, source string) []envelopeFinding {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var env envelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		log.Warn().Err(err).Str("audit", source).Msg("model returned malformed findings envelope")
		return nil
	}
	return env.Findings
}

func severityOf(s string) finding.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return finding.SeverityCritical
	case "warning", "high", "medium":
		return finding.SeverityWarning
	case "pass":
		return finding.SeverityPass
	default:
		return finding.SeverityInfo
	}
}

func priorityOf(sev finding.Severity) finding.Priority {
	switch sev {
	case finding.SeverityCritical:
		return finding.PriorityCritical
	case finding.SeverityWarning:
		return finding.PriorityMedium
	default:
		return finding.PriorityLow
	}
}

func categoryOf(s string, fallback finding.Category) finding.Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "seo":
		return finding.CategorySEO
	case "technical":
		return finding.CategoryTechnical
	case "content":
		return finding.CategoryContent
	case "design", "visual", "ux":
		return finding.CategoryDesign
	case "conversion":
		return finding.CategoryConversion
	case "security":
		return finding.CategorySecurity
	}
	return fallback
}
