// Package finding defines the atomic unit audits emit, plus the private
// flag variant that must never reach public output.
package finding

import "github.com/google/uuid"

// Severity of a single finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityPass     Severity = "pass"
)

// Priority drives action-plan bucketing and scoring deductions.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Category groups findings for scoring.
type Category string

const (
	CategorySEO        Category = "seo"
	CategoryTechnical  Category = "technical"
	CategoryContent    Category = "content"
	CategoryDesign     Category = "design"
	CategoryConversion Category = "conversion"
	CategorySecurity   Category = "security"
)

// Finding is the public atomic audit result.
type Finding struct {
	ID           string   `json:"id"`
	Type         Type     `json:"type"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Evidence     Evidence `json:"evidence"`
	AffectedURLs []string `json:"affectedUrls,omitempty"`
	Priority     Priority `json:"priority"`
	Category     Category `json:"category"`
	Source       string   `json:"source"`
	Fix          string   `json:"fix,omitempty"`
	WhyItMatters string   `json:"whyItMatters,omitempty"`
}

// New assigns an id and returns the finding; audits fill the rest.
func New(f Finding) Finding {
	if f.ID == "" {
		f.ID = "f-" + uuid.NewString()
	}
	return f
}

// PrivateFlag records sensitive observations (exposed secrets, internal
// hostnames, stack traces, source maps). It deliberately shares no type,
// supertype, or id space with Finding and there is no conversion between
// the two.
type PrivateFlag struct {
	FlagID   string `json:"flagId"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Context  string `json:"context,omitempty"`
	Observed string `json:"observed,omitempty"`
}

// NewPrivateFlag assigns a flag id in the private ("pf-") id space.
func NewPrivateFlag(kind, message, context string) PrivateFlag {
	return PrivateFlag{
		FlagID:  "pf-" + uuid.NewString(),
		Kind:    kind,
		Message: message,
		Context: context,
	}
}
