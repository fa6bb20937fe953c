// Package merge deduplicates findings across audits: near-duplicate
// messages from different sources collapse into one merged finding with
// combined provenance and a derived priority score.
package merge

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/siteaudit/siteaudit/internal/finding"
)

// Confidence grades how well-attested a merged finding is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MergedFinding is a finding plus its merge provenance.
type MergedFinding struct {
	finding.Finding
	Sources       []string   `json:"sources"`
	Confidence    Confidence `json:"confidence"`
	PriorityScore float64    `json:"priorityScore"`
}

// Options are the merge tuning knobs; the defaults mirror long-standing
// behavior and are deliberately configurable.
type Options struct {
	// Threshold is the Jaccard similarity two messages must reach.
	Threshold float64
	// KeyPhrases get a similarity boost when shared by both messages.
	KeyPhrases []string
	// KeyPhraseBoost is added once when a key phrase is shared.
	KeyPhraseBoost float64
	// StrongEvidenceChars is the evidence length that counts as
	// substantive.
	StrongEvidenceChars int
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		Threshold:      0.6,
		KeyPhraseBoost: 0.2,
		KeyPhrases: []string{
			"title", "description", "canonical", "h1", "lcp", "cls",
			"hsts", "redirect", "sitemap", "schema", "https", "alt",
		},
		StrongEvidenceChars: 20,
	}
}

// Merge wraps raw findings and clusters them. Only findings from
// different source audits may merge; one audit never merges with
// itself.
func Merge(fs []finding.Finding, opts Options) []MergedFinding {
	items := make([]MergedFinding, 0, len(fs))
	for _, f := range fs {
		items = append(items, MergedFinding{Finding: f, Sources: []string{f.Source}})
	}
	return Remerge(items, opts)
}

// Remerge clusters already-merged findings. Merge(Merge(F)) == Merge(F):
// representatives keep their message through merging, so a second pass
// makes the same similarity decisions and finds nothing left to join.
func Remerge(items []MergedFinding, opts Options) []MergedFinding {
	if opts.Threshold <= 0 {
		opts = DefaultOptions()
	}
	// Most severe first so the cluster representative is the entry we
	// want to keep.
	ordered := make([]MergedFinding, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityRank(ordered[i].Priority) > priorityRank(ordered[j].Priority)
	})

	var clusters []MergedFinding
	for _, item := range ordered {
		merged := false
		for i := range clusters {
			if canMerge(clusters[i], item, opts) {
				clusters[i] = join(clusters[i], item)
				merged = true
				break
			}
		}
		if !merged {
			clusters = append(clusters, item)
		}
	}

	for i := range clusters {
		score(&clusters[i], opts)
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].PriorityScore > clusters[j].PriorityScore
	})
	return clusters
}

func canMerge(a, b MergedFinding, opts Options) bool {
	if a.Category != b.Category {
		return false
	}
	if sharesSource(a.Sources, b.Sources) {
		return false
	}
	sim := similarity(a.Message, b.Message, opts)
	return sim >= opts.Threshold
}

// join keeps the representative (already the more severe entry) and
// absorbs the other's provenance.
func join(rep, other MergedFinding) MergedFinding {
	rep.Sources = append(rep.Sources, other.Sources...)
	sort.Strings(rep.Sources)
	rep.AffectedURLs = unionStrings(rep.AffectedURLs, other.AffectedURLs)
	if rep.Fix == "" {
		rep.Fix = other.Fix
	}
	if rep.WhyItMatters == "" {
		rep.WhyItMatters = other.WhyItMatters
	}
	if rep.Evidence.IsZero() {
		rep.Evidence = other.Evidence
	}
	return rep
}

func score(m *MergedFinding, opts Options) {
	mergedFrom := len(m.Sources) > 1
	strong := len(m.Evidence.Summary()) >= opts.StrongEvidenceChars

	switch {
	case mergedFrom && strong:
		m.Confidence = ConfidenceHigh
	case mergedFrom || strong:
		m.Confidence = ConfidenceMedium
	default:
		m.Confidence = ConfidenceLow
	}

	s := float64(priorityRank(m.Priority))
	if mergedFrom {
		s += 0.5
	}
	if strong {
		s += 0.3
	}
	if s > 5 {
		s = 5
	}
	m.PriorityScore = s
}

func priorityRank(p finding.Priority) int {
	switch p {
	case finding.PriorityCritical:
		return 5
	case finding.PriorityHigh:
		return 4
	case finding.PriorityMedium:
		return 3
	default:
		return 2
	}
}

var folder = cases.Fold()

// similarity is Jaccard over folded tokens plus a boost when both
// messages share a key phrase.
func similarity(a, b string, opts Options) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	sim := float64(inter) / float64(union)

	fa, fb := folder.String(a), folder.String(b)
	for _, phrase := range opts.KeyPhrases {
		if strings.Contains(fa, phrase) && strings.Contains(fb, phrase) {
			sim += opts.KeyPhraseBoost
			break
		}
	}
	if sim > 1 {
		sim = 1
	}
	return sim
}

func tokenize(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range strings.FieldsFunc(folder.String(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(tok) > 1 {
			out[tok] = struct{}{}
		}
	}
	return out
}

func sharesSource(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
