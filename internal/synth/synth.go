// Package synth produces the executive narrative over the merged
// findings: one model call with a strict JSON contract, backed by a
// deterministic fallback that can never fail.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/siteaudit/siteaudit/internal/merge"
	"github.com/siteaudit/siteaudit/internal/provider"
	"github.com/siteaudit/siteaudit/internal/score"
)

const synthesisTimeout = 30 * time.Second

// topFindingsForPrompt caps how many merged findings the prompt carries.
const topFindingsForPrompt = 20

// Output is the structured synthesis result.
type Output struct {
	ExecutiveSummary    string            `json:"executiveSummary"`
	TopIssues           []string          `json:"topIssues"`
	NextSteps           []string          `json:"nextSteps"`
	ScoreJustifications map[string]string `json:"scoreJustifications"`
	// UsedModel is false when the deterministic fallback produced the
	// narrative.
	UsedModel bool `json:"-"`
}

// Input bundles everything the synthesis prompt receives.
type Input struct {
	URL      string
	Scores   score.Scores
	Findings []merge.MergedFinding
	Gaps     []string
}

const systemInstruction = `You are the lead auditor writing the executive section of a website audit.
Scores are final and computed elsewhere; narrate them, never contradict or restate different numbers.
Be specific and ground every statement in the findings provided. Acknowledge the listed measurement gaps.
Respond with strict JSON only:
{"executiveSummary":"...","topIssues":["..."],"nextSteps":["..."],"scoreJustifications":{"technical":"...","onPage":"...","content":"...","performance":"...","security":"...","visual":"..."}}`

// Synthesizer runs the single L4 model call through the registry, which
// handles the primary/fallback chain.
type Synthesizer struct {
	Registry *provider.Registry
}

// Synthesize narrates the audit. On any provider or parse failure it
// degrades to the deterministic fallback; this method never returns an
// error.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) Output {
	if s.Registry == nil {
		return Fallback(in)
	}
	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	resp, err := s.Registry.Generate(ctx, provider.Call{
		Kind: provider.AuditSynthesis,
		Mode: provider.ModeStructured,
		Request: provider.Request{
			Prompt:            buildUserMessage(in),
			SystemInstruction: systemInstruction,
			Temperature:       0.1,
			MaxTokens:         3072,
			Timeout:           synthesisTimeout,
			JSONOnly:          true,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("synthesis providers failed, using deterministic fallback")
		return Fallback(in)
	}

	var out Output
	cleaned := strings.TrimSpace(resp.Text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &out); err != nil || strings.TrimSpace(out.ExecutiveSummary) == "" {
		log.Warn().Err(err).Msg("synthesis output unparseable, using deterministic fallback")
		return Fallback(in)
	}
	out.UsedModel = true
	return out
}

func buildUserMessage(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s\n\nScores (0-100):\n", in.URL)
	fmt.Fprintf(&b, "- overall: %.0f\n- technical: %.0f\n- onPage: %.0f\n- content: %.0f\n- performance: %.0f\n- security: %.0f\n- visual: %.0f\n",
		in.Scores.Overall, in.Scores.Technical, in.Scores.OnPage, in.Scores.Content,
		in.Scores.Performance, in.Scores.Security, in.Scores.Visual)

	b.WriteString("\nTop findings (most severe first):\n")
	limit := len(in.Findings)
	if limit > topFindingsForPrompt {
		limit = topFindingsForPrompt
	}
	for i := 0; i < limit; i++ {
		f := in.Findings[i]
		fmt.Fprintf(&b, "%d. [%s/%s] %s (sources: %s; confidence: %s)\n",
			i+1, f.Priority, f.Category, f.Message, strings.Join(f.Sources, ","), f.Confidence)
		if ev := f.Evidence.Summary(); ev != "" {
			fmt.Fprintf(&b, "   evidence: %s\n", ev)
		}
	}
	if len(in.Gaps) > 0 {
		b.WriteString("\nMeasurement gaps this run acknowledges:\n")
		for _, g := range in.Gaps {
			fmt.Fprintf(&b, "- %s\n", g)
		}
	}
	b.WriteString("\nOutput only the JSON object.")
	return b.String()
}

// Fallback builds the narrative deterministically from findings alone.
// This path must never error out.
func Fallback(in Input) Output {
	counts := map[string]int{}
	for _, f := range in.Findings {
		counts[string(f.Priority)]++
	}

	worstDim, worstScore := worstDimension(in.Scores)
	var summary strings.Builder
	fmt.Fprintf(&summary, "The audit of %s surfaced %d findings", in.URL, len(in.Findings))
	if counts["critical"] > 0 {
		fmt.Fprintf(&summary, ", %d of them critical", counts["critical"])
	}
	fmt.Fprintf(&summary, ". Overall score is %.0f of 100; the weakest area is %s at %.0f.",
		in.Scores.Overall, worstDim, worstScore)
	if len(in.Gaps) > 0 {
		fmt.Fprintf(&summary, " %d checks could not be completed and are listed as gaps.", len(in.Gaps))
	}

	out := Output{
		ExecutiveSummary:    summary.String(),
		ScoreJustifications: map[string]string{},
	}
	limit := len(in.Findings)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		out.TopIssues = append(out.TopIssues, in.Findings[i].Message)
		if fix := strings.TrimSpace(in.Findings[i].Fix); fix != "" {
			out.NextSteps = append(out.NextSteps, fix)
		}
	}
	for dim, val := range map[string]float64{
		"technical": in.Scores.Technical, "onPage": in.Scores.OnPage,
		"content": in.Scores.Content, "performance": in.Scores.Performance,
		"security": in.Scores.Security, "visual": in.Scores.Visual,
	} {
		out.ScoreJustifications[dim] = fmt.Sprintf("Computed as %.0f by the arithmetic scoring model.", val)
	}
	return out
}

func worstDimension(s score.Scores) (string, float64) {
	dims := []struct {
		name string
		val  float64
	}{
		{"technical", s.Technical}, {"onPage", s.OnPage}, {"content", s.Content},
		{"performance", s.Performance}, {"security", s.Security}, {"visual", s.Visual},
	}
	sort.SliceStable(dims, func(i, j int) bool { return dims[i].val < dims[j].val })
	return dims[0].name, dims[0].val
}
