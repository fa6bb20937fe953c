package llmaudit

import (
	"context"
	"fmt"
	"time"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/finding"
	"github.com/siteaudit/siteaudit/internal/provider"
)

const visualTimeout = 30 * time.Second

const visualSystemInstruction = `You are a senior UX and conversion reviewer examining website screenshots.
Assess layout, visual hierarchy, readability, trust signals, and mobile rendering.
Respond with strict JSON only: {"findings":[{"category":"design|conversion|content","severity":"critical|warning|info","description":"...","recommendation":"...","whyItMatters":"..."}]}.
Report at most 8 findings. An empty list is a valid answer for a clean page.`

// Visual sends the desktop and mobile captures to a vision-capable
// provider and maps the envelope back to findings. A hard 30s deadline
// bounds the whole audit.
func Visual(ctx context.Context, reg *provider.Registry, raw *collect.RawSnapshot) ([]finding.Finding, []string) {
	if raw.Screenshots.Data == nil {
		return nil, []string{"visual audit skipped: " + raw.Screenshots.Err}
	}
	shots := raw.Screenshots.Data
	var images []string
	if shots.Desktop != "" {
		images = append(images, shots.Desktop)
	}
	if shots.Mobile != "" {
		images = append(images, shots.Mobile)
	}
	if len(images) == 0 {
		return nil, []string{"visual audit skipped: no captures available"}
	}

	ctx, cancel := context.WithTimeout(ctx, visualTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Review these screenshots of %s. The first image is the 1920x1080 desktop viewport%s.",
		raw.Identity.NormalizedURL,
		map[bool]string{true: ", the second the 390x844 mobile viewport", false: ""}[len(images) == 2],
	)
	resp, err := reg.Generate(ctx, provider.Call{
		Kind: provider.AuditVisual,
		Mode: provider.ModeVision,
		Request: provider.Request{
			Prompt:            prompt,
			SystemInstruction: visualSystemInstruction,
			Images:            images,
			Temperature:       0.2,
			MaxTokens:         2048,
			Timeout:           visualTimeout,
			JSONOnly:          true,
		},
	})
	if err != nil {
		return nil, []string{"visual audit failed: " + err.Error()}
	}

	var out []finding.Finding
	for _, ef := range parseEnvelope(resp.Text, SourceVisual) {
		if ef.Description == "" {
			continue
		}
		sev := severityOf(ef.Severity)
		out = append(out, finding.New(finding.Finding{
			Type:         finding.TypeVisualIssue,
			Severity:     sev,
			Priority:     priorityOf(sev),
			Category:     categoryOf(ef.Category, finding.CategoryDesign),
			Message:      ef.Description,
			Evidence:     finding.TextEv("observed on " + shots.Backend + " captures"),
			Source:       SourceVisual,
			Fix:          ef.Recommendation,
			WhyItMatters: ef.WhyItMatters,
		}))
	}
	return out, nil
}
