package app

import (
	"github.com/siteaudit/siteaudit/internal/merge"
	"github.com/siteaudit/siteaudit/internal/provider"
	"github.com/siteaudit/siteaudit/internal/score"
)

// CrawlDepth bounds how many URLs the sampler fetches.
type CrawlDepth string

const (
	DepthSurface CrawlDepth = "surface"
	DepthShallow CrawlDepth = "shallow"
	DepthDeep    CrawlDepth = "deep"
)

// VisualMode selects how the visual audit sees the page.
type VisualMode string

const (
	VisualURLContext VisualMode = "url_context"
	VisualRendered   VisualMode = "rendered"
	VisualBoth       VisualMode = "both"
	VisualNone       VisualMode = "none"
)

// SecurityScope selects header-only analysis or the full external scan.
type SecurityScope string

const (
	SecurityHeadersOnly SecurityScope = "headers_only"
	SecurityFull        SecurityScope = "full"
)

// ProviderConfig is per-provider concurrency plus credentials.
type ProviderConfig struct {
	APIKey        string `yaml:"apiKey"`
	MaxConcurrent int    `yaml:"maxConcurrent"`
}

// Config is the one value object carrying every tuning knob. It is
// constructed once per run and passed down; nothing in the pipeline
// reads global mutable state.
type Config struct {
	CrawlDepth        CrawlDepth    `yaml:"crawlDepth"`
	VisualMode        VisualMode    `yaml:"visualMode"`
	PSIEnabled        bool          `yaml:"psiEnabled"`
	SecurityScope     SecurityScope `yaml:"securityScope"`
	EnableCodebasePeek bool         `yaml:"enableCodebasePeek"`
	EnablePDP         bool          `yaml:"enablePdp"`

	Gemini ProviderConfig `yaml:"gemini"`
	OpenAI ProviderConfig `yaml:"openai"`

	ScreenshotOneKey   string `yaml:"screenshotOneKey"`
	SerpAPIKey         string `yaml:"serpApiKey"`
	DataForSEOLogin    string `yaml:"dataForSeoLogin"`
	DataForSEOPassword string `yaml:"dataForSeoPassword"`
	PSIKey             string `yaml:"psiKey"`

	// SecurityTool is the optional external scanner binary name.
	SecurityTool string `yaml:"securityTool"`

	// CollectorConcurrency is the per-run limiter width, capped at 6.
	CollectorConcurrency int `yaml:"collectorConcurrency"`

	// Tuning knobs surfaced from the merger and scorer.
	Merge   merge.Options `yaml:"-"`
	Scoring score.Options `yaml:"-"`

	// Version strings folded into the cache key.
	ToolVersions   string `yaml:"toolVersions"`
	PromptVersions string `yaml:"promptVersions"`

	// Assignments override the static audit→provider table when set.
	Assignments map[provider.AuditKind]provider.Assignment `yaml:"-"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		CrawlDepth:           DepthShallow,
		VisualMode:           VisualRendered,
		PSIEnabled:           true,
		SecurityScope:        SecurityHeadersOnly,
		Gemini:               ProviderConfig{MaxConcurrent: 4},
		OpenAI:               ProviderConfig{MaxConcurrent: 4},
		CollectorConcurrency: 6,
		Merge:                merge.DefaultOptions(),
		Scoring:              score.DefaultOptions(),
		ToolVersions:         "collect=1;extract=1;audit=1;merge=1;score=1",
		PromptVersions:       "visual=1;serp=1;synthesis=1",
	}
}

// SampleSize maps crawl depth to the sampling cap.
func (c Config) SampleSize() int {
	switch c.CrawlDepth {
	case DepthSurface:
		return 5
	case DepthDeep:
		return 150
	default:
		return 50
	}
}
