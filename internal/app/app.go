// Package app threads the four audit layers together: collection,
// extraction, micro-audits, and synthesis, with progress events,
// per-stage caching, and cancellation.
package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/siteaudit/siteaudit/internal/apperr"
	"github.com/siteaudit/siteaudit/internal/audit"
	"github.com/siteaudit/siteaudit/internal/cache"
	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/events"
	"github.com/siteaudit/siteaudit/internal/extract"
	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/finding"
	"github.com/siteaudit/siteaudit/internal/identity"
	"github.com/siteaudit/siteaudit/internal/lighthouse"
	"github.com/siteaudit/siteaudit/internal/limit"
	"github.com/siteaudit/siteaudit/internal/llmaudit"
	"github.com/siteaudit/siteaudit/internal/merge"
	"github.com/siteaudit/siteaudit/internal/provider"
	"github.com/siteaudit/siteaudit/internal/report"
	"github.com/siteaudit/siteaudit/internal/score"
	"github.com/siteaudit/siteaudit/internal/screenshot"
	"github.com/siteaudit/siteaudit/internal/serp"
	"github.com/siteaudit/siteaudit/internal/synth"
)

// App owns the process-scoped pieces: the provider registry, the cache
// store, and the probe dependencies. Runs share these; everything else
// is per-run.
type App struct {
	cfg      Config
	registry *provider.Registry
	store    cache.Store
	deps     collect.Deps
}

// New wires the application from config. Providers with missing keys are
// simply not registered; the audits that need them degrade softly.
func New(ctx context.Context, cfg Config) (*App, error) {
	providers := map[provider.Name]provider.Provider{}
	if cfg.OpenAI.APIKey != "" {
		providers[provider.OpenAI] = provider.NewOpenAIProvider(cfg.OpenAI.APIKey)
	}
	if cfg.Gemini.APIKey != "" {
		p, err := provider.NewGeminiProvider(ctx, cfg.Gemini.APIKey)
		if err != nil {
			log.Warn().Err(err).Msg("gemini provider unavailable; continuing without it")
		} else {
			providers[provider.Gemini] = p
		}
	}
	registry := provider.NewRegistry(providers, provider.Limits{
		Gemini: cfg.Gemini.MaxConcurrent,
		OpenAI: cfg.OpenAI.MaxConcurrent,
	}, cfg.Assignments, nil)

	fetchClient := &fetch.Client{HTTPClient: newHighThroughputHTTPClient()}

	deps := collect.Deps{
		Fetch:      fetchClient,
		SampleSize: cfg.SampleSize(),
	}
	if cfg.VisualMode == VisualRendered || cfg.VisualMode == VisualBoth {
		if cfg.ScreenshotOneKey != "" {
			deps.Screens = &screenshot.ScreenshotOne{Fetch: fetchClient, APIKey: cfg.ScreenshotOneKey}
		} else {
			deps.Screens = &screenshot.RodBackend{}
		}
	}
	if cfg.PSIEnabled {
		deps.Lighthouse = &lighthouse.Client{Fetch: fetchClient, APIKey: cfg.PSIKey}
	}
	switch {
	case cfg.SerpAPIKey != "":
		deps.Serp = &serp.SerpAPI{Fetch: fetchClient, APIKey: cfg.SerpAPIKey}
	case cfg.DataForSEOLogin != "" && cfg.DataForSEOPassword != "":
		deps.Serp = &serp.DataForSEO{Fetch: fetchClient, Login: cfg.DataForSEOLogin, Password: cfg.DataForSEOPassword}
	}
	if cfg.SecurityScope == SecurityFull && cfg.EnableCodebasePeek {
		deps.SecurityTool = cfg.SecurityTool
	}

	store := cache.NewMemoryStore()
	store.StartSweeper(10 * time.Minute)

	return &App{cfg: cfg, registry: registry, store: store, deps: deps}, nil
}

// Close releases process-scoped resources.
func (a *App) Close() {
	if ms, ok := a.store.(*cache.MemoryStore); ok {
		ms.Close()
	}
	if rb, ok := a.deps.Screens.(*screenshot.RodBackend); ok {
		_ = rb.Close()
	}
}

// RunHandle is a started audit: drain Events, then Wait for the report.
type RunHandle struct {
	Events <-chan events.Event

	done   chan struct{}
	report *report.AuditReport
	err    error
}

// Wait blocks until the run finishes.
func (h *RunHandle) Wait() (*report.AuditReport, error) {
	<-h.done
	return h.report, h.err
}

// StartAudit validates input synchronously and launches the pipeline.
// Validation failures (invalid URL) return a typed error before any
// event is emitted.
func (a *App) StartAudit(ctx context.Context, rawURL, pdpURL string) (*RunHandle, error) {
	pdp := pdpURL
	if !a.cfg.EnablePDP {
		pdp = ""
	}
	id, err := identity.New(rawURL, pdp, a.cfg.ToolVersions, a.cfg.PromptVersions)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidURL, err.Error(), err)
	}

	sink := events.NewSink(1024)
	h := &RunHandle{Events: sink.Events(), done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer sink.Close()
		h.report, h.err = a.run(ctx, id, sink)
	}()
	return h, nil
}

// run executes the four layers. Collector and audit failures are soft;
// only programming faults (trapped panics) or cancellation abort the
// run.
func (a *App) run(ctx context.Context, id identity.Identity, sink *events.Sink) (rep *report.AuditReport, err error) {
	state := stateIdle
	defer func() {
		if r := recover(); r != nil {
			_ = state.advance(stateError)
			log.Error().Interface("panic", r).Msg("audit run panicked")
			sink.Emit(events.Event{Type: events.AuditError, Message: fmt.Sprintf("internal fault: %v", r)})
			rep, err = nil, fmt.Errorf("internal fault: %v", r)
		}
	}()

	_ = state.advance(stateStarting)
	runID := uuid.NewString()
	sink.Emit(events.Event{Type: events.AuditStart, Message: id.NormalizedURL, Data: map[string]string{"runId": runID}})

	var timings report.LayerTimings
	cacheKey := id.CacheKey()

	// Layer 1 — collection.
	if err := state.advance(stateLayer1); err != nil {
		return nil, err
	}
	sink.Emit(events.Event{Type: events.Layer1Start})
	l1Start := time.Now()
	var raw *collect.RawSnapshot
	if cached, ok := a.store.Get(ctx, cache.Key(cache.KindRawSnapshot, cacheKey, id.NormalizedURL)); ok {
		raw = cached.(*collect.RawSnapshot)
		log.Debug().Str("url", id.NormalizedURL).Msg("raw snapshot served from cache")
	} else {
		lim := limit.New(a.cfg.CollectorConcurrency)
		raw = collect.RunAll(ctx, a.deps, id, lim, sink)
		a.store.Set(ctx, cache.Key(cache.KindRawSnapshot, cacheKey, id.NormalizedURL), raw, cache.DefaultTTLs[cache.KindRawSnapshot])
	}
	timings.CollectionMs = time.Since(l1Start).Milliseconds()
	sink.Emit(events.Event{Type: events.Layer1Complete})
	if ctx.Err() != nil {
		return a.cancelled(ctx, sink, state)
	}

	// Layer 2 — extraction.
	if err := state.advance(stateLayer2); err != nil {
		return nil, err
	}
	sink.Emit(events.Event{Type: events.Layer2Start})
	l2Start := time.Now()
	var snap *extract.SiteSnapshot
	if cached, ok := a.store.Get(ctx, cache.Key(cache.KindSiteSnapshot, cacheKey, id.NormalizedURL)); ok {
		snap = cached.(*extract.SiteSnapshot)
	} else {
		snap = extract.Snapshot(raw)
		a.store.Set(ctx, cache.Key(cache.KindSiteSnapshot, cacheKey, id.NormalizedURL), snap, cache.DefaultTTLs[cache.KindSiteSnapshot])
	}
	timings.ExtractionMs = time.Since(l2Start).Milliseconds()
	sink.Emit(events.Event{Type: events.Layer2Complete})
	if ctx.Err() != nil {
		return a.cancelled(ctx, sink, state)
	}

	// Layer 3 — micro-audits.
	if err := state.advance(stateLayer3); err != nil {
		return nil, err
	}
	sink.Emit(events.Event{Type: events.Layer3Start})
	l3Start := time.Now()
	findings, privateFlags, gaps, completed, failed := a.runAudits(ctx, snap, raw, sink)
	timings.AuditsMs = time.Since(l3Start).Milliseconds()
	sink.Emit(events.Event{Type: events.Layer3Complete})
	if ctx.Err() != nil {
		return a.cancelled(ctx, sink, state)
	}

	// Collector failures join the acknowledged gaps.
	gaps = append(gaps, collectorGaps(raw)...)

	if len(privateFlags) > 0 {
		a.store.Set(ctx, cache.Key(cache.KindPrivateFlags, cacheKey, id.NormalizedURL), privateFlags, cache.DefaultTTLs[cache.KindPrivateFlags])
	}

	// Layer 4 — merge, score, synthesize.
	if err := state.advance(stateLayer4); err != nil {
		return nil, err
	}
	sink.Emit(events.Event{Type: events.Layer4Start})
	l4Start := time.Now()

	merged := merge.Merge(findings, a.cfg.Merge)
	scores := score.Compute(merged, score.Measured{
		Performance: snap.Perf.Score,
		Security:    snap.SiteWide.SecurityScore,
	}, a.cfg.Scoring)
	plan := score.Plan(merged, a.cfg.Scoring)

	syn := (&synth.Synthesizer{Registry: a.registry}).Synthesize(ctx, synth.Input{
		URL:      id.NormalizedURL,
		Scores:   scores,
		Findings: merged,
		Gaps:     gaps,
	})
	timings.SynthesisMs = time.Since(l4Start).Milliseconds()
	sink.Emit(events.Event{Type: events.Layer4Complete})
	if ctx.Err() != nil {
		return a.cancelled(ctx, sink, state)
	}

	rep = &report.AuditReport{
		Identity:            id,
		Scores:              scores,
		Findings:            merged,
		TopIssues:           syn.TopIssues,
		ActionPlan:          plan,
		ExecutiveSummary:    syn.ExecutiveSummary,
		ScoreJustifications: syn.ScoreJustifications,
		ExplicitGaps:        gaps,
		UsedSynthesis:       syn.UsedModel,
		Metadata: report.Metadata{
			RunID:           runID,
			Timings:         timings,
			TotalCostUSD:    a.registry.TotalCost(),
			ProvidersUsed:   a.registry.ProvidersUsed(),
			CompletedAudits: completed,
			FailedAudits:    failed,
		},
	}
	a.store.Set(ctx, cache.Key(cache.KindPublicReport, cacheKey, id.NormalizedURL), rep, cache.DefaultTTLs[cache.KindPublicReport])

	if err := state.advance(stateComplete); err != nil {
		return nil, err
	}
	sink.Emit(events.Event{Type: events.AuditComplete, Data: rep})
	return rep, nil
}

// runAudits executes the deterministic audits synchronously and the LLM
// audits in parallel under the provider semaphores.
func (a *App) runAudits(ctx context.Context, snap *extract.SiteSnapshot, raw *collect.RawSnapshot, sink *events.Sink) (
	findings []finding.Finding, private []finding.PrivateFlag, gaps []string, completed, failed []string,
) {
	emitAudit := func(name, status string) {
		sink.Emit(events.Event{Type: events.Layer3Audit, Audit: name, Status: status})
	}
	emitFindings := func(name string, fs []finding.Finding) {
		for _, f := range fs {
			sink.Emit(events.Event{Type: events.Layer3Finding, Audit: name, Finding: f})
		}
	}

	// Deterministic audits: microseconds of CPU, run in name order.
	catalog := audit.All()
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		emitAudit(name, events.StatusStarted)
		res := catalog[name](snap, raw)
		findings = append(findings, res.Findings...)
		private = append(private, res.Private...)
		gaps = append(gaps, res.Gaps...)
		completed = append(completed, name)
		emitFindings(name, res.Findings)
		emitAudit(name, events.StatusCompleted)
	}

	// LLM audits in parallel; the registry's semaphores bound them.
	type llmResult struct {
		name     string
		findings []finding.Finding
		gaps     []string
	}
	var wg sync.WaitGroup
	results := make(chan llmResult, 2)

	wantVisual := a.cfg.VisualMode != VisualNone
	if wantVisual {
		wg.Add(1)
		emitAudit(llmaudit.SourceVisual, events.StatusStarted)
		go func() {
			defer wg.Done()
			fs, gs := llmaudit.Visual(ctx, a.registry, raw)
			results <- llmResult{llmaudit.SourceVisual, fs, gs}
		}()
	}
	wg.Add(1)
	emitAudit(llmaudit.SourceSERP, events.StatusStarted)
	go func() {
		defer wg.Done()
		fs, gs := llmaudit.SERP(ctx, a.registry, snap, raw)
		results <- llmResult{llmaudit.SourceSERP, fs, gs}
	}()

	wg.Wait()
	close(results)
	for res := range results {
		findings = append(findings, res.findings...)
		gaps = append(gaps, res.gaps...)
		if len(res.gaps) > 0 {
			failed = append(failed, res.name)
			emitAudit(res.name, events.StatusFailed)
		} else {
			completed = append(completed, res.name)
			emitFindings(res.name, res.findings)
			emitAudit(res.name, events.StatusCompleted)
		}
	}
	sort.Strings(completed)
	sort.Strings(failed)
	return findings, private, gaps, completed, failed
}

// collectorGaps names every probe that produced no data.
func collectorGaps(raw *collect.RawSnapshot) []string {
	var gaps []string
	add := func(name, errMsg string, failed bool) {
		if failed {
			gaps = append(gaps, name+" collector failed: "+errMsg)
		}
	}
	add("rootFetch", raw.RootFetch.Err, raw.RootFetch.Failed())
	add("robotsTxt", raw.RobotsTxt.Err, raw.RobotsTxt.Failed())
	add("sitemaps", raw.Sitemaps.Err, raw.Sitemaps.Failed())
	add("urlSamplingPlan", raw.SamplingPlan.Err, raw.SamplingPlan.Failed())
	add("htmlSamples", raw.HTMLSamples.Err, raw.HTMLSamples.Failed())
	add("redirectMap", raw.RedirectMap.Err, raw.RedirectMap.Failed())
	add("dnsFacts", raw.DNSFacts.Err, raw.DNSFacts.Failed())
	add("tlsFacts", raw.TLSFacts.Err, raw.TLSFacts.Failed())
	add("wellKnown", raw.WellKnown.Err, raw.WellKnown.Failed())
	add("screenshots", raw.Screenshots.Err, raw.Screenshots.Failed())
	add("lighthouse", raw.Lighthouse.Err, raw.Lighthouse.Failed())
	add("serpRaw", raw.SerpRaw.Err, raw.SerpRaw.Failed())
	add("securityScan", raw.SecurityScan.Err, raw.SecurityScan.Failed())
	return gaps
}

// cancelled discards everything and produces no report.
func (a *App) cancelled(ctx context.Context, sink *events.Sink, state runState) (*report.AuditReport, error) {
	_ = state.advance(stateError)
	sink.Emit(events.Event{Type: events.AuditError, Message: "audit cancelled"})
	return nil, apperr.Wrap(apperr.Timeout, "audit cancelled", ctx.Err())
}
