package collect

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/siteaudit/siteaudit/internal/events"
	"github.com/siteaudit/siteaudit/internal/identity"
	"github.com/siteaudit/siteaudit/internal/limit"
)

// RunAll fans the thirteen probes out under the run limiter and
// assembles the RawSnapshot. Independent probes run in parallel;
// sitemaps wait on robots, the sampling plan on sitemaps, html samples
// on the plan, and screenshots/lighthouse on the root fetch for the
// final URL. Probe failure is never fatal.
func RunAll(ctx context.Context, deps Deps, id identity.Identity, lim *limit.Limiter, sink *events.Sink) *RawSnapshot {
	raw := &RawSnapshot{Identity: id}

	emit := func(name, status, msg string) {
		sink.Emit(events.Event{
			Type:      events.Layer1Collector,
			Collector: name,
			Status:    status,
			Message:   msg,
		})
	}
	// run wraps one probe with limiter admission and progress events.
	// A non-nil after gate is waited on before taking a slot.
	run := func(name string, wg *sync.WaitGroup, after <-chan struct{}, probe func() string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if after != nil {
				select {
				case <-after:
				case <-ctx.Done():
					emit(name, events.StatusFailed, ctx.Err().Error())
					return
				}
			}
			emit(name, events.StatusStarted, "")
			var errMsg string
			if err := lim.Do(ctx, func() { errMsg = probe() }); err != nil {
				errMsg = err.Error()
			}
			if errMsg != "" {
				log.Debug().Str("collector", name).Str("error", errMsg).Msg("collector failed")
				emit(name, events.StatusFailed, errMsg)
				return
			}
			emit(name, events.StatusCompleted, "")
		}()
	}

	// Stage one: probes with no data dependencies, plus the heads of the
	// two dependency chains.
	var stage sync.WaitGroup
	rootDone := make(chan struct{})
	robotsDone := make(chan struct{})

	run("rootFetch", &stage, nil, func() string {
		raw.RootFetch = CollectRoot(ctx, deps, id)
		close(rootDone)
		return raw.RootFetch.Err
	})
	run("robotsTxt", &stage, nil, func() string {
		raw.RobotsTxt = CollectRobots(ctx, deps, id)
		close(robotsDone)
		return raw.RobotsTxt.Err
	})
	run("redirectMap", &stage, nil, func() string {
		raw.RedirectMap = CollectRedirectMap(ctx, deps, id)
		return raw.RedirectMap.Err
	})
	run("dnsFacts", &stage, nil, func() string {
		raw.DNSFacts = CollectDNS(ctx, deps, id)
		return raw.DNSFacts.Err
	})
	run("tlsFacts", &stage, nil, func() string {
		raw.TLSFacts = CollectTLS(ctx, deps, id)
		return raw.TLSFacts.Err
	})
	run("wellKnown", &stage, nil, func() string {
		raw.WellKnown = CollectWellKnown(ctx, deps, id)
		return raw.WellKnown.Err
	})
	run("serpRaw", &stage, nil, func() string {
		raw.SerpRaw = CollectSERP(ctx, deps, id)
		return raw.SerpRaw.Err
	})
	run("securityScan", &stage, nil, func() string {
		raw.SecurityScan = CollectSecurityScan(ctx, deps, id)
		return raw.SecurityScan.Err
	})

	// Probes needing the final URL from the root fetch.
	run("screenshots", &stage, rootDone, func() string {
		raw.Screenshots = CollectScreenshots(ctx, deps, finalURL(raw, id))
		return raw.Screenshots.Err
	})
	run("lighthouse", &stage, rootDone, func() string {
		raw.Lighthouse = CollectLighthouse(ctx, deps, finalURL(raw, id))
		return raw.Lighthouse.Err
	})

	// The sitemap → plan → samples chain. Each stage takes its own
	// limiter admissions so no slot is held across stages.
	stage.Add(1)
	go func() {
		defer stage.Done()
		select {
		case <-robotsDone:
		case <-ctx.Done():
			for _, name := range []string{"sitemaps", "urlSamplingPlan", "htmlSamples"} {
				emit(name, events.StatusFailed, ctx.Err().Error())
			}
			return
		}

		emit("sitemaps", events.StatusStarted, "")
		var refs []string
		if raw.RobotsTxt.Data != nil {
			refs = raw.RobotsTxt.Data.SitemapRefs
		}
		if err := lim.Do(ctx, func() {
			raw.Sitemaps = CollectSitemaps(ctx, deps, id, refs)
		}); err != nil {
			raw.Sitemaps = Fail[Sitemaps](err.Error())
		}
		if raw.Sitemaps.Err != "" {
			emit("sitemaps", events.StatusFailed, raw.Sitemaps.Err)
		} else {
			emit("sitemaps", events.StatusCompleted, "")
		}

		var sitemapURLs []string
		if raw.Sitemaps.Data != nil {
			sitemapURLs = raw.Sitemaps.Data.URLs
		}
		emit("urlSamplingPlan", events.StatusStarted, "")
		raw.SamplingPlan = BuildSamplingPlan(deps, id, sitemapURLs)
		if raw.SamplingPlan.Err != "" {
			emit("urlSamplingPlan", events.StatusFailed, raw.SamplingPlan.Err)
		} else {
			emit("urlSamplingPlan", events.StatusCompleted, "")
		}

		emit("htmlSamples", events.StatusStarted, "")
		if raw.SamplingPlan.Data != nil {
			raw.HTMLSamples = CollectHTMLSamples(ctx, deps, lim, *raw.SamplingPlan.Data)
		} else {
			raw.HTMLSamples = Fail[HTMLSamples]("no sampling plan")
		}
		if raw.HTMLSamples.Err != "" {
			emit("htmlSamples", events.StatusFailed, raw.HTMLSamples.Err)
		} else {
			emit("htmlSamples", events.StatusCompleted, "")
		}
	}()

	stage.Wait()
	return raw
}

func finalURL(raw *RawSnapshot, id identity.Identity) string {
	if raw.RootFetch.Data != nil && raw.RootFetch.Data.FinalURL != "" {
		return raw.RootFetch.Data.FinalURL
	}
	return id.NormalizedURL
}
