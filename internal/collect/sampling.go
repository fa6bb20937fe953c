package collect

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/identity"
	"github.com/siteaudit/siteaudit/internal/limit"
)

// BuildSamplingPlan takes the first N sitemap URLs grouped by first path
// segment. The root and PDP URLs are always included.
func BuildSamplingPlan(deps Deps, id identity.Identity, sitemapURLs []string) (out Output[SamplingPlan]) {
	defer guard(&out)

	n := deps.sampleSize()
	plan := SamplingPlan{Groups: map[string][]string{}}
	seen := map[string]struct{}{}
	add := func(u string) {
		if len(plan.Samples) >= n {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		plan.Samples = append(plan.Samples, u)
		seg := firstPathSegment(u)
		plan.Groups[seg] = append(plan.Groups[seg], u)
	}

	add(id.NormalizedURL)
	if id.PDPURL != "" {
		add(id.PDPURL)
	}
	for _, u := range sitemapURLs {
		add(u)
	}

	// Deterministic group listing for downstream consumers.
	for seg := range plan.Groups {
		sort.Strings(plan.Groups[seg])
	}
	return OK(plan)
}

func firstPathSegment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

// CollectHTMLSamples fetches every planned URL under the run limiter.
// Bodies are retained only for HTML responses; per-sample failures stay
// inside the sample.
func CollectHTMLSamples(ctx context.Context, deps Deps, lim *limit.Limiter, plan SamplingPlan) (out Output[HTMLSamples]) {
	defer guard(&out)

	samples := make([]PageSample, len(plan.Samples))
	var wg sync.WaitGroup
	for i, u := range plan.Samples {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			if err := lim.Do(ctx, func() {
				samples[i] = fetchSample(ctx, deps.Fetch, u)
			}); err != nil {
				samples[i] = PageSample{URL: u, Err: err.Error()}
			}
		}(i, u)
	}
	wg.Wait()
	return OK(HTMLSamples{Pages: samples})
}

func fetchSample(ctx context.Context, client *fetch.Client, u string) PageSample {
	s := PageSample{URL: u}
	resp, err := client.Do(ctx, u, fetch.Options{
		Timeout:         TimeoutHTMLSample,
		FollowRedirects: true,
	})
	if err != nil {
		s.Err = err.Error()
		return s
	}
	s.FinalURL = resp.FinalURL
	s.Status = resp.Status
	s.Headers = resp.Headers
	s.IsHTML = isHTMLContentType(resp.Headers["content-type"])
	if s.IsHTML {
		s.Body = resp.Body
	}
	return s
}
