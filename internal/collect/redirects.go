package collect

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/identity"
)

const redirectProbeMaxHops = 10

// CollectRedirectMap probes the four root variants in parallel and
// records each chain. Individual probe failures stay inside the probe
// entry; the map itself only fails when every variant fails.
func CollectRedirectMap(ctx context.Context, deps Deps, id identity.Identity) (out Output[RedirectMap]) {
	defer guard(&out)

	host := strings.TrimPrefix(id.Host(), "www.")
	starts := []string{
		"http://" + host + "/",
		"https://" + host + "/",
		"http://www." + host + "/",
		"https://www." + host + "/",
	}

	probes := make([]RedirectProbe, len(starts))
	var wg sync.WaitGroup
	for i, start := range starts {
		wg.Add(1)
		go func(i int, start string) {
			defer wg.Done()
			probes[i] = runRedirectProbe(ctx, deps.Fetch, start)
		}(i, start)
	}
	wg.Wait()

	m := RedirectMap{
		HTTPRoot:  probes[0],
		HTTPSRoot: probes[1],
		HTTPWWW:   probes[2],
		HTTPSWWW:  probes[3],
	}
	if m.HTTPRoot.Err != "" && m.HTTPSRoot.Err != "" && m.HTTPWWW.Err != "" && m.HTTPSWWW.Err != "" {
		return Fail[RedirectMap]("all redirect probes failed: " + m.HTTPSRoot.Err)
	}
	return OK(m)
}

// runRedirectProbe walks hops one request at a time so the chain
// survives loops and hop-cap breaches; those set Err with the partial
// chain kept.
func runRedirectProbe(ctx context.Context, client *fetch.Client, start string) RedirectProbe {
	p := RedirectProbe{StartURL: start}
	current := start
	visited := map[string]int{}

	for hops := 0; hops <= redirectProbeMaxHops; hops++ {
		resp, err := client.Do(ctx, current, fetch.Options{
			Timeout: TimeoutRoot,
			// Only chains matter here; keep bodies tiny.
			MaxBytes: 64 << 10,
		})
		if err != nil {
			p.Err = err.Error()
			return p
		}
		if resp.Status < 300 || resp.Status >= 400 {
			p.FinalURL = current
			p.Status = resp.Status
			return p
		}
		p.Chain = append(p.Chain, fetch.Hop{URL: current, Status: resp.Status})
		if visited[current] > 0 {
			p.Err = "redirect loop detected"
			return p
		}
		visited[current]++
		loc := resp.Headers["location"]
		if loc == "" {
			p.Err = "redirect without Location header"
			return p
		}
		next, err := resolveRef(current, loc)
		if err != nil {
			p.Err = err.Error()
			return p
		}
		current = next
	}
	p.Err = "Exceeded maximum redirect hops"
	return p
}

func resolveRef(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	r, err := b.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	return r.String(), nil
}
