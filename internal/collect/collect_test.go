package collect

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/siteaudit/siteaudit/internal/events"
	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/identity"
	"github.com/siteaudit/siteaudit/internal/limit"
)

func idFor(t *testing.T, raw string) identity.Identity {
	t.Helper()
	id, err := identity.New(raw, "", "v1", "v1")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	return id
}

func TestParseRobots(t *testing.T) {
	body := `# comment
User-agent: *
Disallow: /admin
SITEMAP: https://example.com/sitemap.xml
Sitemap: https://example.com/news.xml

User-agent: badbot
Disallow: /
`
	r := parseRobots(body)
	if len(r.SitemapRefs) != 2 {
		t.Fatalf("sitemap refs: %v", r.SitemapRefs)
	}
	if r.DisallowAll {
		t.Fatal("star group does not disallow all")
	}

	blocked := parseRobots("User-agent: *\nDisallow: /\n")
	if !blocked.DisallowAll {
		t.Fatal("blanket disallow missed")
	}
}

func TestCollectRobots_404IsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	out := CollectRobots(context.Background(), Deps{Fetch: &fetch.Client{}}, idFor(t, srv.URL))
	if out.Failed() {
		t.Fatalf("404 is a soft answer, not a probe failure: %s", out.Err)
	}
	if out.Data.Found {
		t.Fatal("robots should be reported missing")
	}
}

func TestCollectSitemaps_IndexAndGzip(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + srv.URL + `/pages.xml.gz</loc></sitemap>
</sitemapindex>`))
	})
	mux.HandleFunc("/pages.xml.gz", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>` + srv.URL + `/a</loc></url>
  <url><loc>` + srv.URL + `/b</loc></url>
</urlset>`))
		_ = zw.Close()
		_, _ = w.Write(buf.Bytes())
	})

	out := CollectSitemaps(context.Background(), Deps{Fetch: &fetch.Client{}}, idFor(t, srv.URL), nil)
	if out.Failed() {
		t.Fatalf("sitemaps: %s", out.Err)
	}
	if len(out.Data.URLs) != 2 {
		t.Fatalf("urls: %v", out.Data.URLs)
	}
}

func TestCollectSitemaps_CapsExtraction(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
		for i := 0; i < 20; i++ {
			b.WriteString("<url><loc>" + srv.URL + "/p" + strings.Repeat("x", i+1) + "</loc></url>")
		}
		b.WriteString("</urlset>")
		_, _ = w.Write([]byte(b.String()))
	})

	out := CollectSitemaps(context.Background(), Deps{Fetch: &fetch.Client{}, MaxSitemapURLs: 5}, idFor(t, srv.URL), nil)
	if out.Failed() {
		t.Fatalf("sitemaps: %s", out.Err)
	}
	if len(out.Data.URLs) != 5 || !out.Data.Truncated {
		t.Fatalf("cap not applied: %d urls, truncated=%v", len(out.Data.URLs), out.Data.Truncated)
	}
}

func TestBuildSamplingPlan_FirstNGrouped(t *testing.T) {
	id := idFor(t, "https://example.com/")
	var urls []string
	for _, u := range []string{
		"https://example.com/shop/a", "https://example.com/shop/b",
		"https://example.com/blog/1", "https://example.com/about",
	} {
		urls = append(urls, u)
	}
	out := BuildSamplingPlan(Deps{SampleSize: 3}, id, urls)
	if out.Failed() {
		t.Fatalf("plan: %s", out.Err)
	}
	plan := out.Data
	if len(plan.Samples) != 3 {
		t.Fatalf("sample size: %v", plan.Samples)
	}
	if plan.Samples[0] != id.NormalizedURL {
		t.Fatal("root must always be sampled first")
	}
	if len(plan.Groups["shop"]) == 0 {
		t.Fatalf("grouping by first segment: %v", plan.Groups)
	}
}

func TestCollectHTMLSamples_PerSampleFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			http.Error(w, "boom", 500)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	plan := SamplingPlan{Samples: []string{srv.URL + "/", srv.URL + "/bad"}}
	out := CollectHTMLSamples(context.Background(), Deps{Fetch: &fetch.Client{}}, limit.New(2), plan)
	if out.Failed() {
		t.Fatalf("samples: %s", out.Err)
	}
	if len(out.Data.Pages) != 2 {
		t.Fatalf("pages: %d", len(out.Data.Pages))
	}
	if !out.Data.Pages[0].IsHTML || out.Data.Pages[0].Body == "" {
		t.Fatal("html body must be retained")
	}
	if out.Data.Pages[1].Status != 500 {
		t.Fatalf("status: %d", out.Data.Pages[1].Status)
	}
}

func TestRunRedirectProbe_LoopKeepsChain(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/b", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/a", http.StatusMovedPermanently)
	})

	p := runRedirectProbe(context.Background(), &fetch.Client{}, srv.URL+"/a")
	if p.Err == "" || !strings.Contains(p.Err, "loop") {
		t.Fatalf("expected loop error, got %q", p.Err)
	}
	if len(p.Chain) < 3 {
		t.Fatalf("chain must survive the loop: %+v", p.Chain)
	}
	if p.Chain[0].URL != p.Chain[2].URL {
		t.Fatalf("loop entry should repeat: %+v", p.Chain)
	}
}

func TestCollectSecurityScan_MissingToolIsSoft(t *testing.T) {
	out := CollectSecurityScan(context.Background(), Deps{SecurityTool: "definitely-not-a-real-binary-xyz"}, idFor(t, "https://example.com/"))
	if !out.Failed() {
		t.Fatal("missing binary should be a soft failure")
	}
	if !strings.Contains(out.Err, "not found") {
		t.Fatalf("err: %s", out.Err)
	}
}

func TestRunAll_EmitsBalancedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>t</title></head><body></body></html>"))
	}))
	defer srv.Close()

	sink := events.NewSink(512)
	raw := RunAll(context.Background(), Deps{Fetch: &fetch.Client{}}, idFor(t, srv.URL), limit.New(4), sink)
	sink.Close()

	if raw.RootFetch.Failed() {
		t.Fatalf("root fetch: %s", raw.RootFetch.Err)
	}
	open := map[string]int{}
	for ev := range sink.Events() {
		if ev.Type != events.Layer1Collector {
			continue
		}
		switch ev.Status {
		case events.StatusStarted:
			open[ev.Collector]++
		case events.StatusCompleted, events.StatusFailed:
			open[ev.Collector]--
		}
	}
	for name, n := range open {
		if n != 0 {
			t.Errorf("collector %s unbalanced by %d", name, n)
		}
	}
	if len(open) < 10 {
		t.Errorf("expected events for all probes, saw %d", len(open))
	}
}
