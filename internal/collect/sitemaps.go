package collect

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/identity"
)

// commonSitemapPaths are tried in addition to robots.txt references.
var commonSitemapPaths = []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap-index.xml"}

// CollectSitemaps seeds from robots references plus common paths and
// walks sitemap indexes breadth-first, decompressing .gz entries.
// Extraction stops at the URL cap.
func CollectSitemaps(ctx context.Context, deps Deps, id identity.Identity, robotsRefs []string) (out Output[Sitemaps]) {
	defer guard(&out)

	seeds := make([]string, 0, len(robotsRefs)+len(commonSitemapPaths))
	seen := map[string]struct{}{}
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		seeds = append(seeds, u)
	}
	for _, r := range robotsRefs {
		add(r)
	}
	for _, p := range commonSitemapPaths {
		add(id.Origin() + p)
	}

	maxURLs := deps.maxSitemapURLs()
	result := Sitemaps{}
	urlSeen := map[string]struct{}{}
	queue := seeds
	visited := map[string]struct{}{}

	for len(queue) > 0 && len(result.URLs) < maxURLs {
		if ctx.Err() != nil {
			break
		}
		ref := queue[0]
		queue = queue[1:]
		if _, ok := visited[ref]; ok {
			continue
		}
		visited[ref] = struct{}{}

		body, err := fetchSitemap(ctx, deps.Fetch, ref)
		if err != nil {
			continue
		}
		result.Sources = append(result.Sources, ref)
		children, urls := parseSitemap(body)
		queue = append(queue, children...)
		for _, u := range urls {
			norm, err := identity.Normalize(u)
			if err != nil {
				continue
			}
			if _, ok := urlSeen[norm]; ok {
				continue
			}
			urlSeen[norm] = struct{}{}
			result.URLs = append(result.URLs, norm)
			if len(result.URLs) >= maxURLs {
				result.Truncated = true
				break
			}
		}
	}

	if len(result.Sources) == 0 {
		return Fail[Sitemaps]("no sitemap reachable")
	}
	return OK(result)
}

func fetchSitemap(ctx context.Context, client *fetch.Client, ref string) ([]byte, error) {
	resp, err := client.Do(ctx, ref, fetch.Options{
		Timeout:         TimeoutSitemap,
		FollowRedirects: true,
		MaxBytes:        50 << 20,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status != 200 {
		return nil, io.EOF
	}
	body := []byte(resp.Body)
	if strings.HasSuffix(strings.ToLower(ref), ".gz") || isGzip(body) {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(io.LimitReader(zr, 100<<20))
	}
	return body, nil
}

func isGzip(b []byte) bool {
	return len(b) > 2 && b[0] == 0x1f && b[1] == 0x8b
}

// parseSitemap decodes either a urlset or a sitemapindex document,
// returning child sitemap refs and page URLs.
func parseSitemap(body []byte) (children []string, urls []string) {
	var index struct {
		XMLName  xml.Name `xml:"sitemapindex"`
		Sitemaps []struct {
			Loc string `xml:"loc"`
		} `xml:"sitemap"`
	}
	if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
		for _, s := range index.Sitemaps {
			if loc := strings.TrimSpace(s.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		return children, nil
	}

	var set struct {
		XMLName xml.Name `xml:"urlset"`
		URLs    []struct {
			Loc string `xml:"loc"`
		} `xml:"url"`
	}
	if err := xml.Unmarshal(body, &set); err == nil {
		for _, u := range set.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				urls = append(urls, loc)
			}
		}
	}
	return nil, urls
}
