package collect

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/identity"
)

// CollectRobots fetches /robots.txt and parses Sitemap: lines
// (case-insensitive) plus a blanket-disallow check for the * agent.
func CollectRobots(ctx context.Context, deps Deps, id identity.Identity) (out Output[RobotsTxt]) {
	defer guard(&out)

	resp, err := deps.Fetch.Do(ctx, id.Origin()+"/robots.txt", fetch.Options{
		Timeout:         TimeoutRobots,
		FollowRedirects: true,
		MaxBytes:        1 << 20,
	})
	if err != nil {
		return Fail[RobotsTxt](err.Error())
	}
	if resp.Status == 404 {
		return OK(RobotsTxt{Found: false})
	}
	if resp.Status != 200 {
		return Fail[RobotsTxt]("unexpected robots.txt status " + strconv.Itoa(resp.Status))
	}
	r := parseRobots(resp.Body)
	r.Found = true
	return OK(r)
}

func parseRobots(body string) RobotsTxt {
	out := RobotsTxt{Body: body}
	var inStarGroup bool
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "sitemap":
			if val != "" {
				out.SitemapRefs = append(out.SitemapRefs, val)
			}
		case "user-agent":
			inStarGroup = val == "*"
		case "disallow":
			if inStarGroup && val == "/" {
				out.DisallowAll = true
			}
		}
	}
	return out
}
