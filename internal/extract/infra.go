package extract

import (
	"sort"
	"strings"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/tristate"
)

// cdnHints maps CNAME substrings to CDN names; hostingHints does the
// same for issuer and CNAME based hosting detection.
var cdnHints = map[string]string{
	"cloudfront.net":   "CloudFront",
	"cloudflare":       "Cloudflare",
	"fastly":           "Fastly",
	"akamai":           "Akamai",
	"edgekey.net":      "Akamai",
	"cdn.shopify.com":  "Shopify CDN",
	"azureedge.net":    "Azure CDN",
	"vercel-dns.com":   "Vercel",
	"netlify":          "Netlify",
}

var hostingHints = map[string]string{
	"shopify":      "Shopify",
	"squarespace":  "Squarespace",
	"wixdns":       "Wix",
	"github.io":    "GitHub Pages",
	"herokuapp":    "Heroku",
	"amazonaws":    "AWS",
	"googleuserco": "Google Cloud",
	"vercel":       "Vercel",
	"netlify":      "Netlify",
}

// ExtractInfra synthesizes HTTPS enforcement and infrastructure facts
// from the redirect map and network probes.
func ExtractInfra(raw *collect.RawSnapshot) (tristate.Value[bool], Infra) {
	infra := Infra{RedirectChainHealth: ChainUnknown}

	httpsEnforced := httpsEnforcement(raw)

	if raw.DNSFacts.Data != nil {
		d := raw.DNSFacts.Data
		for _, r := range d.A {
			infra.ARecords = append(infra.ARecords, r.Value)
		}
		if d.CNAME != nil {
			infra.CNAME = strings.TrimSuffix(d.CNAME.Value, ".")
		}
		if len(d.AAAA) > 0 {
			infra.IPv6 = tristate.Present(true)
		} else {
			infra.IPv6 = tristate.Absent[bool]()
		}
	} else {
		infra.IPv6 = tristate.Unknown[bool]("dns probe failed")
	}

	if raw.TLSFacts.Data != nil {
		t := raw.TLSFacts.Data
		infra.TLSProtocol = tristate.Present(t.Protocol)
		infra.CertExpiryDays = tristate.Present(t.DaysUntilExpiry)
	} else {
		infra.TLSProtocol = tristate.Unknown[string]("tls probe failed")
		infra.CertExpiryDays = tristate.Unknown[int]("tls probe failed")
	}

	infra.CDN = matchHint(infra.CNAME, cdnHints)
	hostingSource := infra.CNAME
	if raw.TLSFacts.Data != nil {
		hostingSource += " " + raw.TLSFacts.Data.Issuer
	}
	infra.Hosting = matchHint(hostingSource, hostingHints)

	if raw.RedirectMap.Data != nil {
		m := raw.RedirectMap.Data
		probes := []collect.RedirectProbe{m.HTTPRoot, m.HTTPSRoot, m.HTTPWWW, m.HTTPSWWW}
		for _, p := range probes {
			if len(p.Chain) > infra.LongestChain {
				infra.LongestChain = len(p.Chain)
			}
			if loop := loopStart(p); loop != "" {
				infra.RedirectLoops = append(infra.RedirectLoops, loop)
			}
		}
		infra.RedirectChainHealth = classifyChain(infra.LongestChain, len(infra.RedirectLoops) > 0)
		infra.WWWConsistent = wwwConsistency(m)
		infra.TrailingSlashStable = trailingSlashStable(probes)
	} else {
		infra.WWWConsistent = tristate.Unknown[bool]("redirect map failed")
	}

	return httpsEnforced, infra
}

func httpsEnforcement(raw *collect.RawSnapshot) tristate.Value[bool] {
	if raw.RedirectMap.Data == nil {
		return tristate.Unknown[bool]("redirect map failed")
	}
	p := raw.RedirectMap.Data.HTTPRoot
	if p.Err != "" || p.FinalURL == "" {
		return tristate.Unknown[bool]("http probe failed: " + p.Err)
	}
	if strings.HasPrefix(p.FinalURL, "https://") {
		return tristate.Present(true)
	}
	return tristate.Present(false)
}

// classifyChain: ≤2 hops healthy, 3–5 warning, >5 critical; any loop is
// critical.
func classifyChain(longest int, hasLoop bool) ChainHealth {
	switch {
	case hasLoop:
		return ChainCritical
	case longest > 5:
		return ChainCritical
	case longest >= 3:
		return ChainWarning
	default:
		return ChainHealthy
	}
}

// loopStart returns the first revisited URL in a chain, empty when the
// chain is loop-free.
func loopStart(p collect.RedirectProbe) string {
	seen := map[string]struct{}{}
	for _, hop := range p.Chain {
		if _, ok := seen[hop.URL]; ok {
			return hop.URL
		}
		seen[hop.URL] = struct{}{}
	}
	return ""
}

func wwwConsistency(m *collect.RedirectMap) tristate.Value[bool] {
	apex, www := m.HTTPSRoot, m.HTTPSWWW
	if apex.FinalURL == "" || www.FinalURL == "" {
		return tristate.Unknown[bool]("www probes incomplete")
	}
	return tristate.Present(finalHost(apex.FinalURL) == finalHost(www.FinalURL))
}

func finalHost(u string) string {
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "https://")
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = u[:i]
	}
	return strings.ToLower(u)
}

func trailingSlashStable(probes []collect.RedirectProbe) bool {
	for _, p := range probes {
		if p.FinalURL == "" {
			continue
		}
		// A final URL that only differs from a chain entry by the
		// trailing slash signals slash churn.
		for _, hop := range p.Chain {
			if hop.URL != p.FinalURL && strings.TrimSuffix(hop.URL, "/") == strings.TrimSuffix(p.FinalURL, "/") {
				return false
			}
		}
	}
	return true
}

func matchHint(source string, hints map[string]string) string {
	source = strings.ToLower(source)
	if source == "" {
		return ""
	}
	// Sorted keys keep the extraction deterministic when several hints
	// match.
	keys := make([]string, 0, len(hints))
	for sub := range hints {
		keys = append(keys, sub)
	}
	sort.Strings(keys)
	for _, sub := range keys {
		if strings.Contains(source, sub) {
			return hints[sub]
		}
	}
	return ""
}
