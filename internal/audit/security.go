package audit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/extract"
	"github.com/siteaudit/siteaudit/internal/finding"
)

// Cert expiry alarm thresholds, days.
const (
	certCriticalDays = 14
	certWarningDays  = 30
)

var secretPattern = regexp.MustCompile(`(?i)(api[_-]?key|secret|password|token)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{12,}`)

// Security evaluates transport security and response headers, and
// collects private flags for sensitive observations that must never
// reach public output.
func Security(snap *extract.SiteSnapshot, raw *collect.RawSnapshot) Result {
	var res Result
	add := func(f finding.Finding) {
		f.Source = SourceSecurity
		res.Findings = append(res.Findings, finding.New(f))
	}

	httpsEnforced := snap.SiteWide.HTTPSEnforced
	if v, ok := httpsEnforced.Get(); ok && !v {
		add(finding.Finding{
			Type: finding.TypeHTTPSNotEnforced, Severity: finding.SeverityCritical,
			Priority: finding.PriorityCritical, Category: finding.CategorySecurity,
			Message:      "Plain-http requests are not redirected to https",
			Evidence:     finding.ExtraEv(map[string]string{"httpRoot": "served without https upgrade"}),
			Fix:          "301-redirect every http request to its https equivalent.",
			WhyItMatters: "Unencrypted traffic exposes visitors to interception and ranking penalties.",
		})
	} else if httpsEnforced.IsUnknown() {
		res.Gaps = append(res.Gaps, "https enforcement not checked: "+httpsEnforced.Reason())
	}

	headers := snap.SiteWide.SecurityHeaders
	headerRules := []struct {
		name     string
		typ      finding.Type
		severity finding.Severity
		priority finding.Priority
		fix      string
		why      string
	}{
		{
			"strict-transport-security", finding.TypeMissingHSTS,
			finding.SeverityCritical, finding.PriorityCritical,
			"Send Strict-Transport-Security with a max-age of at least one year.",
			"Without HSTS every first visit can be downgraded to plain http by an active attacker.",
		},
		{
			"content-security-policy", finding.TypeMissingCSP,
			finding.SeverityWarning, finding.PriorityHigh,
			"Define a Content-Security-Policy, starting in report-only mode.",
			"CSP is the main mitigation for injected-script attacks.",
		},
		{
			"x-content-type-options", finding.TypeMissingContentType,
			finding.SeverityInfo, finding.PriorityLow,
			"Send X-Content-Type-Options: nosniff.",
			"Sniffing lets browsers execute responses the server never declared as scripts.",
		},
		{
			"x-frame-options", finding.TypeMissingFrameOptions,
			finding.SeverityInfo, finding.PriorityLow,
			"Send X-Frame-Options: DENY or a frame-ancestors CSP directive.",
			"Frameable pages are open to clickjacking overlays.",
		},
		{
			"referrer-policy", finding.TypeMissingReferrer,
			finding.SeverityInfo, finding.PriorityLow,
			"Send Referrer-Policy: strict-origin-when-cross-origin.",
			"Full referrer URLs can leak private path and query data to third parties.",
		},
	}
	for _, rule := range headerRules {
		state, ok := headers[rule.name]
		if !ok {
			continue
		}
		switch {
		case state.IsAbsent():
			// HSTS only matters once https is actually served.
			if rule.typ == finding.TypeMissingHSTS {
				if v, ok := httpsEnforced.Get(); !ok || !v {
					continue
				}
			}
			add(finding.Finding{
				Type: rule.typ, Severity: rule.severity, Priority: rule.priority,
				Category:     finding.CategorySecurity,
				Message:      fmt.Sprintf("Response is missing the %s header", rule.name),
				Evidence:     finding.HeaderEv(rule.name, ""),
				Fix:          rule.fix,
				WhyItMatters: rule.why,
			})
		case state.IsUnknown():
			res.Gaps = append(res.Gaps, rule.name+" not checked: "+state.Reason())
		}
	}

	infra := snap.SiteWide.Infra
	if days, ok := infra.CertExpiryDays.Get(); ok && days < certWarningDays {
		sev, prio := finding.SeverityWarning, finding.PriorityHigh
		if days < certCriticalDays {
			sev, prio = finding.SeverityCritical, finding.PriorityCritical
		}
		add(finding.Finding{
			Type: finding.TypeCertExpiringSoon, Severity: sev, Priority: prio,
			Category:     finding.CategorySecurity,
			Message:      fmt.Sprintf("TLS certificate expires in %d days", days),
			Evidence:     finding.ThresholdEv("cert_expiry", float64(days), certWarningDays, "days"),
			Fix:          "Renew the certificate or verify the automation that should renew it.",
			WhyItMatters: "An expired certificate takes the whole site offline behind a browser warning.",
		})
	}
	if proto, ok := infra.TLSProtocol.Get(); ok && isLegacyTLS(proto) {
		add(finding.Finding{
			Type: finding.TypeLegacyTLS, Severity: finding.SeverityWarning,
			Priority: finding.PriorityHigh, Category: finding.CategorySecurity,
			Message:      fmt.Sprintf("Server negotiated %s", proto),
			Evidence:     finding.HeaderEv("tls_protocol", proto),
			Fix:          "Require TLS 1.2 or newer at the edge.",
			WhyItMatters: "Legacy TLS versions have known downgrade and decryption attacks.",
		})
	}

	if raw.RootFetch.Data != nil {
		if server, ok := raw.RootFetch.Data.Headers["server"]; ok && strings.Contains(server, "/") {
			add(finding.Finding{
				Type: finding.TypeServerDisclosure, Severity: finding.SeverityInfo,
				Priority: finding.PriorityLow, Category: finding.CategorySecurity,
				Message:      "Server header discloses software and version",
				Evidence:     finding.HeaderEv("server", server),
				Fix:          "Strip or genericize the Server header at the edge.",
				WhyItMatters: "Version strings let attackers match the stack against known CVEs.",
			})
		}
	}

	res.Private = append(res.Private, scanPrivate(raw)...)
	return res
}

func isLegacyTLS(proto string) bool {
	switch proto {
	case "TLS 1.0", "TLS 1.1", "SSLv3":
		return true
	}
	return false
}

// scanPrivate looks for sensitive material in collected bodies. Matches
// become private flags: kept out of the public report entirely.
func scanPrivate(raw *collect.RawSnapshot) []finding.PrivateFlag {
	var flags []finding.PrivateFlag
	if raw.WellKnown.Data != nil {
		for _, ep := range raw.WellKnown.Data.Endpoints {
			if ep.Snippet == "" {
				continue
			}
			if m := secretPattern.FindString(ep.Snippet); m != "" {
				flags = append(flags, finding.NewPrivateFlag(
					"exposed_secret",
					"credential-looking string served from "+ep.Path,
					m,
				))
			}
		}
	}
	if raw.RootFetch.Data != nil && raw.RootFetch.Data.Body != "" {
		body := raw.RootFetch.Data.Body
		if strings.Contains(body, "sourceMappingURL=") {
			flags = append(flags, finding.NewPrivateFlag(
				"source_map",
				"page references a JavaScript source map",
				"sourceMappingURL",
			))
		}
		for _, marker := range []string{"Traceback (most recent call last)", "Fatal error:", "at Object.<anonymous>"} {
			if strings.Contains(body, marker) {
				flags = append(flags, finding.NewPrivateFlag(
					"stack_trace",
					"page body contains what looks like a server stack trace",
					marker,
				))
				break
			}
		}
	}
	if raw.SecurityScan.Data != nil && raw.SecurityScan.Data.Ran {
		if m := secretPattern.FindString(raw.SecurityScan.Data.Output); m != "" {
			flags = append(flags, finding.NewPrivateFlag(
				"exposed_secret",
				"external scanner output contains a credential-looking string",
				m,
			))
		}
	}
	return flags
}
