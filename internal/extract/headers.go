package extract

import (
	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/tristate"
)

// KnownSecurityHeaders are the response headers the security audit
// evaluates, by lowercase name.
var KnownSecurityHeaders = []string{
	"strict-transport-security",
	"content-security-policy",
	"x-content-type-options",
	"x-frame-options",
	"referrer-policy",
	"permissions-policy",
}

// securityHeaderWeights sum to 100; each present header earns its
// weight toward the measured security score.
var securityHeaderWeights = map[string]float64{
	"strict-transport-security": 25,
	"content-security-policy":   25,
	"x-content-type-options":    15,
	"x-frame-options":           15,
	"referrer-policy":           10,
	"permissions-policy":        10,
}

// ExtractSecurityHeaders maps each known header to a TriState from the
// root fetch. A failed root fetch marks every header unknown rather than
// absent.
func ExtractSecurityHeaders(raw *collect.RawSnapshot) map[string]tristate.Value[string] {
	out := make(map[string]tristate.Value[string], len(KnownSecurityHeaders))
	if raw.RootFetch.Data == nil {
		reason := "root fetch failed"
		if raw.RootFetch.Err != "" {
			reason = "root fetch failed: " + raw.RootFetch.Err
		}
		for _, name := range KnownSecurityHeaders {
			out[name] = tristate.Unknown[string](reason)
		}
		return out
	}
	headers := raw.RootFetch.Data.Headers
	for _, name := range KnownSecurityHeaders {
		if v, ok := headers[name]; ok {
			out[name] = tristate.Present(v)
		} else {
			out[name] = tristate.Absent[string]()
		}
	}
	return out
}

// SecurityHeaderScore aggregates the header map into the measured 0–100
// security score: each present header earns its weight. Headers that
// could not be checked make the whole score unknown rather than a
// silent zero.
func SecurityHeaderScore(headers map[string]tristate.Value[string]) tristate.Value[float64] {
	var score float64
	for name, weight := range securityHeaderWeights {
		state, ok := headers[name]
		if !ok || state.IsUnknown() {
			reason := "headers not checked"
			if ok {
				reason = state.Reason()
			}
			return tristate.Unknown[float64](reason)
		}
		if state.IsPresent() {
			score += weight
		}
	}
	return tristate.Present(score)
}
