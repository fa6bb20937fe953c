// Package identity defines the key under which an audit run is cached and
// replayed: the normalized target URL plus tool and prompt versions.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Identity names one audit run.
type Identity struct {
	NormalizedURL  string
	PDPURL         string
	ToolVersions   string
	PromptVersions string
}

// New normalizes the target (and optional product-detail URL) and carries
// the version strings that scope the cache.
func New(rawURL, pdpURL, toolVersions, promptVersions string) (Identity, error) {
	norm, err := Normalize(rawURL)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{
		NormalizedURL:  norm,
		ToolVersions:   toolVersions,
		PromptVersions: promptVersions,
	}
	if strings.TrimSpace(pdpURL) != "" {
		p, err := Normalize(pdpURL)
		if err != nil {
			return Identity{}, fmt.Errorf("pdp url: %w", err)
		}
		id.PDPURL = p
	}
	return id, nil
}

// CacheKey is the SHA-256 hex of normalizedUrl|toolVersions|promptVersions.
func (id Identity) CacheKey() string {
	h := sha256.Sum256([]byte(id.NormalizedURL + "|" + id.ToolVersions + "|" + id.PromptVersions))
	return hex.EncodeToString(h[:])
}

// Origin returns scheme://host for the normalized URL.
func (id Identity) Origin() string {
	u, err := url.Parse(id.NormalizedURL)
	if err != nil {
		return id.NormalizedURL
	}
	return u.Scheme + "://" + u.Host
}

// Host returns the hostname of the normalized URL.
func (id Identity) Host() string {
	u, err := url.Parse(id.NormalizedURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Normalize canonicalizes a URL: trims whitespace, lowercases scheme and
// host, strips default ports and fragments, sorts query parameters, and
// removes the trailing slash except at the root. Idempotent:
// Normalize(Normalize(u)) == Normalize(u).
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	u.Scheme = scheme
	u.Fragment = ""

	host := strings.ToLower(u.Host)
	if h, p, ok := strings.Cut(host, ":"); ok {
		if (scheme == "http" && p == "80") || (scheme == "https" && p == "443") {
			host = h
		}
	}
	u.Host = host
	if u.Hostname() == "" {
		return "", fmt.Errorf("missing host")
	}

	if u.RawQuery != "" {
		u.RawQuery = sortedQuery(u.RawQuery)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	// path is the escaped form; keep Path decoded so String does not
	// escape it a second time.
	decoded, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("parse url path: %w", err)
	}
	u.Path = decoded
	u.RawPath = path

	return u.String(), nil
}

func sortedQuery(raw string) string {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		vs := values[k]
		sort.Strings(vs)
		for _, v := range vs {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			if v != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	return b.String()
}

// SameHost reports whether two normalized URLs share a hostname, treating
// a leading www. as equivalent.
func SameHost(a, b string) bool {
	ua, err1 := url.Parse(a)
	ub, err2 := url.Parse(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return stripWWW(ua.Hostname()) == stripWWW(ub.Hostname())
}

func stripWWW(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}
