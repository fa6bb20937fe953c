package collect

import (
	"fmt"

	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/lighthouse"
	"github.com/siteaudit/siteaudit/internal/screenshot"
	"github.com/siteaudit/siteaudit/internal/serp"
)

// Deps are the external capabilities the probes draw on. Nil optional
// backends degrade the matching probe to a soft error.
type Deps struct {
	Fetch *fetch.Client

	// DNSServer is host:port of the resolver; empty means read the
	// system resolv.conf.
	DNSServer string

	Screens    screenshot.Backend
	Lighthouse *lighthouse.Client
	Serp       serp.Provider

	// SecurityTool is the optional external scanner binary; empty skips
	// the probe softly.
	SecurityTool string

	// SampleSize caps the URL sampling plan (default 50).
	SampleSize int

	// MaxSitemapURLs caps BFS extraction (default 50000).
	MaxSitemapURLs int
}

func (d Deps) sampleSize() int {
	if d.SampleSize <= 0 {
		return 50
	}
	return d.SampleSize
}

func (d Deps) maxSitemapURLs() int {
	if d.MaxSitemapURLs <= 0 {
		return 50000
	}
	return d.MaxSitemapURLs
}

// guard converts a panic inside a probe into a soft failure so the
// no-throw contract holds even against programming faults in parsers.
func guard[T any](out *Output[T]) {
	if r := recover(); r != nil {
		*out = Fail[T](fmt.Sprintf("collector panic: %v", r))
	}
}
