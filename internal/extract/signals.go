package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/siteaudit/siteaudit/internal/collect"
	"github.com/siteaudit/siteaudit/internal/identity"
)

// ExtractPages turns each HTML sample into PageSignals. Defensive: a
// parse fault in one sample yields zeroed signals for that URL and never
// propagates.
func ExtractPages(raw *collect.RawSnapshot) []PageSignals {
	if raw.HTMLSamples.Data == nil {
		return nil
	}
	pages := make([]PageSignals, 0, len(raw.HTMLSamples.Data.Pages))
	for _, sample := range raw.HTMLSamples.Data.Pages {
		pages = append(pages, pageSignals(sample))
	}
	return pages
}

func pageSignals(sample collect.PageSample) (sig PageSignals) {
	norm, err := identity.Normalize(sample.URL)
	if err != nil {
		norm = sample.URL
	}
	sig = PageSignals{URL: norm, Status: sample.Status, Headings: map[string]int{}}
	defer func() {
		if r := recover(); r != nil {
			sig = PageSignals{URL: norm, Status: sample.Status, Headings: map[string]int{}}
		}
	}()
	if !sample.IsHTML || sample.Body == "" {
		return sig
	}
	root, err := html.Parse(strings.NewReader(sample.Body))
	if err != nil || root == nil {
		return sig
	}

	pageURL, _ := url.Parse(norm)
	var textLen int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			name := strings.ToLower(n.Data)
			switch name {
			case "title":
				if sig.Title == "" {
					sig.Title = strings.TrimSpace(nodeText(n))
				}
			case "meta":
				readMeta(n, &sig)
			case "link":
				if strings.EqualFold(attr(n, "rel"), "canonical") {
					sig.Canonical = strings.TrimSpace(attr(n, "href"))
				}
			case "h1":
				sig.H1Count++
				if sig.H1 == "" {
					sig.H1 = strings.TrimSpace(nodeText(n))
				}
			case "h2", "h3", "h4", "h5", "h6":
				sig.Headings[name]++
			case "img":
				sig.Images = append(sig.Images, Image{
					Src:    attr(n, "src"),
					Alt:    attr(n, "alt"),
					Width:  attr(n, "width"),
					Height: attr(n, "height"),
				})
				if pageURL != nil && pageURL.Scheme == "https" && strings.HasPrefix(attr(n, "src"), "http://") {
					sig.MixedContent = true
				}
			case "a":
				readAnchor(n, pageURL, &sig)
			case "script", "iframe":
				if pageURL != nil && pageURL.Scheme == "https" && strings.HasPrefix(attr(n, "src"), "http://") {
					sig.MixedContent = true
				}
			case "html":
				if attr(n, "lang") != "" {
					sig.HasLang = true
				}
			}
			if name == "script" || name == "style" || name == "noscript" {
				return
			}
		}
		if n.Type == html.TextNode {
			textLen += len(strings.Fields(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	sig.TitleLength = len(sig.Title)
	sig.WordCount = textLen
	sig.Schema = extractSchema(root)
	if sig.Canonical != "" {
		if canon, err := identity.Normalize(resolveAgainst(pageURL, sig.Canonical)); err == nil {
			sig.CanonicalSelf = canon == norm
			sig.Canonical = canon
		}
	}
	return sig
}

func readMeta(n *html.Node, sig *PageSignals) {
	name := strings.ToLower(attr(n, "name"))
	switch {
	case name == "description":
		if sig.MetaDescription == "" {
			sig.MetaDescription = strings.TrimSpace(attr(n, "content"))
		}
	case name == "viewport":
		sig.HasViewport = true
	case attr(n, "charset") != "":
		sig.HasCharset = true
	case strings.EqualFold(attr(n, "http-equiv"), "content-type"):
		if strings.Contains(strings.ToLower(attr(n, "content")), "charset") {
			sig.HasCharset = true
		}
	}
}

func readAnchor(n *html.Node, pageURL *url.URL, sig *PageSignals) {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(strings.ToLower(href), "javascript:") ||
		strings.HasPrefix(strings.ToLower(href), "mailto:") ||
		strings.HasPrefix(strings.ToLower(href), "tel:") {
		return
	}
	abs := resolveAgainst(pageURL, href)
	norm, err := identity.Normalize(abs)
	if err != nil {
		return
	}
	if strings.Contains(strings.ToLower(attr(n, "rel")), "nofollow") {
		sig.Links.Nofollow = appendUnique(sig.Links.Nofollow, norm)
	}
	if pageURL != nil && identity.SameHost(pageURL.String(), norm) {
		sig.Links.Internal = appendUnique(sig.Links.Internal, norm)
	} else {
		sig.Links.External = appendUnique(sig.Links.External, norm)
	}
}

func resolveAgainst(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(n)
	return b.String()
}
