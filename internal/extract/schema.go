package extract

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
)

// extractSchema pulls JSON-LD blocks out of the parsed document,
// expanding @graph containers. Parse errors are recorded on the entry,
// never raised.
func extractSchema(root *html.Node) []SchemaEntry {
	var entries []SchemaEntry
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "script") &&
			strings.EqualFold(attr(n, "type"), "application/ld+json") {
			raw := strings.TrimSpace(nodeText(n))
			if raw != "" {
				entries = append(entries, parseJSONLD(raw)...)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return entries
}

func parseJSONLD(raw string) []SchemaEntry {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return []SchemaEntry{{JSONLD: raw, Valid: false, Errors: []string{err.Error()}}}
	}
	var out []SchemaEntry
	switch v := doc.(type) {
	case []any:
		for _, item := range v {
			out = append(out, entryFromObject(item, raw)...)
		}
	default:
		out = entryFromObject(doc, raw)
	}
	return out
}

func entryFromObject(obj any, raw string) []SchemaEntry {
	m, ok := obj.(map[string]any)
	if !ok {
		return []SchemaEntry{{JSONLD: raw, Valid: false, Errors: []string{"not a JSON-LD object"}}}
	}
	// @graph containers flatten to one entry per node.
	if graph, ok := m["@graph"].([]any); ok {
		var out []SchemaEntry
		for _, node := range graph {
			out = append(out, entryFromObject(node, raw)...)
		}
		return out
	}
	entry := SchemaEntry{JSONLD: raw, Valid: true}
	switch t := m["@type"].(type) {
	case string:
		entry.Type = t
	case []any:
		var names []string
		for _, n := range t {
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
		entry.Type = strings.Join(names, ",")
	}
	if entry.Type == "" {
		entry.Valid = false
		entry.Errors = append(entry.Errors, "missing @type")
	}
	return []SchemaEntry{entry}
}
