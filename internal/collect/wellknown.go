package collect

import (
	"context"

	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/identity"
)

// wellKnownPaths are the five fixed endpoints probed on every run.
var wellKnownPaths = []string{
	"/.well-known/security.txt",
	"/security.txt",
	"/humans.txt",
	"/.well-known/change-password",
	"/ads.txt",
}

const wellKnownSnippetBytes = 2048

// CollectWellKnown fetches each fixed path; bodies are truncated to 2KB
// snippets.
func CollectWellKnown(ctx context.Context, deps Deps, id identity.Identity) (out Output[WellKnown]) {
	defer guard(&out)

	origin := id.Origin()
	result := WellKnown{Endpoints: make([]WellKnownEndpoint, 0, len(wellKnownPaths))}
	for _, path := range wellKnownPaths {
		ep := WellKnownEndpoint{Path: path}
		resp, err := deps.Fetch.Do(ctx, origin+path, fetch.Options{
			Timeout:         TimeoutWellKnown,
			FollowRedirects: true,
			MaxBytes:        256 << 10,
		})
		if err == nil {
			ep.Status = resp.Status
			if resp.Status == 200 {
				snippet := resp.Body
				if len(snippet) > wellKnownSnippetBytes {
					snippet = snippet[:wellKnownSnippetBytes]
				}
				ep.Snippet = snippet
			}
		}
		result.Endpoints = append(result.Endpoints, ep)
	}
	return OK(result)
}
