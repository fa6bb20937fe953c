package collect

import (
	"context"
	"strings"

	"github.com/siteaudit/siteaudit/internal/fetch"
	"github.com/siteaudit/siteaudit/internal/identity"
)

// CollectRoot fetches the normalized URL with the redirect chain. The
// body is retained only when the response is HTML.
func CollectRoot(ctx context.Context, deps Deps, id identity.Identity) (out Output[RootFetch]) {
	defer guard(&out)

	resp, err := deps.Fetch.Do(ctx, id.NormalizedURL, fetch.Options{
		Timeout:         TimeoutRoot,
		FollowRedirects: true,
	})
	if err != nil {
		return Fail[RootFetch](err.Error())
	}
	rf := RootFetch{
		FinalURL: resp.FinalURL,
		Status:   resp.Status,
		Headers:  resp.Headers,
		Chain:    resp.Chain,
		IsHTML:   isHTMLContentType(resp.Headers["content-type"]),
	}
	if rf.IsHTML {
		rf.Body = resp.Body
	}
	return OK(rf)
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
