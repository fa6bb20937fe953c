package collect

import (
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"

	"github.com/siteaudit/siteaudit/internal/identity"
	"github.com/siteaudit/siteaudit/internal/lighthouse"
	"github.com/siteaudit/siteaudit/internal/screenshot"
	"github.com/siteaudit/siteaudit/internal/serp"
)

// CollectScreenshots captures desktop and mobile viewports through the
// configured backend.
func CollectScreenshots(ctx context.Context, deps Deps, finalURL string) (out Output[Screenshots]) {
	defer guard(&out)

	if deps.Screens == nil {
		return Fail[Screenshots]("no screenshot backend configured")
	}
	ctx, cancel := context.WithTimeout(ctx, TimeoutScreenshot)
	defer cancel()

	shots := Screenshots{Backend: deps.Screens.Name()}
	desktop, errD := deps.Screens.Capture(ctx, finalURL, screenshot.Desktop)
	if errD == nil {
		shots.Desktop = base64.StdEncoding.EncodeToString(desktop)
	}
	mobile, errM := deps.Screens.Capture(ctx, finalURL, screenshot.Mobile)
	if errM == nil {
		shots.Mobile = base64.StdEncoding.EncodeToString(mobile)
	}
	if errD != nil && errM != nil {
		return Fail[Screenshots](fmt.Sprintf("desktop: %v; mobile: %v", errD, errM))
	}
	return OK(shots)
}

// CollectLighthouse runs the performance probe when enabled.
func CollectLighthouse(ctx context.Context, deps Deps, finalURL string) (out Output[lighthouse.Report]) {
	defer guard(&out)

	if deps.Lighthouse == nil {
		return Fail[lighthouse.Report]("lighthouse disabled")
	}
	report, err := deps.Lighthouse.Run(ctx, finalURL, TimeoutLighthouse)
	if err != nil {
		return Fail[lighthouse.Report](err.Error())
	}
	return OK(*report)
}

// CollectSERP looks the brand up with the configured SERP provider.
func CollectSERP(ctx context.Context, deps Deps, id identity.Identity) (out Output[serp.Results]) {
	defer guard(&out)

	if deps.Serp == nil {
		return Fail[serp.Results]("no serp provider configured")
	}
	query := brandQuery(id.Host())
	results, err := deps.Serp.Search(ctx, query, TimeoutSERP)
	if err != nil {
		return Fail[serp.Results](err.Error())
	}
	return OK(*results)
}

// brandQuery derives the lookup term from the host with any leading www.
// dropped: its first label plus the host itself.
func brandQuery(host string) string {
	host = strings.TrimPrefix(host, "www.")
	brand := host
	if i := strings.IndexByte(host, '.'); i > 0 {
		brand = host[:i]
	}
	return brand + " " + host
}

// CollectSecurityScan shells out to the optional external scanner. A
// missing binary is a soft failure, never fatal.
func CollectSecurityScan(ctx context.Context, deps Deps, id identity.Identity) (out Output[SecurityScan]) {
	defer guard(&out)

	if deps.SecurityTool == "" {
		return OK(SecurityScan{Ran: false})
	}
	path, err := exec.LookPath(deps.SecurityTool)
	if err != nil {
		return Fail[SecurityScan](fmt.Sprintf("security tool %q not found", deps.SecurityTool))
	}
	cmd := exec.CommandContext(ctx, path, id.NormalizedURL)
	raw, err := cmd.CombinedOutput()
	scan := SecurityScan{Tool: deps.SecurityTool, Ran: true, Output: truncate(string(raw), 64<<10)}
	if err != nil {
		return Fail[SecurityScan](fmt.Sprintf("security tool failed: %v", err))
	}
	return OK(scan)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
