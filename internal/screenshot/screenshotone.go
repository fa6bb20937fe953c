package screenshot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/siteaudit/siteaudit/internal/fetch"
)

const screenshotOneEndpoint = "https://api.screenshotone.com/take"

// ScreenshotOne captures through the hosted API. The response must carry
// the PNG magic bytes or the capture is rejected.
type ScreenshotOne struct {
	Fetch  *fetch.Client
	APIKey string
	// Endpoint overrides the API URL; tests point it at a stub.
	Endpoint string
}

func (s *ScreenshotOne) Name() string { return "screenshotone" }

func (s *ScreenshotOne) Capture(ctx context.Context, target string, vp Viewport) ([]byte, error) {
	if s == nil || s.APIKey == "" {
		return nil, fmt.Errorf("screenshotone key not configured")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = screenshotOneEndpoint
	}
	q := url.Values{}
	q.Set("access_key", s.APIKey)
	q.Set("url", target)
	q.Set("viewport_width", strconv.Itoa(vp.Width))
	q.Set("viewport_height", strconv.Itoa(vp.Height))
	q.Set("format", "png")
	q.Set("block_ads", "true")
	q.Set("delay", "2")
	q.Set("timeout", "60")
	if vp.Mobile {
		q.Set("device_scale_factor", "2")
	}

	resp, err := s.Fetch.Do(ctx, endpoint+"?"+q.Encode(), fetch.Options{
		MaxBytes: 20 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshotone request: %w", err)
	}
	if resp.Status != 200 {
		return nil, fmt.Errorf("screenshotone status %d", resp.Status)
	}
	data := []byte(resp.Body)
	if !IsPNG(data) {
		return nil, fmt.Errorf("screenshotone returned non-PNG payload")
	}
	return data, nil
}
