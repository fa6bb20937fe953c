// Package screenshot captures the target at desktop and mobile viewports
// through one of two backends: a local headless browser or the
// ScreenshotOne HTTP service.
package screenshot

import (
	"context"
)

// Viewport names the capture geometry.
type Viewport struct {
	Width  int
	Height int
	Mobile bool
}

// Desktop and Mobile are the two fixed capture geometries.
var (
	Desktop = Viewport{Width: 1920, Height: 1080}
	Mobile  = Viewport{Width: 390, Height: 844, Mobile: true}
)

// Backend captures one screenshot and returns raw PNG bytes.
type Backend interface {
	Name() string
	Capture(ctx context.Context, url string, vp Viewport) ([]byte, error)
}

// pngMagic is the PNG file signature.
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// IsPNG verifies the PNG magic bytes.
func IsPNG(data []byte) bool {
	if len(data) < len(pngMagic) {
		return false
	}
	for i, b := range pngMagic {
		if data[i] != b {
			return false
		}
	}
	return true
}
