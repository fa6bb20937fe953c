package screenshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/siteaudit/siteaudit/internal/fetch"
)

var pngBytes = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, []byte("fakepngdata")...)

func TestIsPNG(t *testing.T) {
	if !IsPNG(pngBytes) {
		t.Fatal("valid signature rejected")
	}
	if IsPNG([]byte("<html>error</html>")) {
		t.Fatal("html accepted as png")
	}
	if IsPNG(nil) {
		t.Fatal("nil accepted as png")
	}
}

func TestScreenshotOne_Capture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("block_ads") != "true" || q.Get("delay") != "2" || q.Get("timeout") != "60" {
			t.Errorf("missing fixed params: %s", r.URL.RawQuery)
		}
		if q.Get("viewport_width") != "1920" {
			t.Errorf("viewport width: %s", q.Get("viewport_width"))
		}
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	s := &ScreenshotOne{Fetch: &fetch.Client{}, APIKey: "k", Endpoint: srv.URL}
	data, err := s.Capture(context.Background(), "https://example.com/", Desktop)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !IsPNG(data) {
		t.Fatal("expected png payload")
	}
}

func TestScreenshotOne_RejectsNonPNG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	s := &ScreenshotOne{Fetch: &fetch.Client{}, APIKey: "k", Endpoint: srv.URL}
	if _, err := s.Capture(context.Background(), "https://example.com/", Mobile); err == nil || !strings.Contains(err.Error(), "non-PNG") {
		t.Fatalf("expected magic-byte rejection, got %v", err)
	}
}

func TestScreenshotOne_MissingKey(t *testing.T) {
	s := &ScreenshotOne{Fetch: &fetch.Client{}}
	if _, err := s.Capture(context.Background(), "https://example.com/", Desktop); err == nil {
		t.Fatal("expected configuration error")
	}
}
