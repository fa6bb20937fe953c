package serp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/siteaudit/siteaudit/internal/fetch"
)

func TestSerpAPI_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("engine") != "google" || r.URL.Query().Get("num") != "10" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"organic_results":[
			{"position":1,"title":"Example Shop","link":"https://example.com/","snippet":"Buy things"},
			{"position":2,"title":"Example on Review Site","link":"https://reviews.test/example"}
		]}`))
	}))
	defer srv.Close()

	s := &SerpAPI{Fetch: &fetch.Client{}, APIKey: "k", Endpoint: srv.URL}
	res, err := s.Search(context.Background(), "example shop", 2*time.Second)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Results) != 2 || res.Results[0].Title != "Example Shop" {
		t.Fatalf("unexpected results: %+v", res.Results)
	}
	if res.Provider != "serpapi" {
		t.Fatalf("provider: %s", res.Provider)
	}
}

func TestSerpAPI_MissingKey(t *testing.T) {
	s := &SerpAPI{Fetch: &fetch.Client{}}
	if _, err := s.Search(context.Background(), "q", time.Second); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestDataForSEO_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") == "" {
			t.Error("missing basic auth")
		}
		_, _ = w.Write([]byte(`{"tasks":[{"result":[{"items":[
			{"type":"organic","rank_absolute":1,"title":"Example","url":"https://example.com/","description":"d"},
			{"type":"paid","rank_absolute":2,"title":"Ad","url":"https://ads.test/"}
		]}]}]}`))
	}))
	defer srv.Close()

	d := &DataForSEO{Fetch: &fetch.Client{}, Login: "l", Password: "p", Endpoint: srv.URL}
	res, err := d.Search(context.Background(), "example", 2*time.Second)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("paid results must be filtered: %+v", res.Results)
	}
	if res.Results[0].Position != 1 || res.Provider != "dataforseo" {
		t.Fatalf("unexpected result: %+v", res.Results[0])
	}
}
