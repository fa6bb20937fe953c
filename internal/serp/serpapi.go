package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/siteaudit/siteaudit/internal/fetch"
)

const serpAPIEndpoint = "https://serpapi.com/search.json"

// SerpAPI queries serpapi.com (engine=google, num=10).
type SerpAPI struct {
	Fetch  *fetch.Client
	APIKey string
	// Endpoint overrides the API URL; tests point it at a stub.
	Endpoint string
}

func (s *SerpAPI) Search(ctx context.Context, query string, timeout time.Duration) (*Results, error) {
	if s == nil || s.APIKey == "" {
		return nil, fmt.Errorf("serpapi key not configured")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = serpAPIEndpoint
	}
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("num", "10")
	q.Set("api_key", s.APIKey)

	resp, err := s.Fetch.Do(ctx, endpoint+"?"+q.Encode(), fetch.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	if resp.Status != 200 {
		return nil, fmt.Errorf("serpapi status %d", resp.Status)
	}
	var doc struct {
		OrganicResults []struct {
			Position int    `json:"position"`
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &doc); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}
	out := &Results{Query: query, Provider: "serpapi"}
	for _, r := range doc.OrganicResults {
		out.Results = append(out.Results, Result{
			Position: r.Position, Title: r.Title, Link: r.Link, Snippet: r.Snippet,
		})
	}
	return out, nil
}
