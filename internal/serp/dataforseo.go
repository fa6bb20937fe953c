package serp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/siteaudit/siteaudit/internal/fetch"
)

const dataForSEOEndpoint = "https://api.dataforseo.com/v3/serp/google/organic/live/advanced"

// DataForSEO queries the live advanced organic endpoint
// (location_code 2840 = United States, language en, depth 10).
type DataForSEO struct {
	Fetch    *fetch.Client
	Login    string
	Password string
	// Endpoint overrides the API URL; tests point it at a stub.
	Endpoint string
}

func (d *DataForSEO) Search(ctx context.Context, query string, timeout time.Duration) (*Results, error) {
	if d == nil || d.Login == "" || d.Password == "" {
		return nil, fmt.Errorf("dataforseo credentials not configured")
	}
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = dataForSEOEndpoint
	}
	task := []map[string]any{{
		"keyword":       query,
		"location_code": 2840,
		"language_code": "en",
		"depth":         10,
	}}
	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode dataforseo task: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(d.Login + ":" + d.Password))

	resp, err := d.Fetch.Do(ctx, endpoint, fetch.Options{
		Method: http.MethodPost,
		Body:   string(body),
		Headers: map[string]string{
			"Authorization": "Basic " + auth,
			"Content-Type":  "application/json",
		},
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("dataforseo request: %w", err)
	}
	if resp.Status != 200 {
		return nil, fmt.Errorf("dataforseo status %d", resp.Status)
	}
	var doc struct {
		Tasks []struct {
			Result []struct {
				Items []struct {
					Type         string `json:"type"`
					RankAbsolute int    `json:"rank_absolute"`
					Title        string `json:"title"`
					URL          string `json:"url"`
					Description  string `json:"description"`
				} `json:"items"`
			} `json:"result"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &doc); err != nil {
		return nil, fmt.Errorf("decode dataforseo response: %w", err)
	}
	out := &Results{Query: query, Provider: "dataforseo"}
	for _, t := range doc.Tasks {
		for _, r := range t.Result {
			for _, item := range r.Items {
				if item.Type != "organic" {
					continue
				}
				out.Results = append(out.Results, Result{
					Position: item.RankAbsolute, Title: item.Title, Link: item.URL, Snippet: item.Description,
				})
			}
		}
	}
	return out, nil
}
