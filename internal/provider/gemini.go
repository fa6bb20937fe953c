package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider adapts the Google GenAI SDK.
type GeminiProvider struct {
	Client *genai.Client
}

// NewGeminiProvider builds the adapter from an API key.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{Client: client}, nil
}

func (p *GeminiProvider) Name() Name { return Gemini }

func (p *GeminiProvider) GenerateText(ctx context.Context, req Request) (*Response, error) {
	return p.generate(ctx, req, false)
}

func (p *GeminiProvider) GenerateWithVision(ctx context.Context, req Request) (*Response, error) {
	if len(req.Images) == 0 {
		return nil, errors.New("vision request without images")
	}
	return p.generate(ctx, req, false)
}

func (p *GeminiProvider) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	return p.generate(ctx, req, true)
}

func (p *GeminiProvider) generate(ctx context.Context, req Request, jsonOnly bool) (*Response, error) {
	if p.Client == nil {
		return nil, errors.New("gemini provider not configured")
	}
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, "image/png"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if jsonOnly || req.JSONOnly {
		cfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := p.Client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, errors.New("empty gemini response")
	}
	out := &Response{
		Text:       text,
		Model:      req.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if um := resp.UsageMetadata; um != nil {
		out.Usage = Usage{
			Input:  int(um.PromptTokenCount),
			Output: int(um.CandidatesTokenCount),
			Total:  int(um.TotalTokenCount),
		}
	}
	return out, nil
}
