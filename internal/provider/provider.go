// Package provider gives the pipeline one interface over LLM backends:
// text, vision, and schema-constrained generation. The core never imports
// provider SDKs outside this package.
package provider

import (
	"context"
	"time"
)

// Name identifies a configured backend.
type Name string

const (
	Gemini Name = "gemini"
	OpenAI Name = "openai"
)

// Request carries one generation call. Images are base64 strings without
// a data: prefix; MIME defaults to image/png.
type Request struct {
	Model             string
	Prompt            string
	SystemInstruction string
	Images            []string
	Temperature       float32
	MaxTokens         int
	Timeout           time.Duration
	// JSONOnly asks the backend for a strict-JSON response where the
	// backend supports enforcing it.
	JSONOnly bool
}

// Usage reports token counts for cost tracking.
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Response is the unified generation result.
type Response struct {
	Text       string
	Usage      Usage
	Model      string
	DurationMs int64
}

// Provider is the adapter contract. Implementations return errors, never
// panic, and honor Request.Timeout via the context they derive.
type Provider interface {
	Name() Name
	GenerateText(ctx context.Context, req Request) (*Response, error)
	GenerateWithVision(ctx context.Context, req Request) (*Response, error)
	// GenerateStructured behaves like GenerateText with JSONOnly forced.
	GenerateStructured(ctx context.Context, req Request) (*Response, error)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(ctx, d)
}
