package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient abstracts the OpenAI client for testability; any
// OpenAI-compatible backend can be adapted.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider adapts an OpenAI-compatible chat backend.
type OpenAIProvider struct {
	Client ChatClient
}

// NewOpenAIProvider builds the adapter from an API key.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{Client: openai.NewClient(apiKey)}
}

func (p *OpenAIProvider) Name() Name { return OpenAI }

func (p *OpenAIProvider) GenerateText(ctx context.Context, req Request) (*Response, error) {
	return p.generate(ctx, req, nil)
}

func (p *OpenAIProvider) GenerateWithVision(ctx context.Context, req Request) (*Response, error) {
	if len(req.Images) == 0 {
		return nil, errors.New("vision request without images")
	}
	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/png;base64," + img,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return p.generate(ctx, req, parts)
}

func (p *OpenAIProvider) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	req.JSONOnly = true
	return p.generate(ctx, req, nil)
}

func (p *OpenAIProvider) generate(ctx context.Context, req Request, vision []openai.ChatMessagePart) (*Response, error) {
	if p.Client == nil {
		return nil, errors.New("openai provider not configured")
	}
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.SystemInstruction,
		})
	}
	if vision != nil {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser, MultiContent: vision,
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser, Content: req.Prompt,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		N:           1,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.JSONOnly {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := p.Client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices from model")
	}
	return &Response{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			Input:  resp.Usage.PromptTokens,
			Output: resp.Usage.CompletionTokens,
			Total:  resp.Usage.TotalTokens,
		},
		Model:      resp.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}
