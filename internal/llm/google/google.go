package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/botdeck/botdeck/internal/llm"
)

// Provider implements the LLM Provider interface for Google AI
type Provider struct {
	apiKey string
	client *genai.Client
}

// New creates a new Google provider
func New(apiKey string) *Provider {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		client = nil
	}

	return &Provider{
		apiKey: apiKey,
		client: client,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "google"
}

func (p *Provider) getClient(ctx context.Context) (*genai.Client, error) {
	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	return client, nil
}

// buildRequest maps chat messages onto genai contents. The system prompt
// travels as SystemInstruction; assistant turns become role "model".
func buildRequest(req llm.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{
		Temperature: float32Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == "system" {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
			}
			continue
		}

		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	return contents, config
}

func chunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

// Chat produces a full completion in one call
func (p *Provider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	startTime := time.Now()

	client, err := p.getClient(ctx)
	if err != nil {
		return nil, &llm.GenerationError{Provider: "google", Retryable: false, Err: err}
	}

	contents, config := buildRequest(req)

	result, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, wrapError(err)
	}

	tokensUsed := 0
	if result.UsageMetadata != nil {
		tokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}

	return &llm.Response{
		Text:       chunkText(result),
		TokensUsed: tokensUsed,
		LatencyMs:  time.Since(startTime).Milliseconds(),
		Model:      req.Model,
		Provider:   "google",
	}, nil
}

// ChatStream produces a completion incrementally
func (p *Provider) ChatStream(ctx context.Context, req llm.Request) (*llm.Stream, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, &llm.GenerationError{Provider: "google", Retryable: false, Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	contents, config := buildRequest(req)
	stream, ch := llm.NewStream(cancel)

	go func() {
		defer close(ch)
		defer cancel()

		tokens := 0
		for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case ch <- llm.Chunk{Err: wrapError(err)}:
				case <-ctx.Done():
				}
				return
			}
			if resp.UsageMetadata != nil {
				tokens = int(resp.UsageMetadata.TotalTokenCount)
			}
			text := chunkText(resp)
			if text == "" {
				continue
			}
			select {
			case ch <- llm.Chunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case ch <- llm.Chunk{Done: true, TokensUsed: tokens}:
		case <-ctx.Done():
		}
	}()

	return stream, nil
}

func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.GenerationError{
			Provider:  "google",
			Retryable: llm.RetryableStatus(apiErr.Code),
			Err:       err,
		}
	}
	return &llm.GenerationError{Provider: "google", Retryable: true, Err: err}
}

func float32Ptr(f float32) *float32 {
	return &f
}
