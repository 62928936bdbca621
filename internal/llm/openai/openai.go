package openai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/botdeck/botdeck/internal/llm"
)

// Provider implements the LLM Provider interface for OpenAI. A non-empty
// baseURL points it at any OpenAI-compatible endpoint (Perplexity, vLLM,
// proxies).
type Provider struct {
	client openai.Client
}

// New creates a new OpenAI provider
func New(apiKey, baseURL string) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Provider{
		client: openai.NewClient(opts...),
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "openai"
}

// Chat produces a full completion in one call
func (p *Provider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	startTime := time.Now()

	completion, err := p.client.Chat.Completions.New(ctx, buildParams(req))
	if err != nil {
		return nil, p.wrapError(err)
	}

	var text string
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
	}

	return &llm.Response{
		Text:       text,
		TokensUsed: int(completion.Usage.TotalTokens),
		LatencyMs:  time.Since(startTime).Milliseconds(),
		Model:      completion.Model,
		Provider:   "openai",
	}, nil
}

// ChatStream produces a completion incrementally
func (p *Provider) ChatStream(ctx context.Context, req llm.Request) (*llm.Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	params := buildParams(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	upstream := p.client.Chat.Completions.NewStreaming(ctx, params)
	stream, ch := llm.NewStream(cancel)

	go func() {
		defer close(ch)
		defer cancel()

		tokens := 0
		for upstream.Next() {
			event := upstream.Current()
			if event.Usage.TotalTokens > 0 {
				tokens = int(event.Usage.TotalTokens)
			}
			if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case ch <- llm.Chunk{Text: event.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}

		if err := upstream.Err(); err != nil && ctx.Err() == nil {
			select {
			case ch <- llm.Chunk{Err: p.wrapError(err)}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case ch <- llm.Chunk{Done: true, TokensUsed: tokens}:
		case <-ctx.Done():
		}
	}()

	return stream, nil
}

func buildParams(req llm.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params
}

func (p *Provider) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &llm.GenerationError{
			Provider:  "openai",
			Retryable: llm.RetryableStatus(apiErr.StatusCode),
			Err:       err,
		}
	}
	// Network-level failures (connection reset, timeout) are transient.
	return &llm.GenerationError{Provider: "openai", Retryable: true, Err: err}
}
