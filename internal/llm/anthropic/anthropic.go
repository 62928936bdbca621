package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/botdeck/botdeck/internal/llm"
)

const anthropicVersion = "2023-06-01"

// Provider implements the LLM Provider interface for Anthropic
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a new Anthropic provider
func New(apiKey, baseURL string) *Provider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}

	return &Provider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "anthropic"
}

// requestBody builds the messages API payload. Anthropic takes the system
// prompt as a top-level field, not as a message.
func (p *Provider) requestBody(req llm.Request, stream bool) map[string]interface{} {
	var system string
	messages := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body := map[string]interface{}{
		"model":       req.Model,
		"messages":    messages,
		"temperature": req.Temperature,
		"max_tokens":  maxTokens,
	}
	if system != "" {
		body["system"] = system
	}
	if stream {
		body["stream"] = true
	}

	return body
}

func (p *Provider) newRequest(ctx context.Context, body map[string]interface{}) (*http.Request, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	return req, nil
}

// Chat produces a full completion in one call
func (p *Provider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	startTime := time.Now()

	httpReq, err := p.newRequest(ctx, p.requestBody(req, false))
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &llm.GenerationError{Provider: "anthropic", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &llm.GenerationError{
			Provider:  "anthropic",
			Retryable: llm.RetryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body)),
		}
	}

	var anthropicResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Model string `json:"model"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var text strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &llm.Response{
		Text:       text.String(),
		TokensUsed: anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		LatencyMs:  time.Since(startTime).Milliseconds(),
		Model:      anthropicResp.Model,
		Provider:   "anthropic",
	}, nil
}

// ChatStream produces a completion incrementally via server-sent events
func (p *Provider) ChatStream(ctx context.Context, req llm.Request) (*llm.Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	httpReq, err := p.newRequest(ctx, p.requestBody(req, true))
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, &llm.GenerationError{Provider: "anthropic", Retryable: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, &llm.GenerationError{
			Provider:  "anthropic",
			Retryable: llm.RetryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body)),
		}
	}

	stream, ch := llm.NewStream(cancel)

	go func() {
		defer close(ch)
		defer cancel()
		defer resp.Body.Close()

		tokens := 0
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var event struct {
				Type  string `json:"type"`
				Delta struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"delta"`
				Usage struct {
					OutputTokens int `json:"output_tokens"`
				} `json:"usage"`
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
				continue
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta.Type != "text_delta" || event.Delta.Text == "" {
					continue
				}
				select {
				case ch <- llm.Chunk{Text: event.Delta.Text}:
				case <-ctx.Done():
					return
				}
			case "message_delta":
				if event.Usage.OutputTokens > 0 {
					tokens = event.Usage.OutputTokens
				}
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case ch <- llm.Chunk{Err: &llm.GenerationError{Provider: "anthropic", Retryable: true, Err: err}}:
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
