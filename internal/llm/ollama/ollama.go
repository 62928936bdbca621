package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/botdeck/botdeck/internal/llm"
)

// Provider implements the LLM Provider interface for Ollama
type Provider struct {
	baseURL string
	client  *http.Client
}

// New creates a new Ollama provider
func New(baseURL string) *Provider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &Provider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "ollama"
}

func (p *Provider) requestBody(req llm.Request, stream bool) map[string]interface{} {
	messages := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	options := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	return map[string]interface{}{
		"model":    req.Model,
		"messages": messages,
		"stream":   stream,
		"options":  options,
	}
}

func (p *Provider) newRequest(ctx context.Context, body map[string]interface{}) (*http.Request, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/chat", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// chatLine is one NDJSON line from the Ollama chat endpoint.
type chatLine struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	EvalCount       int  `json:"eval_count"`
	PromptEvalCount int  `json:"prompt_eval_count"`
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
		return nil, &llm.GenerationError{Provider: "ollama", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &llm.GenerationError{
			Provider:  "ollama",
			Retryable: llm.RetryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body)),
		}
	}

	var line chatLine
	if err := json.Unmarshal(body, &line); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &llm.Response{
		Text:       line.Message.Content,
		TokensUsed: line.PromptEvalCount + line.EvalCount,
		LatencyMs:  time.Since(startTime).Milliseconds(),
		Model:      line.Model,
		Provider:   "ollama",
	}, nil
}

// ChatStream produces a completion incrementally via newline-delimited JSON
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
		return nil, &llm.GenerationError{Provider: "ollama", Retryable: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, &llm.GenerationError{
			Provider:  "ollama",
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
			var line chatLine
			if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
				continue
			}

			if line.Message.Content != "" {
				select {
				case ch <- llm.Chunk{Text: line.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			if line.Done {
				tokens = line.PromptEvalCount + line.EvalCount
				break
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case ch <- llm.Chunk{Err: &llm.GenerationError{Provider: "ollama", Retryable: true, Err: err}}:
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
