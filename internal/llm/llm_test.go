package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticProvider struct{ name string }

func (p *staticProvider) Name() string { return p.name }
func (p *staticProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	return &Response{Text: "ok", Provider: p.name}, nil
}
func (p *staticProvider) ChatStream(ctx context.Context, req Request) (*Stream, error) {
	_, cancel := context.WithCancel(ctx)
	stream, ch := NewStream(cancel)
	close(ch)
	return stream, nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&staticProvider{name: "openai"})
	registry.Register(&staticProvider{name: "ollama"})

	p, ok := registry.Get("openai")
	require.True(t, ok)
	require.Equal(t, "openai", p.Name())

	_, ok = registry.Get("anthropic")
	require.False(t, ok)

	require.ElementsMatch(t, []string{"openai", "ollama"}, registry.Names())
}

func TestGenerationErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &GenerationError{Provider: "openai", Retryable: true, Err: cause}

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "transient")

	permanent := &GenerationError{Provider: "openai", Err: errors.New("invalid api key")}
	require.Contains(t, permanent.Error(), "permanent")
}

func TestRetryableStatus(t *testing.T) {
	require.True(t, RetryableStatus(http.StatusTooManyRequests))
	require.True(t, RetryableStatus(http.StatusInternalServerError))
	require.True(t, RetryableStatus(http.StatusBadGateway))
	require.False(t, RetryableStatus(http.StatusBadRequest))
	require.False(t, RetryableStatus(http.StatusUnauthorized))
	require.False(t, RetryableStatus(http.StatusNotFound))
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	calls := 0
	stream, ch := NewStream(func() { calls++ })
	close(ch)

	stream.Close()
	stream.Close()
	require.Equal(t, 1, calls)
}
