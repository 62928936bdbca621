package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// Message is one turn of a chat conversation as sent to a provider.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Request carries the resolved generation parameters for one completion.
// Model is the provider-side model identifier.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response is a full, non-streamed completion.
type Response struct {
	Text       string
	TokensUsed int
	LatencyMs  int64
	Model      string
	Provider   string
}

// Chunk is one increment of a streamed completion. Done marks the final
// chunk; TokensUsed is only populated on the final chunk when the provider
// reports usage.
type Chunk struct {
	Text       string
	Done       bool
	TokensUsed int
	Err        error
}

// Stream delivers completion chunks as the provider emits them. The channel
// is closed after the Done or error chunk. Close cancels the underlying
// provider request; it is safe to call more than once.
type Stream struct {
	C <-chan Chunk

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewStream pairs a consumer-facing stream with the producer's send channel.
func NewStream(cancel context.CancelFunc) (*Stream, chan Chunk) {
	ch := make(chan Chunk, 8)
	return &Stream{C: ch, cancel: cancel}, ch
}

// Close stops consumption of the upstream provider stream. Chunks already
// delivered are unaffected.
func (s *Stream) Close() {
	s.closeOnce.Do(s.cancel)
}

// Provider is a completion engine. Implementations map provider failures to
// *GenerationError and perform no retries of their own.
type Provider interface {
	// Name returns the provider name
	Name() string
	// Chat produces a full completion in one call.
	Chat(ctx context.Context, req Request) (*Response, error)
	// ChatStream produces a completion incrementally.
	ChatStream(ctx context.Context, req Request) (*Stream, error)
}

// GenerationError is a completion engine failure. Retryable marks transient
// provider errors (timeouts, rate limits, server errors); invalid requests
// and auth failures are permanent. Retry policy belongs to the caller.
type GenerationError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *GenerationError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}
	return fmt.Sprintf("%s generation failed (%s): %v", e.Provider, kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// RetryableStatus classifies an HTTP status from a provider API.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Registry holds the configured providers keyed by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider with the given name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
