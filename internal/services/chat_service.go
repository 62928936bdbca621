package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/llm"
	"github.com/botdeck/botdeck/internal/logger"
	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/shared"
)

// ChatService generates chatbot responses: it resolves the effective
// configuration, assembles the prompt from the session history and streams
// the completion from the configured provider.
type ChatService struct {
	registry  *llm.Registry
	resolver  *ResolverService
	sessions  *SessionService
	telemetry db.TelemetryStore
}

// NewChatService creates a new chat service
func NewChatService(registry *llm.Registry, resolver *ResolverService, sessions *SessionService, telemetry db.TelemetryStore) *ChatService {
	return &ChatService{
		registry:  registry,
		resolver:  resolver,
		sessions:  sessions,
		telemetry: telemetry,
	}
}

// Generate produces a full completion in one call.
func (s *ChatService) Generate(ctx context.Context, cfg *models.EffectiveConfig, messages []llm.Message) (*llm.Response, error) {
	provider, ok := s.registry.Get(cfg.Model.Provider)
	if !ok {
		return nil, &models.DegradedConfigError{
			Reason: fmt.Sprintf("provider %q for model %q is not configured", cfg.Model.Provider, cfg.Model.ID),
		}
	}
	return provider.Chat(ctx, s.buildRequest(cfg, messages))
}

// GenerateStream streams a completion for an already assembled message list.
// The request's max tokens are clamped to the model's limit when the model
// declares one.
func (s *ChatService) GenerateStream(ctx context.Context, cfg *models.EffectiveConfig, messages []llm.Message) (*llm.Stream, error) {
	provider, ok := s.registry.Get(cfg.Model.Provider)
	if !ok {
		return nil, &models.DegradedConfigError{
			Reason: fmt.Sprintf("provider %q for model %q is not configured", cfg.Model.Provider, cfg.Model.ID),
		}
	}

	return provider.ChatStream(ctx, s.buildRequest(cfg, messages))
}

// buildRequest clamps the requested max tokens to the model's limit when the
// model declares one.
func (s *ChatService) buildRequest(cfg *models.EffectiveConfig, messages []llm.Message) llm.Request {
	maxTokens := cfg.MaxTokens
	if cfg.Model.MaxTokens > 0 && maxTokens > cfg.Model.MaxTokens {
		maxTokens = cfg.Model.MaxTokens
	}
	return llm.Request{
		Model:       cfg.Model.ProviderModelID,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   maxTokens,
	}
}

// Answer runs one full chat turn: log the user message, stream the
// assistant's reply chunk by chunk through onChunk, and persist the
// assistant message once the stream completes. A failed or interrupted
// stream persists nothing for the assistant; the user message stays logged.
func (s *ChatService) Answer(ctx context.Context, chatbotID, sessionID, content string, onChunk func(text string) error) (*models.ChatMessage, error) {
	cfg, err := s.resolver.Resolve(ctx, chatbotID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ChatbotID != chatbotID {
		return nil, &models.NotFoundError{Resource: "session", ID: sessionID}
	}

	if _, err := s.sessions.LogMessage(ctx, sessionID, models.RoleUser, content, 0, ""); err != nil {
		return nil, err
	}

	history, err := s.telemetry.ListMessages(ctx, shared.MessageFilter{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}

	stream, err := s.GenerateStream(ctx, cfg, AssemblePrompt(cfg, history))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var reply strings.Builder
	tokens := 0
	completed := false
	for chunk := range stream.C {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		if chunk.Text != "" {
			reply.WriteString(chunk.Text)
			if onChunk != nil {
				if err := onChunk(chunk.Text); err != nil {
					return nil, err
				}
			}
		}
		if chunk.Done {
			tokens = chunk.TokensUsed
			completed = true
			break
		}
	}

	// A channel that closed without a Done chunk (cancellation, provider
	// disconnect) left the reply partial. Partial replies are never persisted.
	if !completed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, &llm.GenerationError{
			Provider:  cfg.Model.Provider,
			Retryable: true,
			Err:       fmt.Errorf("stream ended before completion"),
		}
	}

	message, err := s.sessions.LogMessage(ctx, sessionID, models.RoleAssistant, reply.String(), tokens, cfg.Model.ID)
	if err != nil {
		return nil, err
	}

	logger.Debug("Answered session %s with model %s (%d tokens)", sessionID, cfg.Model.ID, tokens)
	return message, nil
}
