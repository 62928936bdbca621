package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/botdeck/botdeck/internal/llm"
	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/shared"
)

// fakeProvider replays canned chunks and records the request it received.
type fakeProvider struct {
	name    string
	chunks  []llm.Chunk
	lastReq llm.Request
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.lastReq = req
	text := ""
	tokens := 0
	for _, chunk := range p.chunks {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		text += chunk.Text
		if chunk.Done {
			tokens = chunk.TokensUsed
		}
	}
	return &llm.Response{Text: text, TokensUsed: tokens, Model: req.Model, Provider: p.name}, nil
}

func (p *fakeProvider) ChatStream(ctx context.Context, req llm.Request) (*llm.Stream, error) {
	p.lastReq = req
	streamCtx, cancel := context.WithCancel(ctx)
	stream, ch := llm.NewStream(cancel)
	go func() {
		defer close(ch)
		for _, chunk := range p.chunks {
			select {
			case ch <- chunk:
			case <-streamCtx.Done():
				return
			}
			if chunk.Done || chunk.Err != nil {
				return
			}
		}
	}()
	return stream, nil
}

func seedChat(t *testing.T, provider llm.Provider) (*ChatService, *fakeTelemetryStore, string) {
	t.Helper()
	ctx := context.Background()

	config := newFakeConfigStore()
	telemetry := newFakeTelemetryStore()
	_, err := config.GetOrCreateGlobalConfig(ctx)
	require.NoError(t, err)
	require.NoError(t, config.CreateChatbot(ctx, &models.ChatbotConfig{
		ID: "bot-1", OwnerID: "tenant-1", Name: "Support Bot",
	}))

	registry := llm.NewRegistry()
	if provider != nil {
		registry.Register(provider)
	}

	resolver := NewResolverService(config)
	sessions := NewSessionService(config, telemetry)
	chat := NewChatService(registry, resolver, sessions, telemetry)

	session, err := sessions.StartSession(ctx, "bot-1", Identity{UserID: "alice"})
	require.NoError(t, err)
	return chat, telemetry, session.ID
}

func TestAnswerStreamsAndPersists(t *testing.T) {
	provider := &fakeProvider{
		name: "openai",
		chunks: []llm.Chunk{
			{Text: "We ship "},
			{Text: "worldwide."},
			{Done: true, TokensUsed: 42},
		},
	}
	chat, telemetry, sessionID := seedChat(t, provider)
	ctx := context.Background()

	var streamed string
	message, err := chat.Answer(ctx, "bot-1", sessionID, "Do you ship abroad?", func(text string) error {
		streamed += text
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "We ship worldwide.", streamed)
	require.Equal(t, "We ship worldwide.", message.Content)
	require.Equal(t, models.RoleAssistant, message.Role)
	require.Equal(t, 42, message.Tokens)
	require.Equal(t, models.BootstrapModelID, message.ModelID)

	messages, err := telemetry.ListMessages(ctx, shared.MessageFilter{SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, models.RoleUser, messages[0].Role)
	require.Equal(t, "Do you ship abroad?", messages[0].Content)

	// The provider got the system prompt first, then the user turn.
	require.Len(t, provider.lastReq.Messages, 2)
	require.Equal(t, models.RoleSystem, provider.lastReq.Messages[0].Role)
	require.Contains(t, provider.lastReq.Messages[0].Content, `You are "Support Bot".`)
	require.Equal(t, models.RoleUser, provider.lastReq.Messages[1].Role)
}

func TestAnswerUnknownProvider(t *testing.T) {
	chat, telemetry, sessionID := seedChat(t, nil)

	_, err := chat.Answer(context.Background(), "bot-1", sessionID, "hello", nil)
	var degraded *models.DegradedConfigError
	require.ErrorAs(t, err, &degraded)

	// The user message is logged before generation is attempted.
	messages, err := telemetry.ListMessages(context.Background(), shared.MessageFilter{SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, models.RoleUser, messages[0].Role)
}

func TestAnswerStreamFailureDropsAssistantMessage(t *testing.T) {
	genErr := &llm.GenerationError{Provider: "openai", Retryable: true, Err: errors.New("rate limited")}
	provider := &fakeProvider{
		name: "openai",
		chunks: []llm.Chunk{
			{Text: "We sh"},
			{Err: genErr},
		},
	}
	chat, telemetry, sessionID := seedChat(t, provider)
	ctx := context.Background()

	_, err := chat.Answer(ctx, "bot-1", sessionID, "Do you ship abroad?", nil)
	var returned *llm.GenerationError
	require.ErrorAs(t, err, &returned)
	require.True(t, returned.Retryable)

	messages, err := telemetry.ListMessages(ctx, shared.MessageFilter{SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, models.RoleUser, messages[0].Role)
}

func TestAnswerTruncatedStreamDropsAssistantMessage(t *testing.T) {
	// The channel closes after a partial chunk with neither Done nor an
	// error, as the providers do on cancellation mid-stream.
	provider := &fakeProvider{
		name:   "openai",
		chunks: []llm.Chunk{{Text: "We sh"}},
	}
	chat, telemetry, sessionID := seedChat(t, provider)
	ctx := context.Background()

	_, err := chat.Answer(ctx, "bot-1", sessionID, "Do you ship abroad?", nil)
	var returned *llm.GenerationError
	require.ErrorAs(t, err, &returned)
	require.True(t, returned.Retryable)

	messages, err := telemetry.ListMessages(ctx, shared.MessageFilter{SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, models.RoleUser, messages[0].Role)
}

func TestAnswerSessionChatbotMismatch(t *testing.T) {
	provider := &fakeProvider{name: "openai", chunks: []llm.Chunk{{Done: true}}}
	chat, _, sessionID := seedChat(t, provider)

	_, err := chat.Answer(context.Background(), "other-bot", sessionID, "hi", nil)
	require.Error(t, err)
	require.True(t, models.IsNotFound(err))
}

func TestGenerateStreamClampsMaxTokens(t *testing.T) {
	provider := &fakeProvider{name: "openai", chunks: []llm.Chunk{{Done: true}}}
	chat, _, _ := seedChat(t, provider)

	cfg := &models.EffectiveConfig{
		ChatbotID:   "bot-1",
		ChatbotName: "Support Bot",
		Temperature: 0.5,
		MaxTokens:   100000,
		Model:       models.BootstrapModel(),
	}

	stream, err := chat.GenerateStream(context.Background(), cfg, []llm.Message{{Role: models.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	defer stream.Close()
	for range stream.C {
	}

	require.Equal(t, models.BootstrapModel().MaxTokens, provider.lastReq.MaxTokens)
	require.Equal(t, models.BootstrapModel().ProviderModelID, provider.lastReq.Model)
}
