package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/botdeck/botdeck/internal/models"
)

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func seedResolver(t *testing.T) (*ResolverService, *fakeConfigStore) {
	t.Helper()
	store := newFakeConfigStore()
	_, err := store.GetOrCreateGlobalConfig(context.Background())
	require.NoError(t, err)
	return NewResolverService(store), store
}

func TestResolveInheritsGlobalDefaults(t *testing.T) {
	resolver, store := seedResolver(t)
	ctx := context.Background()

	require.NoError(t, store.CreateModel(ctx, models.BootstrapModel()))
	require.NoError(t, store.CreateChatbot(ctx, &models.ChatbotConfig{
		ID:      "bot-1",
		OwnerID: "tenant-1",
		Name:    "Support Bot",
	}))

	cfg, err := resolver.Resolve(ctx, "bot-1")
	require.NoError(t, err)
	require.Equal(t, 0.7, cfg.Temperature)
	require.Equal(t, 1000, cfg.MaxTokens)
	require.Equal(t, models.BootstrapModelID, cfg.Model.ID)
}

func TestResolveAppliesChatbotOverrides(t *testing.T) {
	resolver, store := seedResolver(t)
	ctx := context.Background()

	require.NoError(t, store.CreateModel(ctx, &models.ModelDescriptor{
		ID: "gpt-4o", Provider: "openai", ProviderModelID: "gpt-4o", MaxTokens: 8192, IsActive: true,
	}))
	require.NoError(t, store.CreateChatbot(ctx, &models.ChatbotConfig{
		ID:          "bot-1",
		OwnerID:     "tenant-1",
		Name:        "Sales Bot",
		Temperature: floatPtr(0.2),
		MaxTokens:   intPtr(500),
		ModelID:     strPtr("gpt-4o"),
	}))

	cfg, err := resolver.Resolve(ctx, "bot-1")
	require.NoError(t, err)
	require.Equal(t, 0.2, cfg.Temperature)
	require.Equal(t, 500, cfg.MaxTokens)
	require.Equal(t, "gpt-4o", cfg.Model.ID)
}

func TestResolveUnknownChatbot(t *testing.T) {
	resolver, _ := seedResolver(t)

	_, err := resolver.Resolve(context.Background(), "nope")
	require.Error(t, err)
	require.True(t, models.IsNotFound(err))
}

func TestResolveModelFallbackChain(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive override falls through to global default", func(t *testing.T) {
		resolver, store := seedResolver(t)
		require.NoError(t, store.CreateModel(ctx, &models.ModelDescriptor{
			ID: "legacy", Provider: "openai", ProviderModelID: "legacy", IsActive: false,
		}))
		require.NoError(t, store.CreateModel(ctx, models.BootstrapModel()))
		require.NoError(t, store.CreateChatbot(ctx, &models.ChatbotConfig{
			ID: "bot-1", OwnerID: "t", Name: "Bot", ModelID: strPtr("legacy"),
		}))

		cfg, err := resolver.Resolve(ctx, "bot-1")
		require.NoError(t, err)
		require.Equal(t, models.BootstrapModelID, cfg.Model.ID)
	})

	t.Run("missing global default falls through to bootstrap catalog entry", func(t *testing.T) {
		resolver, store := seedResolver(t)
		store.global.DefaultModelID = "ghost"
		require.NoError(t, store.CreateModel(ctx, &models.ModelDescriptor{
			ID: models.BootstrapModelID, Provider: "openai", ProviderModelID: "gpt-4o-mini", MaxTokens: 2048, IsActive: true,
		}))
		require.NoError(t, store.CreateChatbot(ctx, &models.ChatbotConfig{
			ID: "bot-1", OwnerID: "t", Name: "Bot",
		}))

		cfg, err := resolver.Resolve(ctx, "bot-1")
		require.NoError(t, err)
		require.Equal(t, models.BootstrapModelID, cfg.Model.ID)
		require.Equal(t, 2048, cfg.Model.MaxTokens)
	})

	t.Run("empty catalog resolves the builtin bootstrap", func(t *testing.T) {
		resolver, store := seedResolver(t)
		require.NoError(t, store.CreateChatbot(ctx, &models.ChatbotConfig{
			ID: "bot-1", OwnerID: "t", Name: "Bot",
		}))

		cfg, err := resolver.Resolve(ctx, "bot-1")
		require.NoError(t, err)
		require.Equal(t, models.BootstrapModelID, cfg.Model.ID)
		require.Equal(t, "openai", cfg.Model.Provider)
		require.True(t, cfg.Model.IsActive)
	})
}

func TestBuildSystemPromptOrdering(t *testing.T) {
	global := &models.GlobalConfig{
		SystemPrompt:  "Be helpful.",
		AllowedTopics: "shoes, orders",
		BlockedTopics: "politics",
	}
	chatbot := &models.ChatbotConfig{
		Name:          "ShoeBot",
		CustomPrompt:  "You sell shoes.",
		KnowledgeBase: "We ship worldwide.",
	}

	prompt := BuildSystemPrompt(global, chatbot)
	sections := strings.Split(prompt, "\n\n")
	require.Len(t, sections, 5)
	require.Equal(t, "Be helpful.", sections[0])
	require.Equal(t, "You sell shoes.", sections[1])
	require.Equal(t, "Knowledge Base:\nWe ship worldwide.", sections[2])
	require.Equal(t, "Allowed topics: shoes, orders\nBlocked topics: politics", sections[3])
	require.Contains(t, sections[4], `You are "ShoeBot".`)
}

func TestBuildSystemPromptSkipsEmptySections(t *testing.T) {
	global := &models.GlobalConfig{SystemPrompt: "Be helpful."}
	chatbot := &models.ChatbotConfig{Name: "Bot"}

	prompt := BuildSystemPrompt(global, chatbot)
	require.NotContains(t, prompt, "Knowledge Base:")
	require.NotContains(t, prompt, "Allowed topics:")
	require.NotContains(t, prompt, "Blocked topics:")
	sections := strings.Split(prompt, "\n\n")
	require.Len(t, sections, 2)
}
