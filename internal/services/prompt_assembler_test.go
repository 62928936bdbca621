package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/botdeck/botdeck/internal/models"
)

func TestAssemblePrompt(t *testing.T) {
	cfg := &models.EffectiveConfig{SystemPrompt: "Be helpful."}
	history := []*models.ChatMessage{
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleAssistant, Content: "Hello!"},
		{Role: models.RoleUser, Content: "Where is my order?"},
	}

	messages := AssemblePrompt(cfg, history)
	require.Len(t, messages, 4)
	require.Equal(t, models.RoleSystem, messages[0].Role)
	require.Equal(t, "Be helpful.", messages[0].Content)
	require.Equal(t, "Hi", messages[1].Content)
	require.Equal(t, "Hello!", messages[2].Content)
	require.Equal(t, "Where is my order?", messages[3].Content)
}

func TestAssemblePromptKeepsEveryHistoryRow(t *testing.T) {
	cfg := &models.EffectiveConfig{SystemPrompt: "Be helpful."}
	history := []*models.ChatMessage{
		{Role: models.RoleSystem, Content: "Operator note."},
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleAssistant, Content: "Hello!"},
	}

	messages := AssemblePrompt(cfg, history)
	require.Len(t, messages, 5)
	require.Equal(t, models.RoleSystem, messages[1].Role)
	require.Equal(t, "Operator note.", messages[1].Content)
	require.Equal(t, "Hi", messages[2].Content)
	require.Equal(t, "Hi", messages[3].Content)
}

func TestAssemblePromptEmptyHistory(t *testing.T) {
	cfg := &models.EffectiveConfig{SystemPrompt: "Be helpful."}

	messages := AssemblePrompt(cfg, nil)
	require.Len(t, messages, 1)
	require.Equal(t, models.RoleSystem, messages[0].Role)
}
