package services

import (
	"github.com/botdeck/botdeck/internal/llm"
	"github.com/botdeck/botdeck/internal/models"
)

// AssemblePrompt turns the resolved configuration and the conversation
// history into the provider message list. The system prompt always comes
// first; history follows in insertion order, complete and untruncated.
func AssemblePrompt(cfg *models.EffectiveConfig, history []*models.ChatMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: models.RoleSystem, Content: cfg.SystemPrompt})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}
