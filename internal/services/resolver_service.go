package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/logger"
	"github.com/botdeck/botdeck/internal/models"
)

// ResolverService merges the global config tier, the per-chatbot tier and
// the model catalog into one EffectiveConfig for a single chat turn.
type ResolverService struct {
	store db.ConfigStore
}

// NewResolverService creates a new resolver service
func NewResolverService(store db.ConfigStore) *ResolverService {
	return &ResolverService{store: store}
}

// modelSource is one step of the model fallback chain. found=false moves
// resolution on to the next step; an error aborts (infrastructure only,
// never "row missing").
type modelSource struct {
	name    string
	resolve func(ctx context.Context) (*models.ModelDescriptor, bool, error)
}

// Resolve builds the effective configuration for one chat turn. A missing
// chatbot fails with NotFoundError; a missing global config self-heals and
// a missing or inactive model falls back, so neither ever fails the turn.
func (s *ResolverService) Resolve(ctx context.Context, chatbotID string) (*models.EffectiveConfig, error) {
	global, err := s.store.GetOrCreateGlobalConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}

	chatbot, err := s.store.GetChatbot(ctx, chatbotID)
	if err != nil {
		return nil, err
	}

	model, err := s.resolveModel(ctx, chatbot, global)
	if err != nil {
		return nil, err
	}

	temperature := global.Temperature
	if chatbot.Temperature != nil {
		temperature = *chatbot.Temperature
	}

	maxTokens := global.MaxTokens
	if chatbot.MaxTokens != nil {
		maxTokens = *chatbot.MaxTokens
	}

	return &models.EffectiveConfig{
		ChatbotID:    chatbot.ID,
		ChatbotName:  chatbot.Name,
		SystemPrompt: BuildSystemPrompt(global, chatbot),
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		Model:        model,
	}, nil
}

// resolveModel walks the fallback chain in order. The chain terminates in
// a compile-time constant, so a preferred model going inactive can degrade
// a turn but never fail it.
func (s *ResolverService) resolveModel(ctx context.Context, chatbot *models.ChatbotConfig, global *models.GlobalConfig) (*models.ModelDescriptor, error) {
	chain := []modelSource{
		{
			name: "chatbot override",
			resolve: func(ctx context.Context) (*models.ModelDescriptor, bool, error) {
				if chatbot.ModelID == nil || *chatbot.ModelID == "" {
					return nil, false, nil
				}
				return s.lookupActive(ctx, *chatbot.ModelID)
			},
		},
		{
			name: "global default",
			resolve: func(ctx context.Context) (*models.ModelDescriptor, bool, error) {
				if global.DefaultModelID == "" {
					return nil, false, nil
				}
				return s.lookupActive(ctx, global.DefaultModelID)
			},
		},
		{
			name: "bootstrap catalog entry",
			resolve: func(ctx context.Context) (*models.ModelDescriptor, bool, error) {
				return s.lookupActive(ctx, models.BootstrapModelID)
			},
		},
		{
			name: "builtin bootstrap",
			resolve: func(ctx context.Context) (*models.ModelDescriptor, bool, error) {
				return models.BootstrapModel(), true, nil
			},
		},
	}

	for _, source := range chain {
		model, found, err := source.resolve(ctx)
		if err != nil {
			return nil, err
		}
		if found {
			logger.Debug("Resolved model %s for chatbot %s via %s", model.ID, chatbot.ID, source.name)
			return model, nil
		}
	}

	// Unreachable: the builtin bootstrap always resolves.
	return nil, &models.DegradedConfigError{Reason: "model fallback chain exhausted"}
}

// lookupActive fetches a catalog entry, treating a missing or inactive
// model as notFound rather than an error.
func (s *ResolverService) lookupActive(ctx context.Context, id string) (*models.ModelDescriptor, bool, error) {
	model, err := s.store.GetModel(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !model.IsActive {
		return nil, false, nil
	}
	return model, true, nil
}

// BuildSystemPrompt concatenates the prompt sections in fixed order:
// global prompt, chatbot custom prompt, knowledge base (if any), topic
// constraints, closing instruction. Tenant instructions can narrow but
// never precede the operator's global constraints, and the knowledge base
// sits last among inputs so it is closest to the user's question.
func BuildSystemPrompt(global *models.GlobalConfig, chatbot *models.ChatbotConfig) string {
	var sections []string

	if prompt := strings.TrimSpace(global.SystemPrompt); prompt != "" {
		sections = append(sections, prompt)
	}
	if custom := strings.TrimSpace(chatbot.CustomPrompt); custom != "" {
		sections = append(sections, custom)
	}
	if kb := strings.TrimSpace(chatbot.KnowledgeBase); kb != "" {
		sections = append(sections, "Knowledge Base:\n"+kb)
	}

	var topics []string
	if allowed := strings.TrimSpace(global.AllowedTopics); allowed != "" {
		topics = append(topics, "Allowed topics: "+allowed)
	}
	if blocked := strings.TrimSpace(global.BlockedTopics); blocked != "" {
		topics = append(topics, "Blocked topics: "+blocked)
	}
	if len(topics) > 0 {
		sections = append(sections, strings.Join(topics, "\n"))
	}

	sections = append(sections, fmt.Sprintf(
		"You are %q. Answer questions using the knowledge base above. If the answer is not covered there, politely say you do not know.",
		chatbot.Name,
	))

	return strings.Join(sections, "\n\n")
}
