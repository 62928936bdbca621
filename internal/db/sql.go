package db

import (
	"context"

	"github.com/botdeck/botdeck/internal/models"
)

// ConfigStore defines the interface for the configuration tier: the global
// config singleton, the model catalog and per-tenant chatbot configs.
type ConfigStore interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	// Global config. GetOrCreateGlobalConfig repairs a missing row by
	// inserting defaults; it never returns a not-found error.
	GetOrCreateGlobalConfig(ctx context.Context) (*models.GlobalConfig, error)
	UpdateGlobalConfig(ctx context.Context, cfg *models.GlobalConfig) error

	// Model catalog. DeleteModel returns models.ErrModelInUse while the
	// model is referenced by a chatbot or is the global default.
	CreateModel(ctx context.Context, m *models.ModelDescriptor) error
	GetModel(ctx context.Context, id string) (*models.ModelDescriptor, error)
	ListModels(ctx context.Context, active *bool) ([]*models.ModelDescriptor, error)
	UpdateModel(ctx context.Context, m *models.ModelDescriptor) error
	DeleteModel(ctx context.Context, id string) error

	// Chatbot configs
	CreateChatbot(ctx context.Context, c *models.ChatbotConfig) error
	GetChatbot(ctx context.Context, id string) (*models.ChatbotConfig, error)
	ListChatbots(ctx context.Context, ownerID string) ([]*models.ChatbotConfig, error)
	UpdateChatbot(ctx context.Context, c *models.ChatbotConfig) error
	DeleteChatbot(ctx context.Context, id string) error
}
