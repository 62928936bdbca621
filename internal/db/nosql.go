package db

import (
	"context"

	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/shared"
)

// TelemetryStore defines the interface for the telemetry tier: sessions,
// messages and the daily metric rollups computed from them.
type TelemetryStore interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	// Session operations. CloseSession is conditional on the session still
	// being open: it returns models.AlreadyClosedError when ended_at is
	// already set and models.NotFoundError for an unknown id.
	CreateSession(ctx context.Context, s *models.ChatSession) error
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	ListSessions(ctx context.Context, filter shared.SessionFilter) ([]*models.ChatSession, error)
	CloseSession(ctx context.Context, id string, messageCount int) error

	// Message operations. CreateMessage is idempotent by message id:
	// inserting a duplicate id is not an error.
	CreateMessage(ctx context.Context, m *models.ChatMessage) error
	ListMessages(ctx context.Context, filter shared.MessageFilter) ([]*models.ChatMessage, error)

	// Daily metric rollups. UpsertDailyMetric replaces the row keyed by
	// (chatbot_id, date) atomically; ListDailyMetrics returns rows ordered
	// by date ascending.
	UpsertDailyMetric(ctx context.Context, m *models.DailyMetric) error
	GetDailyMetric(ctx context.Context, chatbotID, date string) (*models.DailyMetric, error)
	ListDailyMetrics(ctx context.Context, chatbotID, fromDate, toDate string) ([]*models.DailyMetric, error)

	// Top-N insight queries (all-time, per chatbot)
	TopActiveUsers(ctx context.Context, chatbotID string, limit int) ([]models.ActiveUserCount, error)
	TopQueries(ctx context.Context, chatbotID string, limit int) ([]models.QueryCount, error)
}
