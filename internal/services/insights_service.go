package services

import (
	"context"
	"fmt"
	"time"

	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/shared"
)

const (
	defaultInsightDays = 7
	maxInsightDays     = 90

	topUsersLimit   = 5
	topQueriesLimit = 10
)

// InsightsService assembles the per-chatbot dashboard view: live totals
// over the recent window, the precomputed daily series, and the all-time
// top users and queries.
type InsightsService struct {
	config    db.ConfigStore
	telemetry db.TelemetryStore
}

// NewInsightsService creates a new insights service
func NewInsightsService(config db.ConfigStore, telemetry db.TelemetryStore) *InsightsService {
	return &InsightsService{config: config, telemetry: telemetry}
}

// GetInsights returns the insight bundle for one chatbot. days clamps to
// [1, 90]; zero means the 7-day default. Totals come from raw sessions so
// they include days the rollup has not covered yet, while the daily series
// reads the precomputed rows as-is.
func (s *InsightsService) GetInsights(ctx context.Context, chatbotID string, days int) (*models.Insights, error) {
	if days <= 0 {
		days = defaultInsightDays
	}
	if days > maxInsightDays {
		days = maxInsightDays
	}

	if _, err := s.config.GetChatbot(ctx, chatbotID); err != nil {
		return nil, err
	}

	today, _ := shared.DayBounds(time.Now().UTC())
	windowStart := today.AddDate(0, 0, -(days - 1))

	totals, err := s.computeTotals(ctx, chatbotID, windowStart)
	if err != nil {
		return nil, err
	}

	series, err := s.telemetry.ListDailyMetrics(ctx, chatbotID,
		windowStart.Format(models.MetricDate), today.Format(models.MetricDate))
	if err != nil {
		return nil, fmt.Errorf("failed to load daily metrics: %w", err)
	}

	topUsers, err := s.telemetry.TopActiveUsers(ctx, chatbotID, topUsersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top users: %w", err)
	}

	topQueries, err := s.telemetry.TopQueries(ctx, chatbotID, topQueriesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top queries: %w", err)
	}

	return &models.Insights{
		ChatbotID:      chatbotID,
		Days:           days,
		Totals:         totals,
		DailySeries:    series,
		TopActiveUsers: topUsers,
		TopQueries:     topQueries,
	}, nil
}

// computeTotals sums over raw sessions started inside the window, open
// sessions included.
func (s *InsightsService) computeTotals(ctx context.Context, chatbotID string, windowStart time.Time) (models.InsightTotals, error) {
	sessions, err := s.telemetry.ListSessions(ctx, shared.SessionFilter{
		ChatbotID:    chatbotID,
		StartedAfter: &windowStart,
	})
	if err != nil {
		return models.InsightTotals{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	totals := models.InsightTotals{SessionCount: len(sessions)}
	users := make(map[string]struct{})
	visitors := make(map[string]struct{})
	for _, session := range sessions {
		totals.MessageCount += session.MessageCount
		if session.UserID != "" {
			users[session.UserID] = struct{}{}
		}
		if session.VisitorID != "" {
			visitors[session.VisitorID] = struct{}{}
		}
	}
	totals.UniqueUsers = len(users) + len(visitors)
	return totals, nil
}
