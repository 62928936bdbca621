package services

import (
	"context"
	"fmt"
	"time"

	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/logger"
	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/shared"
)

// MetricsService computes DailyMetric rollups from completed sessions.
// A session counts toward the UTC day it ended on, so a rollup row becomes
// stable once the day is over and every session from it has been closed.
type MetricsService struct {
	telemetry db.TelemetryStore
}

// NewMetricsService creates a new metrics service
func NewMetricsService(telemetry db.TelemetryStore) *MetricsService {
	return &MetricsService{telemetry: telemetry}
}

// ComputeDailyMetric recomputes the rollup for one chatbot and one UTC day
// from scratch and replaces the stored row. Recomputation over unchanged
// sessions produces an identical row. A day with no completed sessions
// writes nothing and returns nil.
func (s *MetricsService) ComputeDailyMetric(ctx context.Context, chatbotID string, day time.Time) (*models.DailyMetric, error) {
	start, end := shared.DayBounds(day)

	sessions, err := s.telemetry.ListSessions(ctx, shared.SessionFilter{
		ChatbotID:    chatbotID,
		ClosedOnly:   true,
		ClosedAfter:  &start,
		ClosedBefore: &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for rollup: %w", err)
	}

	if len(sessions) == 0 {
		return nil, nil
	}

	metric := buildDailyMetric(chatbotID, start.Format(models.MetricDate), sessions)
	if err := s.telemetry.UpsertDailyMetric(ctx, metric); err != nil {
		return nil, fmt.Errorf("failed to store daily metric: %w", err)
	}

	logger.Debug("Rolled up %s/%s: %d sessions, %d messages",
		chatbotID, metric.Date, metric.SessionCount, metric.MessageCount)
	return metric, nil
}

// GetDailyMetric returns the stored rollup for one chatbot and one UTC day.
// A day with no completed sessions has no row and reads as NotFoundError,
// which is distinct from a stored row with zero counts.
func (s *MetricsService) GetDailyMetric(ctx context.Context, chatbotID string, day time.Time) (*models.DailyMetric, error) {
	start, _ := shared.DayBounds(day)
	return s.telemetry.GetDailyMetric(ctx, chatbotID, start.Format(models.MetricDate))
}

// BackfillChatbot recomputes the last days rollups for one chatbot, today
// included. Late session closes land in an earlier day's row, so the
// scheduler re-runs a short trailing window instead of only yesterday.
func (s *MetricsService) BackfillChatbot(ctx context.Context, chatbotID string, days int) error {
	if days < 1 {
		days = 1
	}
	today := time.Now().UTC()
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, -i)
		if _, err := s.ComputeDailyMetric(ctx, chatbotID, day); err != nil {
			return fmt.Errorf("failed to roll up %s: %w", day.Format(models.MetricDate), err)
		}
	}
	return nil
}

func buildDailyMetric(chatbotID, date string, sessions []*models.ChatSession) *models.DailyMetric {
	metric := &models.DailyMetric{
		ChatbotID: chatbotID,
		Date:      date,
	}

	users := make(map[string]struct{})
	visitors := make(map[string]struct{})
	var totalDuration float64
	for _, session := range sessions {
		metric.SessionCount++
		metric.MessageCount += session.MessageCount
		if session.UserID != "" {
			users[session.UserID] = struct{}{}
		}
		if session.VisitorID != "" {
			visitors[session.VisitorID] = struct{}{}
		}
		if session.EndedAt != nil {
			totalDuration += session.EndedAt.Sub(session.StartedAt).Seconds()
		}
	}

	// Distinct users plus distinct visitors; the same person appearing under
	// both identities counts twice.
	metric.UniqueUsers = len(users) + len(visitors)
	metric.AvgMessagesPerSession = float64(metric.MessageCount) / float64(metric.SessionCount)
	metric.AvgSessionDurationSeconds = totalDuration / float64(metric.SessionCount)
	return metric
}
