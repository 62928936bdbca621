package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/botdeck/botdeck/internal/models"
)

func closedSession(id, chatbotID, userID string, started, ended time.Time, messageCount int) *models.ChatSession {
	return &models.ChatSession{
		ID:           id,
		ChatbotID:    chatbotID,
		UserID:       userID,
		StartedAt:    started,
		EndedAt:      &ended,
		MessageCount: messageCount,
	}
}

func TestComputeDailyMetric(t *testing.T) {
	telemetry := newFakeTelemetryStore()
	metrics := NewMetricsService(telemetry)
	ctx := context.Background()

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	telemetry.sessions["s-1"] = closedSession("s-1", "bot-1", "alice", day.Add(9*time.Hour), day.Add(9*time.Hour+10*time.Minute), 4)
	telemetry.sessions["s-2"] = closedSession("s-2", "bot-1", "alice", day.Add(14*time.Hour), day.Add(14*time.Hour+20*time.Minute), 6)
	telemetry.sessions["s-3"] = closedSession("s-3", "bot-1", "", day.Add(16*time.Hour), day.Add(16*time.Hour+30*time.Minute), 2)
	telemetry.sessions["s-3"].VisitorID = "anon-1"

	metric, err := metrics.ComputeDailyMetric(ctx, "bot-1", day)
	require.NoError(t, err)
	require.NotNil(t, metric)
	require.Equal(t, "2026-08-20", metric.Date)
	require.Equal(t, 3, metric.SessionCount)
	require.Equal(t, 12, metric.MessageCount)
	// One distinct user plus one distinct visitor.
	require.Equal(t, 2, metric.UniqueUsers)
	require.InDelta(t, 4.0, metric.AvgMessagesPerSession, 0.001)
	require.InDelta(t, 1200.0, metric.AvgSessionDurationSeconds, 0.001)

	stored, err := telemetry.GetDailyMetric(ctx, "bot-1", "2026-08-20")
	require.NoError(t, err)
	require.Equal(t, metric, stored)
}

func TestComputeDailyMetricIdempotent(t *testing.T) {
	telemetry := newFakeTelemetryStore()
	metrics := NewMetricsService(telemetry)
	ctx := context.Background()

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	telemetry.sessions["s-1"] = closedSession("s-1", "bot-1", "alice", day.Add(time.Hour), day.Add(2*time.Hour), 5)

	first, err := metrics.ComputeDailyMetric(ctx, "bot-1", day)
	require.NoError(t, err)
	second, err := metrics.ComputeDailyMetric(ctx, "bot-1", day)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestComputeDailyMetricGroupsByEndDay(t *testing.T) {
	telemetry := newFakeTelemetryStore()
	metrics := NewMetricsService(telemetry)
	ctx := context.Background()

	// Session starts before midnight on the 19th but ends on the 20th.
	started := time.Date(2026, 8, 19, 23, 40, 0, 0, time.UTC)
	ended := time.Date(2026, 8, 20, 0, 10, 0, 0, time.UTC)
	telemetry.sessions["s-1"] = closedSession("s-1", "bot-1", "alice", started, ended, 3)

	metric, err := metrics.ComputeDailyMetric(ctx, "bot-1", time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Nil(t, metric)

	metric, err = metrics.ComputeDailyMetric(ctx, "bot-1", time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, metric)
	require.Equal(t, "2026-08-20", metric.Date)
	require.Equal(t, 1, metric.SessionCount)
}

func TestComputeDailyMetricSkipsOpenSessions(t *testing.T) {
	telemetry := newFakeTelemetryStore()
	metrics := NewMetricsService(telemetry)
	ctx := context.Background()

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	telemetry.sessions["open"] = &models.ChatSession{
		ID: "open", ChatbotID: "bot-1", StartedAt: day.Add(time.Hour), MessageCount: 7,
	}

	metric, err := metrics.ComputeDailyMetric(ctx, "bot-1", day)
	require.NoError(t, err)
	require.Nil(t, metric)
	require.Empty(t, telemetry.metrics)
}

func TestGetDailyMetric(t *testing.T) {
	telemetry := newFakeTelemetryStore()
	metrics := NewMetricsService(telemetry)
	ctx := context.Background()

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	telemetry.sessions["s-1"] = closedSession("s-1", "bot-1", "alice", day.Add(time.Hour), day.Add(2*time.Hour), 5)
	_, err := metrics.ComputeDailyMetric(ctx, "bot-1", day)
	require.NoError(t, err)

	// Any instant inside the day reads the same row.
	metric, err := metrics.GetDailyMetric(ctx, "bot-1", day.Add(18*time.Hour))
	require.NoError(t, err)
	require.Equal(t, "2026-08-20", metric.Date)
	require.Equal(t, 1, metric.SessionCount)

	_, err = metrics.GetDailyMetric(ctx, "bot-1", day.AddDate(0, 0, 1))
	require.Error(t, err)
	require.True(t, models.IsNotFound(err))
}

func TestBackfillChatbot(t *testing.T) {
	telemetry := newFakeTelemetryStore()
	metrics := NewMetricsService(telemetry)
	ctx := context.Background()

	now := time.Now().UTC()
	yesterday := now.AddDate(0, 0, -1)
	telemetry.sessions["s-1"] = closedSession("s-1", "bot-1", "bob", yesterday.Add(-time.Hour), yesterday, 2)
	telemetry.sessions["s-2"] = closedSession("s-2", "bot-1", "bob", now.Add(-time.Hour), now, 4)

	require.NoError(t, metrics.BackfillChatbot(ctx, "bot-1", 3))

	today, err := telemetry.GetDailyMetric(ctx, "bot-1", now.Format(models.MetricDate))
	require.NoError(t, err)
	require.Equal(t, 1, today.SessionCount)

	prior, err := telemetry.GetDailyMetric(ctx, "bot-1", yesterday.Format(models.MetricDate))
	require.NoError(t, err)
	require.Equal(t, 1, prior.SessionCount)
}
