package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/botdeck/botdeck/internal/models"
)

func seedInsights(t *testing.T) (*InsightsService, *fakeTelemetryStore) {
	t.Helper()
	config := newFakeConfigStore()
	telemetry := newFakeTelemetryStore()
	require.NoError(t, config.CreateChatbot(context.Background(), &models.ChatbotConfig{
		ID: "bot-1", OwnerID: "tenant-1", Name: "Support Bot",
	}))
	return NewInsightsService(config, telemetry), telemetry
}

func TestGetInsightsUnknownChatbot(t *testing.T) {
	insights, _ := seedInsights(t)

	_, err := insights.GetInsights(context.Background(), "ghost", 7)
	require.Error(t, err)
	require.True(t, models.IsNotFound(err))
}

func TestGetInsightsDefaultsAndClamping(t *testing.T) {
	insights, _ := seedInsights(t)
	ctx := context.Background()

	result, err := insights.GetInsights(ctx, "bot-1", 0)
	require.NoError(t, err)
	require.Equal(t, 7, result.Days)

	result, err = insights.GetInsights(ctx, "bot-1", 500)
	require.NoError(t, err)
	require.Equal(t, 90, result.Days)
}

func TestGetInsightsTotalsIncludeOpenSessions(t *testing.T) {
	insights, telemetry := seedInsights(t)
	ctx := context.Background()

	now := time.Now().UTC()
	ended := now.Add(-time.Hour)
	telemetry.sessions["closed"] = &models.ChatSession{
		ID: "closed", ChatbotID: "bot-1", UserID: "alice",
		StartedAt: now.Add(-2 * time.Hour), EndedAt: &ended, MessageCount: 4,
	}
	telemetry.sessions["open"] = &models.ChatSession{
		ID: "open", ChatbotID: "bot-1", UserID: "bob",
		StartedAt: now.Add(-30 * time.Minute), MessageCount: 2,
	}
	// Outside the window.
	old := now.AddDate(0, 0, -30)
	oldEnded := old.Add(time.Hour)
	telemetry.sessions["stale"] = &models.ChatSession{
		ID: "stale", ChatbotID: "bot-1", UserID: "carol",
		StartedAt: old, EndedAt: &oldEnded, MessageCount: 9,
	}

	result, err := insights.GetInsights(ctx, "bot-1", 7)
	require.NoError(t, err)
	require.Equal(t, 2, result.Totals.SessionCount)
	require.Equal(t, 6, result.Totals.MessageCount)
	require.Equal(t, 2, result.Totals.UniqueUsers)
}

func TestGetInsightsDailySeriesWindow(t *testing.T) {
	insights, telemetry := seedInsights(t)
	ctx := context.Background()

	today := time.Now().UTC().Format(models.MetricDate)
	inWindow := time.Now().UTC().AddDate(0, 0, -2).Format(models.MetricDate)
	outside := time.Now().UTC().AddDate(0, 0, -20).Format(models.MetricDate)

	for _, date := range []string{today, inWindow, outside} {
		require.NoError(t, telemetry.UpsertDailyMetric(ctx, &models.DailyMetric{
			ChatbotID: "bot-1", Date: date, SessionCount: 1, MessageCount: 2,
		}))
	}

	result, err := insights.GetInsights(ctx, "bot-1", 7)
	require.NoError(t, err)
	require.Len(t, result.DailySeries, 2)
	require.Equal(t, inWindow, result.DailySeries[0].Date)
	require.Equal(t, today, result.DailySeries[1].Date)
}

func TestGetInsightsTopRankings(t *testing.T) {
	insights, telemetry := seedInsights(t)
	ctx := context.Background()

	now := time.Now().UTC()
	ended := now.Add(-time.Minute)
	for i, tc := range []struct {
		user  string
		count int
	}{
		{"alice", 10}, {"bob", 10}, {"carol", 3},
	} {
		id := string(rune('a' + i))
		telemetry.sessions[id] = &models.ChatSession{
			ID: id, ChatbotID: "bot-1", UserID: tc.user,
			StartedAt: now.Add(-time.Hour), EndedAt: &ended, MessageCount: tc.count,
		}
	}

	for i, content := range []string{"refund", "refund", "shipping"} {
		require.NoError(t, telemetry.CreateMessage(ctx, &models.ChatMessage{
			ID: string(rune('x' + i)), SessionID: "a", ChatbotID: "bot-1",
			Role: models.RoleUser, Content: content, CreatedAt: now,
		}))
	}

	result, err := insights.GetInsights(ctx, "bot-1", 7)
	require.NoError(t, err)

	// Equal counts tie-break ascending by user id.
	require.Equal(t, "alice", result.TopActiveUsers[0].UserID)
	require.Equal(t, "bob", result.TopActiveUsers[1].UserID)
	require.Equal(t, "carol", result.TopActiveUsers[2].UserID)

	require.Equal(t, "refund", result.TopQueries[0].Content)
	require.Equal(t, 2, result.TopQueries[0].Count)
	require.Equal(t, "shipping", result.TopQueries[1].Content)
}
