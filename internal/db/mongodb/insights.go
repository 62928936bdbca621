package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/botdeck/botdeck/internal/models"
)

// Top-N insight queries, computed on demand as aggregation pipelines.
// Both are all-time for the chatbot, not windowed.

// TopActiveUsers ranks non-anonymous users by the total message count of
// their sessions. Sessions without a user_id never contribute.
func (m *MongoDB) TopActiveUsers(ctx context.Context, chatbotID string, limit int) ([]models.ActiveUserCount, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"chatbot_id": chatbotID,
				"user_id":    bson.M{"$nin": bson.A{nil, ""}},
			},
		},
		{
			"$group": bson.M{
				"_id":           "$user_id",
				"message_count": bson.M{"$sum": "$message_count"},
			},
		},
		{
			// Secondary sort on _id keeps equal counts deterministic.
			"$sort": bson.D{
				{Key: "message_count", Value: -1},
				{Key: "_id", Value: 1},
			},
		},
		{
			"$limit": limit,
		},
	}

	cursor, err := m.database.Collection(collSessions).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top active users: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.ActiveUserCount
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode top active users: %w", err)
	}
	return results, nil
}

// TopQueries ranks literal user-message contents by occurrence count.
func (m *MongoDB) TopQueries(ctx context.Context, chatbotID string, limit int) ([]models.QueryCount, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"chatbot_id": chatbotID,
				"role":       models.RoleUser,
			},
		},
		{
			"$group": bson.M{
				"_id":   "$content",
				"count": bson.M{"$sum": 1},
			},
		},
		{
			"$sort": bson.D{
				{Key: "count", Value: -1},
				{Key: "_id", Value: 1},
			},
		},
		{
			"$limit": limit,
		},
	}

	cursor, err := m.database.Collection(collMessages).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top queries: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.QueryCount
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode top queries: %w", err)
	}
	return results, nil
}
