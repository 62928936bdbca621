package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/shared"
)

// MongoDB implements the TelemetryStore interface for MongoDB
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	config   *models.Config
}

const (
	collSessions = "sessions"
	collMessages = "messages"
	collMetrics  = "daily_metrics"
)

// New creates a new MongoDB telemetry store instance
func New(config *models.Config) (*MongoDB, error) {
	return &MongoDB{
		config: config,
	}, nil
}

// Connect establishes connection to MongoDB
func (m *MongoDB) Connect(ctx context.Context) error {
	clientOptions := options.Client().ApplyURI(m.config.URI)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	m.database = client.Database(m.config.Database)

	if err := m.createIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect(ctx context.Context) error {
	if m.client != nil {
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Ping checks the database connection
func (m *MongoDB) Ping(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("not connected to database")
	}
	return m.client.Ping(ctx, nil)
}

// createIndexes creates necessary indexes for optimal query performance
func (m *MongoDB) createIndexes(ctx context.Context) error {
	sessionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "chatbot_id", Value: 1},
				{Key: "ended_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "chatbot_id", Value: 1},
				{Key: "started_at", Value: -1},
			},
		},
	}
	if _, err := m.database.Collection(collSessions).Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	messageIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "chatbot_id", Value: 1},
				{Key: "role", Value: 1},
			},
		},
	}
	if _, err := m.database.Collection(collMessages).Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	// The rollup key. Unique so an upsert is the only write path.
	metricIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "chatbot_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.database.Collection(collMetrics).Indexes().CreateMany(ctx, metricIndexes); err != nil {
		return fmt.Errorf("failed to create metric indexes: %w", err)
	}

	return nil
}

// Session operations

// CreateSession inserts a new open session row
func (m *MongoDB) CreateSession(ctx context.Context, s *models.ChatSession) error {
	_, err := m.database.Collection(collSessions).InsertOne(ctx, s)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (m *MongoDB) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	var s models.ChatSession
	err := m.database.Collection(collSessions).FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, &models.NotFoundError{Resource: "session", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions lists sessions matching the filter
func (m *MongoDB) ListSessions(ctx context.Context, filter shared.SessionFilter) ([]*models.ChatSession, error) {
	query := bson.M{}
	if filter.ChatbotID != "" {
		query["chatbot_id"] = filter.ChatbotID
	}
	if filter.ClosedOnly || filter.ClosedAfter != nil || filter.ClosedBefore != nil {
		endedQuery := bson.M{"$ne": nil}
		if filter.ClosedAfter != nil {
			endedQuery["$gte"] = *filter.ClosedAfter
		}
		if filter.ClosedBefore != nil {
			endedQuery["$lt"] = *filter.ClosedBefore
		}
		query["ended_at"] = endedQuery
	}
	if filter.StartedAfter != nil {
		query["started_at"] = bson.M{"$gte": *filter.StartedAfter}
	}

	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := m.database.Collection(collSessions).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*models.ChatSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CloseSession sets ended_at and the final message count, conditional on the
// session still being open. A second close matches nothing and surfaces as
// AlreadyClosedError so a stale caller can never overwrite the first close.
func (m *MongoDB) CloseSession(ctx context.Context, id string, messageCount int) error {
	now := time.Now()
	result, err := m.database.Collection(collSessions).UpdateOne(ctx,
		bson.M{"_id": id, "ended_at": nil},
		bson.M{"$set": bson.M{"ended_at": now, "message_count": messageCount}},
	)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: unknown id or already closed.
	count, err := m.database.Collection(collSessions).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return &models.NotFoundError{Resource: "session", ID: id}
	}
	return &models.AlreadyClosedError{SessionID: id}
}

// Message operations

// CreateMessage inserts a message row. Inserts are idempotent by message
// id: a duplicate key is treated as the original insert having succeeded.
func (m *MongoDB) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	_, err := m.database.Collection(collMessages).InsertOne(ctx, msg)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages lists messages matching the filter, ordered by creation time
func (m *MongoDB) ListMessages(ctx context.Context, filter shared.MessageFilter) ([]*models.ChatMessage, error) {
	query := bson.M{}
	if filter.SessionID != "" {
		query["session_id"] = filter.SessionID
	}
	if filter.ChatbotID != "" {
		query["chatbot_id"] = filter.ChatbotID
	}
	if filter.Role != "" {
		query["role"] = filter.Role
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := m.database.Collection(collMessages).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*models.ChatMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Daily metric operations

// UpsertDailyMetric replaces the metric row keyed by (chatbot_id, date).
// ReplaceOne with upsert is the store's native merge primitive, so two
// concurrent recomputations cannot interleave a lost update.
func (m *MongoDB) UpsertDailyMetric(ctx context.Context, metric *models.DailyMetric) error {
	filter := bson.M{"chatbot_id": metric.ChatbotID, "date": metric.Date}
	_, err := m.database.Collection(collMetrics).ReplaceOne(ctx, filter, metric, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert daily metric: %w", err)
	}
	return nil
}

// GetDailyMetric retrieves one metric row, or NotFoundError when the day
// has no completed activity.
func (m *MongoDB) GetDailyMetric(ctx context.Context, chatbotID, date string) (*models.DailyMetric, error) {
	var metric models.DailyMetric
	err := m.database.Collection(collMetrics).FindOne(ctx, bson.M{"chatbot_id": chatbotID, "date": date}).Decode(&metric)
	if err == mongo.ErrNoDocuments {
		return nil, &models.NotFoundError{Resource: "daily metric", ID: chatbotID + "/" + date}
	}
	if err != nil {
		return nil, err
	}
	return &metric, nil
}

// ListDailyMetrics lists metric rows for [fromDate, toDate], date ascending
func (m *MongoDB) ListDailyMetrics(ctx context.Context, chatbotID, fromDate, toDate string) ([]*models.DailyMetric, error) {
	query := bson.M{
		"chatbot_id": chatbotID,
		"date":       bson.M{"$gte": fromDate, "$lte": toDate},
	}

	cursor, err := m.database.Collection(collMetrics).Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var metrics []*models.DailyMetric
	if err := cursor.All(ctx, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}
