package services

import (
	"context"
	"sort"
	"time"

	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/shared"
)

// In-memory store fakes mirroring the persistence contracts, including the
// conditional close and the idempotent message insert.

type fakeConfigStore struct {
	global   *models.GlobalConfig
	models   map[string]*models.ModelDescriptor
	chatbots map[string]*models.ChatbotConfig
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{
		models:   make(map[string]*models.ModelDescriptor),
		chatbots: make(map[string]*models.ChatbotConfig),
	}
}

func (f *fakeConfigStore) Connect(ctx context.Context) error    { return nil }
func (f *fakeConfigStore) Disconnect(ctx context.Context) error { return nil }
func (f *fakeConfigStore) Ping(ctx context.Context) error       { return nil }

func (f *fakeConfigStore) GetOrCreateGlobalConfig(ctx context.Context) (*models.GlobalConfig, error) {
	if f.global == nil {
		f.global = &models.GlobalConfig{
			ID:             models.GlobalConfigID,
			SystemPrompt:   "You are a helpful customer support assistant.",
			MaxTokens:      1000,
			Temperature:    0.7,
			DefaultModelID: models.BootstrapModelID,
			CreatedAt:      time.Now().UTC(),
			UpdatedAt:      time.Now().UTC(),
		}
	}
	copied := *f.global
	return &copied, nil
}

func (f *fakeConfigStore) UpdateGlobalConfig(ctx context.Context, cfg *models.GlobalConfig) error {
	copied := *cfg
	f.global = &copied
	return nil
}

func (f *fakeConfigStore) CreateModel(ctx context.Context, m *models.ModelDescriptor) error {
	copied := *m
	f.models[m.ID] = &copied
	return nil
}

func (f *fakeConfigStore) GetModel(ctx context.Context, id string) (*models.ModelDescriptor, error) {
	m, ok := f.models[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "model", ID: id}
	}
	copied := *m
	return &copied, nil
}

func (f *fakeConfigStore) ListModels(ctx context.Context, active *bool) ([]*models.ModelDescriptor, error) {
	var out []*models.ModelDescriptor
	for _, m := range f.models {
		if active != nil && m.IsActive != *active {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeConfigStore) UpdateModel(ctx context.Context, m *models.ModelDescriptor) error {
	if _, ok := f.models[m.ID]; !ok {
		return &models.NotFoundError{Resource: "model", ID: m.ID}
	}
	copied := *m
	f.models[m.ID] = &copied
	return nil
}

func (f *fakeConfigStore) DeleteModel(ctx context.Context, id string) error {
	if _, ok := f.models[id]; !ok {
		return &models.NotFoundError{Resource: "model", ID: id}
	}
	for _, c := range f.chatbots {
		if c.ModelID != nil && *c.ModelID == id {
			return models.ErrModelInUse
		}
	}
	if f.global != nil && f.global.DefaultModelID == id {
		return models.ErrModelInUse
	}
	delete(f.models, id)
	return nil
}

func (f *fakeConfigStore) CreateChatbot(ctx context.Context, c *models.ChatbotConfig) error {
	copied := *c
	f.chatbots[c.ID] = &copied
	return nil
}

func (f *fakeConfigStore) GetChatbot(ctx context.Context, id string) (*models.ChatbotConfig, error) {
	c, ok := f.chatbots[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "chatbot", ID: id}
	}
	copied := *c
	return &copied, nil
}

func (f *fakeConfigStore) ListChatbots(ctx context.Context, ownerID string) ([]*models.ChatbotConfig, error) {
	var out []*models.ChatbotConfig
	for _, c := range f.chatbots {
		if ownerID != "" && c.OwnerID != ownerID {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeConfigStore) UpdateChatbot(ctx context.Context, c *models.ChatbotConfig) error {
	if _, ok := f.chatbots[c.ID]; !ok {
		return &models.NotFoundError{Resource: "chatbot", ID: c.ID}
	}
	copied := *c
	f.chatbots[c.ID] = &copied
	return nil
}

func (f *fakeConfigStore) DeleteChatbot(ctx context.Context, id string) error {
	if _, ok := f.chatbots[id]; !ok {
		return &models.NotFoundError{Resource: "chatbot", ID: id}
	}
	delete(f.chatbots, id)
	return nil
}

type fakeTelemetryStore struct {
	sessions map[string]*models.ChatSession
	messages []*models.ChatMessage
	seen     map[string]bool
	metrics  map[string]*models.DailyMetric
}

func newFakeTelemetryStore() *fakeTelemetryStore {
	return &fakeTelemetryStore{
		sessions: make(map[string]*models.ChatSession),
		seen:     make(map[string]bool),
		metrics:  make(map[string]*models.DailyMetric),
	}
}

func (f *fakeTelemetryStore) Connect(ctx context.Context) error    { return nil }
func (f *fakeTelemetryStore) Disconnect(ctx context.Context) error { return nil }
func (f *fakeTelemetryStore) Ping(ctx context.Context) error       { return nil }

func (f *fakeTelemetryStore) CreateSession(ctx context.Context, s *models.ChatSession) error {
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeTelemetryStore) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "session", ID: id}
	}
	copied := *s
	return &copied, nil
}

func (f *fakeTelemetryStore) ListSessions(ctx context.Context, filter shared.SessionFilter) ([]*models.ChatSession, error) {
	var out []*models.ChatSession
	for _, s := range f.sessions {
		if filter.ChatbotID != "" && s.ChatbotID != filter.ChatbotID {
			continue
		}
		if filter.ClosedOnly && s.EndedAt == nil {
			continue
		}
		if filter.ClosedAfter != nil && (s.EndedAt == nil || s.EndedAt.Before(*filter.ClosedAfter)) {
			continue
		}
		if filter.ClosedBefore != nil && (s.EndedAt == nil || !s.EndedAt.Before(*filter.ClosedBefore)) {
			continue
		}
		if filter.StartedAfter != nil && s.StartedAt.Before(*filter.StartedAfter) {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeTelemetryStore) CloseSession(ctx context.Context, id string, messageCount int) error {
	s, ok := f.sessions[id]
	if !ok {
		return &models.NotFoundError{Resource: "session", ID: id}
	}
	if s.EndedAt != nil {
		return &models.AlreadyClosedError{SessionID: id}
	}
	now := time.Now().UTC()
	s.EndedAt = &now
	s.MessageCount = messageCount
	return nil
}

func (f *fakeTelemetryStore) CreateMessage(ctx context.Context, m *models.ChatMessage) error {
	if f.seen[m.ID] {
		return nil
	}
	f.seen[m.ID] = true
	copied := *m
	f.messages = append(f.messages, &copied)
	return nil
}

func (f *fakeTelemetryStore) ListMessages(ctx context.Context, filter shared.MessageFilter) ([]*models.ChatMessage, error) {
	var out []*models.ChatMessage
	for _, m := range f.messages {
		if filter.SessionID != "" && m.SessionID != filter.SessionID {
			continue
		}
		if filter.ChatbotID != "" && m.ChatbotID != filter.ChatbotID {
			continue
		}
		if filter.Role != "" && m.Role != filter.Role {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeTelemetryStore) UpsertDailyMetric(ctx context.Context, m *models.DailyMetric) error {
	copied := *m
	f.metrics[m.ChatbotID+"|"+m.Date] = &copied
	return nil
}

func (f *fakeTelemetryStore) GetDailyMetric(ctx context.Context, chatbotID, date string) (*models.DailyMetric, error) {
	m, ok := f.metrics[chatbotID+"|"+date]
	if !ok {
		return nil, &models.NotFoundError{Resource: "daily metric", ID: chatbotID + "/" + date}
	}
	copied := *m
	return &copied, nil
}

func (f *fakeTelemetryStore) ListDailyMetrics(ctx context.Context, chatbotID, fromDate, toDate string) ([]*models.DailyMetric, error) {
	var out []*models.DailyMetric
	for _, m := range f.metrics {
		if m.ChatbotID != chatbotID {
			continue
		}
		if m.Date < fromDate || m.Date > toDate {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (f *fakeTelemetryStore) TopActiveUsers(ctx context.Context, chatbotID string, limit int) ([]models.ActiveUserCount, error) {
	counts := make(map[string]int)
	for _, s := range f.sessions {
		if s.ChatbotID != chatbotID || s.UserID == "" {
			continue
		}
		counts[s.UserID] += s.MessageCount
	}
	out := make([]models.ActiveUserCount, 0, len(counts))
	for user, count := range counts {
		out = append(out, models.ActiveUserCount{UserID: user, MessageCount: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MessageCount != out[j].MessageCount {
			return out[i].MessageCount > out[j].MessageCount
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTelemetryStore) TopQueries(ctx context.Context, chatbotID string, limit int) ([]models.QueryCount, error) {
	counts := make(map[string]int)
	for _, m := range f.messages {
		if m.ChatbotID != chatbotID || m.Role != models.RoleUser {
			continue
		}
		counts[m.Content]++
	}
	out := make([]models.QueryCount, 0, len(counts))
	for content, count := range counts {
		out = append(out, models.QueryCount{Content: content, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Content < out[j].Content
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
