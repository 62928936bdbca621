package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/logger"
	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/shared"
)

// Identity names who a session belongs to: a known account or an anonymous
// visitor. Exactly one of the two fields may be set; both empty is a fully
// anonymous session.
type Identity struct {
	UserID    string
	VisitorID string
}

// SessionService owns the session lifecycle and the append-only message log.
type SessionService struct {
	config    db.ConfigStore
	telemetry db.TelemetryStore
}

// NewSessionService creates a new session service
func NewSessionService(config db.ConfigStore, telemetry db.TelemetryStore) *SessionService {
	return &SessionService{config: config, telemetry: telemetry}
}

// StartSession opens a new session against an existing chatbot.
func (s *SessionService) StartSession(ctx context.Context, chatbotID string, identity Identity) (*models.ChatSession, error) {
	if identity.UserID != "" && identity.VisitorID != "" {
		return nil, fmt.Errorf("session identity must be a user or a visitor, not both")
	}

	if _, err := s.config.GetChatbot(ctx, chatbotID); err != nil {
		return nil, err
	}

	session := &models.ChatSession{
		ID:        uuid.New().String(),
		ChatbotID: chatbotID,
		UserID:    identity.UserID,
		VisitorID: identity.VisitorID,
		StartedAt: time.Now().UTC(),
	}

	if err := s.telemetry.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger.Debug("Started session %s for chatbot %s", session.ID, chatbotID)
	return session, nil
}

// GetSession returns a session by id.
func (s *SessionService) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	return s.telemetry.GetSession(ctx, id)
}

// LogMessage appends one message to an open session. Appending to a closed
// session fails with SessionClosedError; re-sending a message with an id
// already logged succeeds without a second insert.
func (s *SessionService) LogMessage(ctx context.Context, sessionID, role, content string, tokens int, modelID string) (*models.ChatMessage, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("invalid message role %q", role)
	}

	session, err := s.telemetry.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.EndedAt != nil {
		return nil, &models.SessionClosedError{SessionID: sessionID}
	}

	message := &models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		ChatbotID: session.ChatbotID,
		Role:      role,
		Content:   content,
		Tokens:    tokens,
		ModelID:   modelID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.telemetry.CreateMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to log message: %w", err)
	}

	return message, nil
}

// EndSession closes a session, freezing the caller's message count into it.
// Closing an already closed session fails with AlreadyClosedError rather
// than succeeding silently: the second caller's count could differ from the
// recorded one.
func (s *SessionService) EndSession(ctx context.Context, sessionID string, messageCount int) (*models.ChatSession, error) {
	if messageCount < 0 {
		return nil, fmt.Errorf("message count must not be negative, got %d", messageCount)
	}

	if err := s.telemetry.CloseSession(ctx, sessionID, messageCount); err != nil {
		return nil, err
	}

	logger.Debug("Closed session %s with %d messages", sessionID, messageCount)
	return s.telemetry.GetSession(ctx, sessionID)
}

// ListMessages returns a session's messages in insertion order.
func (s *SessionService) ListMessages(ctx context.Context, sessionID string) ([]*models.ChatMessage, error) {
	if _, err := s.telemetry.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.telemetry.ListMessages(ctx, shared.MessageFilter{SessionID: sessionID})
}
