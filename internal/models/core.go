package models

import (
	"time"
)

// Core domain models

// GlobalConfigID is the fixed primary key of the singleton GlobalConfig row.
const GlobalConfigID = "global"

// BootstrapModelID is the compile-time fallback at the end of every model
// resolution chain. BootstrapModel synthesizes its descriptor when the
// catalog has no row for it.
const BootstrapModelID = "gpt-4o-mini"

// BootstrapModel returns the hard-coded descriptor for BootstrapModelID.
func BootstrapModel() *ModelDescriptor {
	return &ModelDescriptor{
		ID:              BootstrapModelID,
		Provider:        "openai",
		ProviderModelID: "gpt-4o-mini",
		MaxTokens:       4096,
		IsActive:        true,
	}
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// GlobalConfig holds the operator-wide defaults applied to every chatbot
// unless a ChatbotConfig overrides them. Exactly one row exists; a missing
// row is recreated with defaults on first read.
type GlobalConfig struct {
	ID             string    `json:"id"`
	SystemPrompt   string    `json:"system_prompt"`
	AllowedTopics  string    `json:"allowed_topics"`
	BlockedTopics  string    `json:"blocked_topics"`
	MaxTokens      int       `json:"max_tokens"`
	Temperature    float64   `json:"temperature"`
	DefaultModelID string    `json:"default_model_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ModelDescriptor is a catalog entry for a completion model. The ID is
// stable and human-assigned; ProviderModelID is what the provider API
// actually receives.
type ModelDescriptor struct {
	ID              string    `json:"id"`
	Provider        string    `json:"provider"` // openai, anthropic, google, ollama
	ProviderModelID string    `json:"provider_model_id"`
	MaxTokens       int       `json:"max_tokens"`
	IsActive        bool      `json:"is_active"`
	IsDefault       bool      `json:"is_default"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ChatbotConfig is the per-tenant configuration of one chatbot. The pointer
// fields are optional overrides of GlobalConfig; nil means inherit.
type ChatbotConfig struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	CustomPrompt  string    `json:"custom_prompt"`
	KnowledgeBase string    `json:"knowledge_base"`
	Temperature   *float64  `json:"temperature,omitempty"`
	MaxTokens     *int      `json:"max_tokens,omitempty"`
	ModelID       *string   `json:"model_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EffectiveConfig is the fully merged configuration for one chat turn.
// Never persisted.
type EffectiveConfig struct {
	ChatbotID    string
	ChatbotName  string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Model        *ModelDescriptor
}

// ChatSession is one conversation between an end user (or anonymous
// visitor) and a chatbot, bounded by explicit open/close. EndedAt is nil
// while the session is open; MessageCount becomes final on close.
type ChatSession struct {
	ID           string     `json:"id" bson:"_id"`
	ChatbotID    string     `json:"chatbot_id" bson:"chatbot_id"`
	UserID       string     `json:"user_id,omitempty" bson:"user_id,omitempty"`
	VisitorID    string     `json:"visitor_id,omitempty" bson:"visitor_id,omitempty"`
	StartedAt    time.Time  `json:"started_at" bson:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	MessageCount int        `json:"message_count" bson:"message_count"`
}

// ChatMessage is a single utterance inside a session. Append-only.
// ChatbotID is denormalized off the session so message-level aggregations
// do not need a join.
type ChatMessage struct {
	ID        string    `json:"id" bson:"_id"`
	SessionID string    `json:"session_id" bson:"session_id"`
	ChatbotID string    `json:"chatbot_id" bson:"chatbot_id"`
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Tokens    int       `json:"tokens,omitempty" bson:"tokens,omitempty"`
	ModelID   string    `json:"model_id,omitempty" bson:"model_id,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// DailyMetric is the precomputed rollup of one chatbot's completed sessions
// for one UTC calendar day. Date is a YYYY-MM-DD string; one row per
// (ChatbotID, Date), replaced wholesale on recomputation.
type DailyMetric struct {
	ChatbotID                 string  `json:"chatbot_id" bson:"chatbot_id"`
	Date                      string  `json:"date" bson:"date"`
	SessionCount              int     `json:"session_count" bson:"session_count"`
	MessageCount              int     `json:"message_count" bson:"message_count"`
	UniqueUsers               int     `json:"unique_users" bson:"unique_users"`
	AvgMessagesPerSession     float64 `json:"avg_messages_per_session" bson:"avg_messages_per_session"`
	AvgSessionDurationSeconds float64 `json:"avg_session_duration_seconds" bson:"avg_session_duration_seconds"`
}

// MetricDate is the canonical layout for DailyMetric.Date keys.
const MetricDate = "2006-01-02"

// ValidRole reports whether role is one of the three message roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant || role == RoleSystem
}
