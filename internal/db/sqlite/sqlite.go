package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/botdeck/botdeck/internal/models"
)

// SQLite implements the ConfigStore interface for SQLite
type SQLite struct {
	db     *sql.DB
	config *models.Config
}

// New creates a new SQLite config store instance
func New(config *models.Config) (*SQLite, error) {
	return &SQLite{
		config: config,
	}, nil
}

// Connect establishes connection to SQLite
func (s *SQLite) Connect(ctx context.Context) error {
	// Expand the URI path (handle ~ and relative paths)
	dbPath := s.config.URI
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	} else if !filepath.IsAbs(dbPath) {
		absPath, err := filepath.Abs(dbPath)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		dbPath = absPath
	}

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database at path '%s': %w", dbPath, err)
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping SQLite database at path '%s': %w", dbPath, err)
	}

	s.db = db

	if err := s.createTables(ctx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// Disconnect closes the SQLite connection
func (s *SQLite) Disconnect(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database connection
func (s *SQLite) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("not connected to database")
	}
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle for the migration runner.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// createTables creates necessary tables
func (s *SQLite) createTables(ctx context.Context) error {
	createGlobalConfigTable := `
	CREATE TABLE IF NOT EXISTS global_config (
		id TEXT PRIMARY KEY,
		system_prompt TEXT NOT NULL,
		allowed_topics TEXT NOT NULL DEFAULT '',
		blocked_topics TEXT NOT NULL DEFAULT '',
		max_tokens INTEGER NOT NULL,
		temperature REAL NOT NULL,
		default_model_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	createModelsTable := `
	CREATE TABLE IF NOT EXISTS model_descriptors (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_model_id TEXT NOT NULL,
		max_tokens INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		is_default BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	createChatbotsTable := `
	CREATE TABLE IF NOT EXISTS chatbot_configs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		custom_prompt TEXT NOT NULL DEFAULT '',
		knowledge_base TEXT NOT NULL DEFAULT '',
		temperature REAL,      -- NULL inherits the global value
		max_tokens INTEGER,    -- NULL inherits the global value
		model_id TEXT,         -- NULL inherits the global default model
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	createOwnerIndex := `
	CREATE INDEX IF NOT EXISTS idx_chatbot_configs_owner ON chatbot_configs(owner_id);`

	for _, query := range []string{createGlobalConfigTable, createModelsTable, createChatbotsTable, createOwnerIndex} {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	return nil
}

// Global config operations

// GetOrCreateGlobalConfig retrieves the singleton global config, inserting
// hard-coded defaults when the row is missing. A missing row is a state to
// repair, not an error.
func (s *SQLite) GetOrCreateGlobalConfig(ctx context.Context) (*models.GlobalConfig, error) {
	query := `
		SELECT id, system_prompt, allowed_topics, blocked_topics, max_tokens, temperature, default_model_id, created_at, updated_at
		FROM global_config WHERE id = ?`

	var cfg models.GlobalConfig
	err := s.db.QueryRowContext(ctx, query, models.GlobalConfigID).Scan(
		&cfg.ID,
		&cfg.SystemPrompt,
		&cfg.AllowedTopics,
		&cfg.BlockedTopics,
		&cfg.MaxTokens,
		&cfg.Temperature,
		&cfg.DefaultModelID,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return s.createDefaultGlobalConfig(ctx)
	}
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (s *SQLite) createDefaultGlobalConfig(ctx context.Context) (*models.GlobalConfig, error) {
	now := time.Now()
	cfg := &models.GlobalConfig{
		ID:             models.GlobalConfigID,
		SystemPrompt:   "You are a helpful customer support assistant.",
		MaxTokens:      1000,
		Temperature:    0.7,
		DefaultModelID: models.BootstrapModelID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `
		INSERT INTO global_config (id, system_prompt, allowed_topics, blocked_topics, max_tokens, temperature, default_model_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, query,
		cfg.ID,
		cfg.SystemPrompt,
		cfg.AllowedTopics,
		cfg.BlockedTopics,
		cfg.MaxTokens,
		cfg.Temperature,
		cfg.DefaultModelID,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UpdateGlobalConfig updates the singleton global config
func (s *SQLite) UpdateGlobalConfig(ctx context.Context, cfg *models.GlobalConfig) error {
	cfg.ID = models.GlobalConfigID
	cfg.UpdatedAt = time.Now()

	query := `
		UPDATE global_config
		SET system_prompt = ?, allowed_topics = ?, blocked_topics = ?, max_tokens = ?, temperature = ?, default_model_id = ?, updated_at = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		cfg.SystemPrompt,
		cfg.AllowedTopics,
		cfg.BlockedTopics,
		cfg.MaxTokens,
		cfg.Temperature,
		cfg.DefaultModelID,
		cfg.UpdatedAt,
		cfg.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Row was never created; repair and retry once.
		if _, err := s.createDefaultGlobalConfig(ctx); err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, query,
			cfg.SystemPrompt,
			cfg.AllowedTopics,
			cfg.BlockedTopics,
			cfg.MaxTokens,
			cfg.Temperature,
			cfg.DefaultModelID,
			cfg.UpdatedAt,
			cfg.ID,
		)
		return err
	}

	return nil
}

// Model catalog operations

// CreateModel creates a new model descriptor
func (s *SQLite) CreateModel(ctx context.Context, m *models.ModelDescriptor) error {
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()

	if m.IsDefault {
		if err := s.clearDefaultModel(ctx, m.ID); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO model_descriptors (id, provider, provider_model_id, max_tokens, is_active, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		m.ID,
		m.Provider,
		m.ProviderModelID,
		m.MaxTokens,
		m.IsActive,
		m.IsDefault,
		m.CreatedAt,
		m.UpdatedAt,
	)

	return err
}

// GetModel retrieves a model descriptor by ID
func (s *SQLite) GetModel(ctx context.Context, id string) (*models.ModelDescriptor, error) {
	query := `
		SELECT id, provider, provider_model_id, max_tokens, is_active, is_default, created_at, updated_at
		FROM model_descriptors WHERE id = ?`

	var m models.ModelDescriptor
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.Provider,
		&m.ProviderModelID,
		&m.MaxTokens,
		&m.IsActive,
		&m.IsDefault,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Resource: "model", ID: id}
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// ListModels lists all model descriptors, optionally filtered by active status
func (s *SQLite) ListModels(ctx context.Context, active *bool) ([]*models.ModelDescriptor, error) {
	query := `
		SELECT id, provider, provider_model_id, max_tokens, is_active, is_default, created_at, updated_at
		FROM model_descriptors`
	args := []interface{}{}

	if active != nil {
		query += " WHERE is_active = ?"
		args = append(args, *active)
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var descriptors []*models.ModelDescriptor
	for rows.Next() {
		var m models.ModelDescriptor
		err := rows.Scan(
			&m.ID,
			&m.Provider,
			&m.ProviderModelID,
			&m.MaxTokens,
			&m.IsActive,
			&m.IsDefault,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, &m)
	}

	return descriptors, rows.Err()
}

// UpdateModel updates an existing model descriptor
func (s *SQLite) UpdateModel(ctx context.Context, m *models.ModelDescriptor) error {
	m.UpdatedAt = time.Now()

	if m.IsDefault {
		if err := s.clearDefaultModel(ctx, m.ID); err != nil {
			return err
		}
	}

	query := `
		UPDATE model_descriptors
		SET provider = ?, provider_model_id = ?, max_tokens = ?, is_active = ?, is_default = ?, updated_at = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		m.Provider,
		m.ProviderModelID,
		m.MaxTokens,
		m.IsActive,
		m.IsDefault,
		m.UpdatedAt,
		m.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "model", ID: m.ID}
	}

	return nil
}

// clearDefaultModel keeps the at-most-one-default invariant.
func (s *SQLite) clearDefaultModel(ctx context.Context, keepID string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE model_descriptors SET is_default = 0 WHERE id != ?", keepID)
	return err
}

// DeleteModel deletes a model descriptor. Deletion is rejected while any
// chatbot references the model or it is the global default.
func (s *SQLite) DeleteModel(ctx context.Context, id string) error {
	var refs int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chatbot_configs WHERE model_id = ?", id).Scan(&refs)
	if err != nil {
		return err
	}
	if refs > 0 {
		return models.ErrModelInUse
	}

	var globalRefs int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM global_config WHERE default_model_id = ?", id).Scan(&globalRefs)
	if err != nil {
		return err
	}
	if globalRefs > 0 {
		return models.ErrModelInUse
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM model_descriptors WHERE id = ?", id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "model", ID: id}
	}

	return nil
}

// Chatbot config operations

// CreateChatbot creates a new chatbot config
func (s *SQLite) CreateChatbot(ctx context.Context, c *models.ChatbotConfig) error {
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()

	query := `
		INSERT INTO chatbot_configs (id, owner_id, name, custom_prompt, knowledge_base, temperature, max_tokens, model_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.OwnerID,
		c.Name,
		c.CustomPrompt,
		c.KnowledgeBase,
		c.Temperature,
		c.MaxTokens,
		c.ModelID,
		c.CreatedAt,
		c.UpdatedAt,
	)

	return err
}

// GetChatbot retrieves a chatbot config by ID
func (s *SQLite) GetChatbot(ctx context.Context, id string) (*models.ChatbotConfig, error) {
	query := `
		SELECT id, owner_id, name, custom_prompt, knowledge_base, temperature, max_tokens, model_id, created_at, updated_at
		FROM chatbot_configs WHERE id = ?`

	c, err := scanChatbot(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Resource: "chatbot", ID: id}
	}
	if err != nil {
		return nil, err
	}

	return c, nil
}

// ListChatbots lists chatbot configs, optionally filtered by owner
func (s *SQLite) ListChatbots(ctx context.Context, ownerID string) ([]*models.ChatbotConfig, error) {
	query := `
		SELECT id, owner_id, name, custom_prompt, knowledge_base, temperature, max_tokens, model_id, created_at, updated_at
		FROM chatbot_configs`
	args := []interface{}{}

	if ownerID != "" {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chatbots []*models.ChatbotConfig
	for rows.Next() {
		c, err := scanChatbot(rows)
		if err != nil {
			return nil, err
		}
		chatbots = append(chatbots, c)
	}

	return chatbots, rows.Err()
}

// UpdateChatbot updates an existing chatbot config
func (s *SQLite) UpdateChatbot(ctx context.Context, c *models.ChatbotConfig) error {
	c.UpdatedAt = time.Now()

	query := `
		UPDATE chatbot_configs
		SET name = ?, custom_prompt = ?, knowledge_base = ?, temperature = ?, max_tokens = ?, model_id = ?, updated_at = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		c.Name,
		c.CustomPrompt,
		c.KnowledgeBase,
		c.Temperature,
		c.MaxTokens,
		c.ModelID,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "chatbot", ID: c.ID}
	}

	return nil
}

// DeleteChatbot deletes a chatbot config
func (s *SQLite) DeleteChatbot(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM chatbot_configs WHERE id = ?", id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "chatbot", ID: id}
	}

	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanChatbot.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanChatbot(row scanner) (*models.ChatbotConfig, error) {
	var c models.ChatbotConfig
	var temperature sql.NullFloat64
	var maxTokens sql.NullInt64
	var modelID sql.NullString

	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.CustomPrompt,
		&c.KnowledgeBase,
		&temperature,
		&maxTokens,
		&modelID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if temperature.Valid {
		c.Temperature = &temperature.Float64
	}
	if maxTokens.Valid {
		v := int(maxTokens.Int64)
		c.MaxTokens = &v
	}
	if modelID.Valid {
		c.ModelID = &modelID.String
	}

	return &c, nil
}
