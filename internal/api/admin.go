package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/shared"
)

// Global config request structures
type UpdateGlobalConfigRequest struct {
	SystemPrompt   *string  `json:"system_prompt,omitempty"`
	AllowedTopics  *string  `json:"allowed_topics,omitempty"`
	BlockedTopics  *string  `json:"blocked_topics,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	DefaultModelID *string  `json:"default_model_id,omitempty"`
}

// Model catalog request structures
type CreateModelRequest struct {
	ID              string `json:"id" binding:"required"`
	Provider        string `json:"provider" binding:"required"`
	ProviderModelID string `json:"provider_model_id" binding:"required"`
	MaxTokens       int    `json:"max_tokens"`
	IsActive        bool   `json:"is_active"`
	IsDefault       bool   `json:"is_default"`
}

type UpdateModelRequest struct {
	Provider        string `json:"provider,omitempty"`
	ProviderModelID string `json:"provider_model_id,omitempty"`
	MaxTokens       *int   `json:"max_tokens,omitempty"`
	IsActive        *bool  `json:"is_active,omitempty"`
	IsDefault       *bool  `json:"is_default,omitempty"`
}

// Chatbot request structures
type CreateChatbotRequest struct {
	OwnerID       string   `json:"owner_id" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	CustomPrompt  string   `json:"custom_prompt,omitempty"`
	KnowledgeBase string   `json:"knowledge_base,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
	ModelID       *string  `json:"model_id,omitempty"`
}

type UpdateChatbotRequest struct {
	Name          *string  `json:"name,omitempty"`
	CustomPrompt  *string  `json:"custom_prompt,omitempty"`
	KnowledgeBase *string  `json:"knowledge_base,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
	ModelID       *string  `json:"model_id,omitempty"`
}

// Global config endpoints

// getGlobalConfig handles GET /api/v1/config
func (s *Server) getGlobalConfig(c *gin.Context) {
	cfg, err := s.config.GetOrCreateGlobalConfig(c.Request.Context())
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to load config: "+err.Error())
		return
	}
	s.successResponse(c, cfg)
}

// updateGlobalConfig handles PUT /api/v1/config
func (s *Server) updateGlobalConfig(c *gin.Context) {
	var req UpdateGlobalConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	cfg, err := s.config.GetOrCreateGlobalConfig(c.Request.Context())
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to load config: "+err.Error())
		return
	}

	if req.SystemPrompt != nil {
		cfg.SystemPrompt = *req.SystemPrompt
	}
	if req.AllowedTopics != nil {
		cfg.AllowedTopics = *req.AllowedTopics
	}
	if req.BlockedTopics != nil {
		cfg.BlockedTopics = *req.BlockedTopics
	}
	if req.MaxTokens != nil {
		cfg.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		cfg.Temperature = *req.Temperature
	}
	if req.DefaultModelID != nil {
		cfg.DefaultModelID = *req.DefaultModelID
	}

	if err := s.config.UpdateGlobalConfig(c.Request.Context(), cfg); err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to update config: "+err.Error())
		return
	}

	s.successResponse(c, cfg)
}

// Model catalog endpoints

// listModels handles GET /api/v1/models
func (s *Server) listModels(c *gin.Context) {
	active := shared.ParseActiveFilter(c)

	catalog, err := s.config.ListModels(c.Request.Context(), active)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to list models: "+err.Error())
		return
	}

	s.successResponse(c, catalog)
}

// getModel handles GET /api/v1/models/:id
func (s *Server) getModel(c *gin.Context) {
	model, err := s.config.GetModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.successResponse(c, model)
}

// createModel handles POST /api/v1/models
func (s *Server) createModel(c *gin.Context) {
	var req CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	model := &models.ModelDescriptor{
		ID:              req.ID,
		Provider:        req.Provider,
		ProviderModelID: req.ProviderModelID,
		MaxTokens:       req.MaxTokens,
		IsActive:        req.IsActive,
		IsDefault:       req.IsDefault,
	}

	if err := s.config.CreateModel(c.Request.Context(), model); err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to create model: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    model,
		Message: "Model created successfully",
	})
}

// updateModel handles PUT /api/v1/models/:id
func (s *Server) updateModel(c *gin.Context) {
	var req UpdateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	model, err := s.config.GetModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	if req.Provider != "" {
		model.Provider = req.Provider
	}
	if req.ProviderModelID != "" {
		model.ProviderModelID = req.ProviderModelID
	}
	if req.MaxTokens != nil {
		model.MaxTokens = *req.MaxTokens
	}
	if req.IsActive != nil {
		model.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		model.IsDefault = *req.IsDefault
	}

	if err := s.config.UpdateModel(c.Request.Context(), model); err != nil {
		s.handleServiceError(c, err)
		return
	}

	s.successResponse(c, model)
}

// deleteModel handles DELETE /api/v1/models/:id
func (s *Server) deleteModel(c *gin.Context) {
	if err := s.config.DeleteModel(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, models.ErrModelInUse) {
			s.errorResponse(c, http.StatusConflict, "Model is referenced by a chatbot or set as the global default")
			return
		}
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Model deleted successfully",
	})
}

// Chatbot endpoints

// listChatbots handles GET /api/v1/chatbots
func (s *Server) listChatbots(c *gin.Context) {
	chatbots, err := s.config.ListChatbots(c.Request.Context(), c.Query("owner_id"))
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to list chatbots: "+err.Error())
		return
	}
	s.successResponse(c, chatbots)
}

// getChatbot handles GET /api/v1/chatbots/:id
func (s *Server) getChatbot(c *gin.Context) {
	chatbot, err := s.config.GetChatbot(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.successResponse(c, chatbot)
}

// createChatbot handles POST /api/v1/chatbots
func (s *Server) createChatbot(c *gin.Context) {
	var req CreateChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	chatbot := &models.ChatbotConfig{
		ID:            uuid.New().String(),
		OwnerID:       req.OwnerID,
		Name:          req.Name,
		CustomPrompt:  req.CustomPrompt,
		KnowledgeBase: req.KnowledgeBase,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		ModelID:       req.ModelID,
	}

	if err := s.config.CreateChatbot(c.Request.Context(), chatbot); err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to create chatbot: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    chatbot,
		Message: "Chatbot created successfully",
	})
}

// updateChatbot handles PUT /api/v1/chatbots/:id
func (s *Server) updateChatbot(c *gin.Context) {
	var req UpdateChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	chatbot, err := s.config.GetChatbot(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	if req.Name != nil {
		chatbot.Name = *req.Name
	}
	if req.CustomPrompt != nil {
		chatbot.CustomPrompt = *req.CustomPrompt
	}
	if req.KnowledgeBase != nil {
		chatbot.KnowledgeBase = *req.KnowledgeBase
	}
	if req.Temperature != nil {
		chatbot.Temperature = req.Temperature
	}
	if req.MaxTokens != nil {
		chatbot.MaxTokens = req.MaxTokens
	}
	if req.ModelID != nil {
		chatbot.ModelID = req.ModelID
	}

	if err := s.config.UpdateChatbot(c.Request.Context(), chatbot); err != nil {
		s.handleServiceError(c, err)
		return
	}

	s.successResponse(c, chatbot)
}

// deleteChatbot handles DELETE /api/v1/chatbots/:id
func (s *Server) deleteChatbot(c *gin.Context) {
	if err := s.config.DeleteChatbot(c.Request.Context(), c.Param("id")); err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Chatbot deleted successfully",
	})
}

// getEffectiveConfig handles GET /api/v1/chatbots/:id/effective-config
func (s *Server) getEffectiveConfig(c *gin.Context) {
	cfg, err := s.resolver.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.successResponse(c, cfg)
}
