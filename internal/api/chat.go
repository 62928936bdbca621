package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botdeck/botdeck/internal/llm"
	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/services"
)

// Session request structures
type StartSessionRequest struct {
	ChatbotID string `json:"chatbot_id" binding:"required"`
	UserID    string `json:"user_id,omitempty"`
	VisitorID string `json:"visitor_id,omitempty"`
}

type LogMessageRequest struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
	Tokens  int    `json:"tokens,omitempty"`
	ModelID string `json:"model_id,omitempty"`
}

type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

type EndSessionRequest struct {
	MessageCount *int `json:"message_count" binding:"required"`
}

// Session endpoints

// startSession handles POST /api/v1/sessions
func (s *Server) startSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.UserID != "" && req.VisitorID != "" {
		s.errorResponse(c, http.StatusBadRequest, "Provide user_id or visitor_id, not both")
		return
	}

	session, err := s.sessions.StartSession(c.Request.Context(), req.ChatbotID, services.Identity{
		UserID:    req.UserID,
		VisitorID: req.VisitorID,
	})
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    session,
		Message: "Session started",
	})
}

// getSession handles GET /api/v1/sessions/:id
func (s *Server) getSession(c *gin.Context) {
	session, err := s.sessions.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.successResponse(c, session)
}

// listSessionMessages handles GET /api/v1/sessions/:id/messages
func (s *Server) listSessionMessages(c *gin.Context) {
	messages, err := s.sessions.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.successResponse(c, messages)
}

// logMessage handles POST /api/v1/sessions/:id/messages
func (s *Server) logMessage(c *gin.Context) {
	var req LogMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		s.errorResponse(c, http.StatusBadRequest, "Invalid role: must be user, assistant or system")
		return
	}

	message, err := s.sessions.LogMessage(c.Request.Context(), c.Param("id"), req.Role, req.Content, req.Tokens, req.ModelID)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    message,
	})
}

// endSession handles POST /api/v1/sessions/:id/end
//
// The caller reports its own message count; the count is recorded as-is.
func (s *Server) endSession(c *gin.Context) {
	var req EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if *req.MessageCount < 0 {
		s.errorResponse(c, http.StatusBadRequest, "message_count must not be negative")
		return
	}

	session, err := s.sessions.EndSession(c.Request.Context(), c.Param("id"), *req.MessageCount)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.successResponse(c, session)
}

// chatStream handles POST /api/v1/chatbots/:id/chat
//
// The assistant reply streams back as server-sent events: one "message"
// event per text chunk, then a "done" event carrying the stored assistant
// message. Errors after the stream has started arrive as an "error" event.
func (s *Server) chatStream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	streamed := false
	message, err := s.chat.Answer(c.Request.Context(), c.Param("id"), req.SessionID, req.Content, func(text string) error {
		streamed = true
		c.SSEvent("message", text)
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		s.chatError(c, err, streamed)
		return
	}

	c.SSEvent("done", message)
	c.Writer.Flush()
}

// chatError reports a chat failure. Before any chunk has been written the
// normal JSON envelope still works; afterwards only an SSE error event can
// reach the client.
func (s *Server) chatError(c *gin.Context, err error, streamed bool) {
	status, message := chatErrorStatus(err)
	if streamed {
		c.SSEvent("error", message)
		c.Writer.Flush()
		return
	}
	s.errorResponse(c, status, message)
}

func chatErrorStatus(err error) (int, string) {
	var genErr *llm.GenerationError
	switch {
	case models.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case isSessionConflict(err):
		return http.StatusConflict, err.Error()
	case errors.As(err, &genErr):
		if genErr.Retryable {
			return http.StatusServiceUnavailable, "The assistant is temporarily unavailable. Please try again."
		}
		return http.StatusBadGateway, "Sorry, I could not produce a response right now."
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func isSessionConflict(err error) bool {
	var closed *models.SessionClosedError
	var already *models.AlreadyClosedError
	return errors.As(err, &closed) || errors.As(err, &already)
}
