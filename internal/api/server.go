package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/logger"
	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/services"
)

// APIResponse is the envelope for all JSON responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server hosts the HTTP API over the config tier, the telemetry tier and
// the chat pipeline.
type Server struct {
	config     db.ConfigStore
	resolver   *services.ResolverService
	sessions   *services.SessionService
	chat       *services.ChatService
	metrics    *services.MetricsService
	insights   *services.InsightsService
	router     *gin.Engine
	httpServer *http.Server

	rateLimit rate.Limit
	rateBurst int
	limiters  map[string]*rate.Limiter
	limiterMu sync.Mutex
}

// NewServer creates a new API server
func NewServer(config db.ConfigStore, resolver *services.ResolverService, sessions *services.SessionService, chat *services.ChatService, metrics *services.MetricsService, insights *services.InsightsService, rateLimit float64, rateBurst int) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:    config,
		resolver:  resolver,
		sessions:  sessions,
		chat:      chat,
		metrics:   metrics,
		insights:  insights,
		rateLimit: rate.Limit(rateLimit),
		rateBurst: rateBurst,
		limiters:  make(map[string]*rate.Limiter),
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	v1 := s.router.Group("/api/v1")
	v1.Use(s.rateLimitMiddleware())
	{
		admin := v1.Group("/admin")
		{
			admin.GET("/config", s.getGlobalConfig)
			admin.PUT("/config", s.updateGlobalConfig)

			admin.GET("/models", s.listModels)
			admin.POST("/models", s.createModel)
			admin.GET("/models/:id", s.getModel)
			admin.PUT("/models/:id", s.updateModel)
			admin.DELETE("/models/:id", s.deleteModel)
		}

		v1.GET("/chatbots", s.listChatbots)
		v1.POST("/chatbots", s.createChatbot)
		v1.GET("/chatbots/:id", s.getChatbot)
		v1.PUT("/chatbots/:id", s.updateChatbot)
		v1.DELETE("/chatbots/:id", s.deleteChatbot)
		v1.GET("/chatbots/:id/effective-config", s.getEffectiveConfig)
		v1.POST("/chatbots/:id/chat", s.chatStream)
		v1.GET("/chatbots/:id/insights", s.getInsights)
		v1.GET("/chatbots/:id/metrics", s.getDailyMetric)
		v1.POST("/chatbots/:id/metrics/compute", s.computeMetrics)

		v1.POST("/sessions", s.startSession)
		v1.GET("/sessions/:id", s.getSession)
		v1.GET("/sessions/:id/messages", s.listSessionMessages)
		v1.POST("/sessions/:id/messages", s.logMessage)
		v1.POST("/sessions/:id/end", s.endSession)
	}
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	logger.Info("API server listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// health handles GET /health
func (s *Server) health(c *gin.Context) {
	if err := s.config.Ping(c.Request.Context()); err != nil {
		s.errorResponse(c, http.StatusServiceUnavailable, "Database unavailable: "+err.Error())
		return
	}
	s.successResponse(c, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// rateLimitMiddleware applies a per-client token bucket keyed by remote IP.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimit <= 0 {
			c.Next()
			return
		}
		if !s.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, APIResponse{
				Success: false,
				Error:   "Rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) limiterFor(clientIP string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	limiter, ok := s.limiters[clientIP]
	if !ok {
		limiter = rate.NewLimiter(s.rateLimit, s.rateBurst)
		s.limiters[clientIP] = limiter
	}
	return limiter
}

// successResponse sends a 200 response with the standard envelope.
func (s *Server) successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// errorResponse sends an error response with the standard envelope.
func (s *Server) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   message,
	})
}

// handleServiceError maps domain errors onto HTTP statuses.
func (s *Server) handleServiceError(c *gin.Context, err error) {
	switch {
	case models.IsNotFound(err):
		s.errorResponse(c, http.StatusNotFound, err.Error())
	case isSessionConflict(err):
		s.errorResponse(c, http.StatusConflict, err.Error())
	default:
		s.errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
