package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/botdeck/botdeck/internal/models"
)

// Insight endpoints

// getInsights handles GET /api/v1/chatbots/:id/insights?days=N
func (s *Server) getInsights(c *gin.Context) {
	days := 0
	if daysStr := c.Query("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 {
			s.errorResponse(c, http.StatusBadRequest, "Invalid days parameter")
			return
		}
		days = parsed
	}

	insights, err := s.insights.GetInsights(c.Request.Context(), c.Param("id"), days)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	s.successResponse(c, insights)
}

// getDailyMetric handles GET /api/v1/chatbots/:id/metrics?date=YYYY-MM-DD
//
// Without a date it reads today's rollup. A missing row is a 404: no metric
// exists for a day with no completed sessions.
func (s *Server) getDailyMetric(c *gin.Context) {
	day := time.Now().UTC()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse(models.MetricDate, dateStr)
		if err != nil {
			s.errorResponse(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	if _, err := s.config.GetChatbot(c.Request.Context(), c.Param("id")); err != nil {
		s.handleServiceError(c, err)
		return
	}

	metric, err := s.metrics.GetDailyMetric(c.Request.Context(), c.Param("id"), day)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.successResponse(c, metric)
}

// computeMetrics handles POST /api/v1/chatbots/:id/metrics/compute?date=YYYY-MM-DD
//
// Without a date it recomputes today's rollup. The endpoint exists for
// operators; the scheduler covers the normal path.
func (s *Server) computeMetrics(c *gin.Context) {
	day := time.Now().UTC()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse(models.MetricDate, dateStr)
		if err != nil {
			s.errorResponse(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	if _, err := s.config.GetChatbot(c.Request.Context(), c.Param("id")); err != nil {
		s.handleServiceError(c, err)
		return
	}

	metric, err := s.metrics.ComputeDailyMetric(c.Request.Context(), c.Param("id"), day)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	if metric == nil {
		s.successResponse(c, gin.H{"computed": false, "reason": "no completed sessions for that day"})
		return
	}
	s.successResponse(c, metric)
}
