package chat

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/courseloom/tutor/internal/logging"
)

// CourseLister provides the catalog stats surface. Satisfied by
// *catalog.Store.
type CourseLister interface {
	CourseCount(ctx context.Context) (int, error)
	ListCourseTitles(ctx context.Context) ([]string, error)
}

// Handler exposes the chat API over HTTP.
type Handler struct {
	orchestrator  *Orchestrator
	catalog       CourseLister
	maxQueryRunes int
	logger        logging.Logger
}

func NewHandler(orchestrator *Orchestrator, catalog CourseLister, maxQueryRunes int, logger logging.Logger) *Handler {
	return &Handler{
		orchestrator:  orchestrator,
		catalog:       catalog,
		maxQueryRunes: maxQueryRunes,
		logger:        logger,
	}
}

// RegisterRoutes mounts the API endpoints on the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/query", h.handleQuery)
	api.GET("/courses", h.handleCourseStats)
}

type queryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
}

func (h *Handler) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	if h.maxQueryRunes > 0 && utf8.RuneCountInString(req.Query) > h.maxQueryRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query too long"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.orchestrator.Sessions().Create()
	}

	answer, sources, err := h.orchestrator.Answer(c.Request.Context(), req.Query, sessionID)
	if err != nil {
		h.logger.WithFields(logging.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate answer"})
		return
	}

	if sources == nil {
		sources = []Source{}
	}
	c.JSON(http.StatusOK, queryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}

type courseStatsResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func (h *Handler) handleCourseStats(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.catalog.CourseCount(ctx)
	if err != nil {
		h.logger.WithFields(logging.Fields{"error": err.Error()}).Error("Course count query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load course stats"})
		return
	}
	titles, err := h.catalog.ListCourseTitles(ctx)
	if err != nil {
		h.logger.WithFields(logging.Fields{"error": err.Error()}).Error("Course title query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load course stats"})
		return
	}
	if titles == nil {
		titles = []string{}
	}

	c.JSON(http.StatusOK, courseStatsResponse{
		TotalCourses: count,
		CourseTitles: titles,
	})
}
