// Package badges provides REST API handlers for the gamification engine:
// per-user badge views, point history, and the internal action trigger used
// by the blog/place/review services.
package badges

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trailpost/trailpost-backend/internal/service/engine"
	"github.com/trailpost/trailpost-backend/internal/service/progress"
	"github.com/trailpost/trailpost-backend/pkg/logger"
)

// ProgressService interface for read-path operations.
type ProgressService interface {
	GetBadgesForUser(ctx context.Context, userID uint, filter progress.StatusFilter) ([]progress.BadgeView, error)
	GetPointHistory(ctx context.Context, userID uint, page, limit int) (*progress.PointHistory, error)
}

// ActionSubmitter accepts fire-and-forget action submissions.
type ActionSubmitter interface {
	Submit(userID uint, action string, meta map[string]interface{}) bool
}

// Handler handles gamification API requests.
type Handler struct {
	progressService ProgressService
	dispatcher      ActionSubmitter
	log             *logger.Logger
}

// NewHandler creates a new gamification API handler.
func NewHandler(progressService *progress.Service, dispatcher *engine.Dispatcher, log *logger.Logger) *Handler {
	return &Handler{
		progressService: progressService,
		dispatcher:      dispatcher,
		log:             log,
	}
}

// NewHandlerWithInterfaces creates a new handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(progressService ProgressService, dispatcher ActionSubmitter, log *logger.Logger) *Handler {
	return &Handler{
		progressService: progressService,
		dispatcher:      dispatcher,
		log:             log,
	}
}

// RegisterRoutes attaches the handler's routes to a router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/:id/badges", h.GetUserBadges)
	rg.GET("/users/:id/points/history", h.GetPointHistory)
	rg.POST("/internal/actions", h.SubmitAction)
}

// GetUserBadges returns one entry per active badge with the user's progress.
// GET /api/v1/users/:id/badges?status=earned|unearned.
func (h *Handler) GetUserBadges(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	filter := progress.StatusFilter(c.Query("status"))
	switch filter {
	case progress.FilterNone, progress.FilterEarned, progress.FilterUnearned:
	default:
		h.errorResponse(c, http.StatusBadRequest, "status must be 'earned' or 'unearned'")
		return
	}

	views, err := h.progressService.GetBadgesForUser(c.Request.Context(), userID, filter)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges": views,
		"total":  len(views),
	})
}

// GetPointHistory returns a page of the user's point ledger.
// GET /api/v1/users/:id/points/history?page=1&limit=20.
func (h *Handler) GetPointHistory(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.parsePositiveQuery(c, "page", 1)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := h.parsePositiveQuery(c, "limit", 20)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	history, err := h.progressService.GetPointHistory(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get point history")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve point history")
		return
	}

	c.JSON(http.StatusOK, history)
}

// actionRequest is the trigger payload posted by sibling services.
type actionRequest struct {
	UserID uint            `json:"user_id" binding:"required"`
	Action string          `json:"action" binding:"required"`
	Meta   json.RawMessage `json:"meta"`
}

// SubmitAction enqueues a user action for badge evaluation. Always
// fire-and-forget: a 202 means accepted, not awarded.
// POST /api/v1/internal/actions.
func (h *Handler) SubmitAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "user_id and action are required")
		return
	}

	accepted := h.dispatcher.Submit(req.UserID, req.Action, engine.DecodeMeta(req.Meta))
	if !accepted {
		// Best-effort contract: overload is not the caller's problem,
		// but the response says so for observability.
		c.JSON(http.StatusAccepted, gin.H{"accepted": false})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (h *Handler) parseUserID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return uint(id), nil
}

func (h *Handler) parsePositiveQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return value, nil
}

func (h *Handler) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
