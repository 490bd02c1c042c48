package orchestration

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pait-backend/internal/artifacts"
	"pait-backend/internal/intent"
	"pait-backend/internal/quota"
	"pait-backend/internal/shared/server/middleware"
	"pait-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.start)
	rg.GET("/sessions", h.list)
	rg.GET("/sessions/:id", h.status)
	rg.GET("/sessions/:id/result", h.result)
	rg.POST("/sessions/:id/cancel", h.cancel)
}

type startRequest struct {
	IntentID   string `json:"intentId"`
	ArtifactID string `json:"artifactId"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.IntentID == "" || req.ArtifactID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "intentId and artifactId are required", nil)
		return
	}

	subjectID := middleware.SubjectIDFromContext(c)
	tier := quota.Tier(middleware.TierFromContext(c))

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	session, err := h.Svc.Start(ctx, subjectID, tier, req.IntentID, req.ArtifactID)
	if err != nil {
		switch {
		case errors.Is(err, quota.ErrDailyLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "quota_denied", "daily_limit_reached", gin.H{"sessionId": session.ID})
		case errors.Is(err, quota.ErrInsufficientTokens):
			respond.Error(c, http.StatusPaymentRequired, "quota_denied", "insufficient_tokens", gin.H{"sessionId": session.ID})
		case errors.Is(err, intent.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "intent_not_found", "unknown intent", nil)
		case errors.Is(err, artifacts.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "artifact_not_found", "unknown artifact", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start session", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"sessionId": session.ID,
		"state":     session.State,
		"intentId":  session.IntentID,
		"createdAt": session.CreatedAt,
	})
}

func (h *Handler) status(c *gin.Context) {
	snapshot, err := h.Svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load session", nil)
		return
	}
	respond.OK(c, snapshot)
}

func (h *Handler) result(c *gin.Context) {
	outcome, err := h.Svc.AwaitResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		case errors.Is(err, ErrSessionFailed):
			respond.Error(c, http.StatusUnprocessableEntity, "session_failed", err.Error(), nil)
		case errors.Is(err, ErrNotCompleted):
			respond.Error(c, http.StatusConflict, "not_completed", "session has no result yet", nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, 499, "client_closed", "request cancelled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load result", nil)
		}
		return
	}
	respond.OK(c, outcome)
}

func (h *Handler) cancel(c *gin.Context) {
	err := h.Svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		case errors.Is(err, ErrNotCancellable):
			respond.Error(c, http.StatusConflict, "not_cancellable", "session already finished", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel session", nil)
		}
		return
	}
	respond.OK(c, gin.H{"sessionId": c.Param("id"), "state": "cancelling"})
}

func (h *Handler) list(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	subjectID := middleware.SubjectIDFromContext(c)
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	sessions, err := h.Svc.List(c.Request.Context(), subjectID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list sessions", nil)
		return
	}

	resp := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		item := gin.H{
			"sessionId":  s.ID,
			"intentId":   s.IntentID,
			"artifactId": s.ArtifactID,
			"state":      s.State,
			"createdAt":  s.CreatedAt,
		}
		if s.Composite != nil {
			item["composite"] = s.Composite
		}
		if s.FailureReason != "" {
			item["failureReason"] = s.FailureReason
		}
		if s.SealStatus != "" {
			item["sealStatus"] = s.SealStatus
		}
		resp = append(resp, item)
	}
	respond.JSON(c, http.StatusOK, resp)
}
