package subjects

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pait-backend/internal/quota"
	"pait-backend/internal/shared/server/middleware"
	"pait-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// RegisterDevRoutes attaches dev-only subject routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/me/tier", h.setTier)
}

func (h *Handler) me(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	subjectID := middleware.SubjectIDFromContext(c)
	subject, err := h.Svc.GetByID(c.Request.Context(), subjectID)
	if err != nil {
		if err == ErrNotFound {
			if middleware.IsGuest(c) {
				respond.JSON(c, http.StatusOK, gin.H{
					"id":    subjectID,
					"tier":  string(quota.TierFree),
					"guest": true,
				})
				return
			}
			respond.Error(c, http.StatusNotFound, "not_found", "subject not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load subject", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"id":          subject.ID,
		"email":       subject.Email,
		"displayName": subject.DisplayName,
		"tier":        string(subject.Tier),
		"guest":       subject.IsGuest(),
	})
}

func (h *Handler) setTier(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	var body struct {
		Tier string `json:"tier"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid body", nil)
		return
	}
	subjectID := middleware.SubjectIDFromContext(c)
	if err := h.Svc.UpgradeTier(c.Request.Context(), subjectID, quota.Tier(body.Tier)); err != nil {
		if err == ErrNotFound {
			respond.Error(c, http.StatusNotFound, "not_found", "subject not found", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	respond.OK(c, gin.H{"id": subjectID, "tier": body.Tier})
}
