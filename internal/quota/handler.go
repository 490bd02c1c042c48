package quota

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pait-backend/internal/shared/server/middleware"
	"pait-backend/internal/shared/server/respond"
)

// Handler exposes quota inspection endpoints to the usage-meter UI.
type Handler struct {
	Ledger *Ledger
}

// NewHandler constructs a Handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{Ledger: ledger}
}

// RegisterRoutes attaches quota routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/quota", h.getQuota)
}

// RegisterDevRoutes attaches dev-only quota routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/quota/reset", h.resetQuota)
}

func (h *Handler) getQuota(c *gin.Context) {
	subjectID := middleware.SubjectIDFromContext(c)
	tier := Tier(middleware.TierFromContext(c))
	if !tier.Valid() {
		tier = TierFree
	}

	st, err := h.Ledger.Snapshot(c.Request.Context(), subjectID, tier)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, 499, "client_closed", "request cancelled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load quota", nil)
		}
		return
	}
	respond.OK(c, st)
}

func (h *Handler) resetQuota(c *gin.Context) {
	subjectID := middleware.SubjectIDFromContext(c)
	tier := Tier(middleware.TierFromContext(c))
	if !tier.Valid() {
		tier = TierFree
	}

	st, err := h.Ledger.ResetAll(c.Request.Context(), subjectID, tier)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to reset quota", nil)
		return
	}
	respond.OK(c, st)
}
