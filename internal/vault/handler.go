package vault

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pait-backend/internal/shared/server/respond"
)

// Handler exposes sealed-record export endpoints.
type Handler struct {
	Sealer *Sealer
}

// NewHandler constructs a Handler.
func NewHandler(sealer *Sealer) *Handler {
	return &Handler{Sealer: sealer}
}

// RegisterRoutes attaches vault routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/vault/records/:id", h.getRecord)
}

func (h *Handler) getRecord(c *gin.Context) {
	recordID := c.Param("id")
	if recordID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "record id is required", nil)
		return
	}

	rec, err := h.Sealer.Get(c.Request.Context(), recordID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "sealed record not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch sealed record", nil)
		}
		return
	}
	respond.OK(c, rec)
}
