package intent

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pait-backend/internal/shared/server/respond"
)

// Handler serves the catalog to the intent-selection UI.
type Handler struct {
	Catalog *Catalog
}

// NewHandler constructs a Handler.
func NewHandler(catalog *Catalog) *Handler {
	return &Handler{Catalog: catalog}
}

// RegisterRoutes attaches intent routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/intents", h.list)
}

func (h *Handler) list(c *gin.Context) {
	respond.JSON(c, http.StatusOK, h.Catalog.List())
}
