package artifacts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pait-backend/internal/shared/server/middleware"
	"pait-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches artifact routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/artifacts", h.upload)
	rg.GET("/artifacts", h.list)
	rg.GET("/artifacts/:id", h.get)
}

func (h *Handler) upload(c *gin.Context) {
	subjectID := middleware.SubjectIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	artifact, err := h.Svc.Upload(c.Request.Context(), subjectID, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload artifact", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(artifact))
}

func (h *Handler) get(c *gin.Context) {
	subjectID := middleware.SubjectIDFromContext(c)

	artifact, err := h.Svc.Get(c.Request.Context(), subjectID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "artifact not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch artifact", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(artifact))
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
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.Svc.List(c.Request.Context(), subjectID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list artifacts", nil)
		return
	}

	resp := make([]Response, 0, len(list))
	for _, a := range list {
		resp = append(resp, toResponse(a))
	}
	respond.JSON(c, http.StatusOK, resp)
}
