package similarity

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docscan-backend/internal/documents"
	"docscan-backend/internal/shared/server/respond"
)

// Handler serves similarity queries.
type Handler struct {
	Engine *Engine
}

// NewHandler constructs a Handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

// RegisterRoutes attaches similarity routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/matches/:id", h.matches)
}

// Any authenticated user may query any document id; results expose only id,
// file name and score.
func (h *Handler) matches(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)

	matches, err := h.Engine.FindMatches(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrScanTimeout):
			respond.Error(c, http.StatusGatewayTimeout, "timeout", "similarity scan timed out", nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute matches", nil)
		}
		return
	}
	respond.OK(c, matches)
}
