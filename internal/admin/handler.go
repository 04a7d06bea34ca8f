package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docscan-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analytics routes. The group must already enforce
// the admin role.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analytics", h.analytics)
}

func (h *Handler) analytics(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	stats, err := h.Svc.Analytics(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load analytics", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"users": stats})
}
