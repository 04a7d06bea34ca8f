package credits

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docscan-backend/internal/shared/server/middleware"
	"docscan-backend/internal/shared/server/respond"
)

// Handler exposes credit endpoints.
type Handler struct {
	Ledger *Ledger
}

// NewHandler constructs a Handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{Ledger: ledger}
}

// RegisterRoutes attaches user-facing credit routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/credits", h.balance)
	rg.POST("/credits/request", h.requestIncrease)
}

// RegisterAdminRoutes attaches the approval queue routes. The group must
// already enforce the admin role.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/credit-requests", h.listRequests)
	rg.POST("/credit-requests/:id", h.decide)
}

func (h *Handler) balance(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	bal, err := h.Ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "failed to fetch credits")
		return
	}
	respond.OK(c, gin.H{
		"creditsRemaining": bal.CreditsRemaining,
		"dailyAllowance":   h.Ledger.Allowance(),
		"lastResetDate":    bal.LastResetDate,
	})
}

func (h *Handler) requestIncrease(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	req, err := h.Ledger.RequestIncrease(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "failed to create credit request")
		return
	}
	c.Set("creditOutcome", "requested")
	respond.OK(c, gin.H{
		"requestId": req.ID,
		"status":    req.Status,
		"message":   "Credit request submitted",
	})
}

func (h *Handler) listRequests(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	reqs, err := h.Ledger.ListRequests(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err, "failed to list credit requests")
		return
	}
	respond.OK(c, gin.H{"items": reqs})
}

type decideRequest struct {
	Status string `json:"status" binding:"required,oneof=approved denied"`
	Amount int    `json:"amount" binding:"gte=0"`
}

func (h *Handler) decide(c *gin.Context) {
	var body decideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "status must be approved or denied", nil)
		return
	}

	req, err := h.Ledger.Grant(c.Request.Context(), c.Param("id"), body.Status, body.Amount)
	if err != nil {
		h.fail(c, err, "failed to decide credit request")
		return
	}
	c.Set("creditOutcome", req.Status)
	respond.OK(c, req)
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "credit request not found", nil)
	case errors.Is(err, ErrRequestDecided):
		respond.Error(c, http.StatusConflict, "conflict", "credit request already decided", nil)
	case errors.Is(err, ErrInvalidGrant), errors.Is(err, ErrInvalidStatus):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrInvalidUser):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", msg, nil)
	}
}
