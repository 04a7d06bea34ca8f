package scans

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docscan-backend/internal/documents"
	"docscan-backend/internal/shared/server/middleware"
	"docscan-backend/internal/shared/server/respond"
)

const defaultMaxUploadBytes = 10 << 20 // 10MB

// Handler exposes the submission endpoint.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. maxUploadBytes <= 0 uses 10MB.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches the scan route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/scan", h.scan)
}

type scanResponse struct {
	Message          string `json:"message"`
	CreditsRemaining int    `json:"creditsRemaining"`
	documents.DocumentResponse
}

func (h *Handler) scan(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	res, err := h.Svc.Submit(c.Request.Context(), userID, fileHeader.Filename, raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrQuotaExceeded):
			c.Set("creditOutcome", "insufficient")
			respond.Error(c, http.StatusBadRequest, "insufficient_credits", "Insufficient credits", nil)
		case errors.Is(err, ErrInvalidInput):
			c.Set("creditOutcome", "rejected")
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrStorageFailure):
			c.Set("creditOutcome", "refunded")
			c.Header("Retry-After", "1")
			respond.Error(c, http.StatusServiceUnavailable, "storage_failure", "storage unavailable, credit refunded; retry later", nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit document", nil)
		}
		return
	}

	c.Set("documentId", res.Document.ID)
	c.Set("creditOutcome", "consumed")
	respond.OK(c, scanResponse{
		Message:          "Scan successful",
		CreditsRemaining: res.CreditsRemaining,
		DocumentResponse: documents.ToResponse(res.Document),
	})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart parsing does not always wrap the reader error.
	return strings.Contains(err.Error(), "request body too large")
}
