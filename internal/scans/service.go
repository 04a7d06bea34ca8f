package scans

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docscan-backend/internal/credits"
	"docscan-backend/internal/documents"
	"docscan-backend/internal/extract"
	"docscan-backend/internal/shared/metrics"
	"docscan-backend/internal/shared/storage/object"
	"docscan-backend/internal/shared/telemetry"
	"docscan-backend/internal/shared/util"
)

// Result is an accepted submission.
type Result struct {
	Document         documents.Document
	CreditsRemaining int
}

// Service runs the submission workflow: reset check, credit consume, text
// extraction, raw byte storage and document persistence. A credit is only
// kept when the document was persisted.
type Service struct {
	Ledger *credits.Ledger
	Docs   documents.Repo
	Store  object.ObjectStore
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(ledger *credits.Ledger, docs documents.Repo, store object.ObjectStore) *Service {
	return &Service{Ledger: ledger, Docs: docs, Store: store, now: time.Now}
}

// Submit charges userID one credit and stores raw as a new document.
func (s *Service) Submit(ctx context.Context, userID, fileName string, raw []byte) (Result, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		metrics.IncSubmission(metrics.OutcomeInvalid)
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(raw) == 0 {
		metrics.IncSubmission(metrics.OutcomeInvalid)
		return Result{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	if _, err := s.Ledger.CheckAndReset(ctx); err != nil {
		metrics.IncSubmission(metrics.OutcomeStorage)
		return Result{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	receipt, err := s.Ledger.TryConsume(ctx, userID)
	if err != nil {
		if errors.Is(err, credits.ErrInsufficientCredits) {
			metrics.IncSubmission(metrics.OutcomeInsufficient)
			return Result{}, ErrQuotaExceeded
		}
		metrics.IncSubmission(metrics.OutcomeStorage)
		return Result{}, fmt.Errorf("%w: consume credit: %v", ErrStorageFailure, err)
	}

	doc, err := s.persist(ctx, userID, name, raw)
	if err != nil {
		s.refund(ctx, receipt, err)
		return Result{}, err
	}

	metrics.IncSubmission(metrics.OutcomeAccepted)
	telemetry.Info("scans.accepted", map[string]any{
		"user_id":           userID,
		"document_id":       doc.ID,
		"size_bytes":        doc.SizeBytes,
		"credits_remaining": receipt.Remaining,
	})
	return Result{Document: doc, CreditsRemaining: receipt.Remaining}, nil
}

func (s *Service) persist(ctx context.Context, userID, name string, raw []byte) (documents.Document, error) {
	text, mimeType, err := extract.Text(ctx, raw, "", name)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return documents.Document{}, ctxErr
		}
		metrics.IncSubmission(metrics.OutcomeInvalid)
		return documents.Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	saved, err := s.Store.Save(ctx, userID, name, bytes.NewReader(raw))
	if err != nil {
		metrics.IncSubmission(metrics.OutcomeStorage)
		return documents.Document{}, fmt.Errorf("%w: save upload: %v", ErrStorageFailure, err)
	}

	doc := documents.Document{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   name,
		Content:    text,
		MimeType:   mimeType,
		SizeBytes:  saved.SizeBytes,
		StorageKey: saved.Key,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.Docs.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), saved.Key); delErr != nil {
			telemetry.Error("scans.orphan_object", map[string]any{
				"storage_key": saved.Key,
				"error":       delErr,
			})
		}
		metrics.IncSubmission(metrics.OutcomeStorage)
		return documents.Document{}, fmt.Errorf("%w: record document: %v", ErrStorageFailure, err)
	}
	return doc, nil
}

// refund runs even when the request context is gone so the credit is not lost.
func (s *Service) refund(ctx context.Context, receipt credits.Receipt, cause error) {
	if err := s.Ledger.Refund(context.WithoutCancel(ctx), receipt); err != nil {
		telemetry.Error("scans.refund_failed", map[string]any{
			"user_id": receipt.UserID,
			"cause":   cause,
			"error":   err,
		})
	}
}
