package credits

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docscan-backend/internal/shared/metrics"
	"docscan-backend/internal/shared/telemetry"
)

// Options configures a Ledger. Zero values fall back to defaults.
type Options struct {
	Allowance int
	Location  *time.Location
	Now       func() time.Time
}

// Ledger tracks per-user daily credits and credit increase requests.
type Ledger struct {
	store     store
	allowance int
	loc       *time.Location
	now       func() time.Time
}

// NewLedger constructs a Ledger with an in-memory store.
func NewLedger(opts Options) *Ledger {
	return newLedger(newMemoryStore(), opts)
}

// NewPostgresLedger constructs a Ledger backed by Postgres.
func NewPostgresLedger(database *sql.DB, opts Options) *Ledger {
	return newLedger(NewPGStore(database), opts)
}

func newLedger(s store, opts Options) *Ledger {
	if opts.Allowance <= 0 {
		opts.Allowance = DailyAllowance
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{store: s, allowance: opts.Allowance, loc: opts.Location, now: opts.Now}
}

// Allowance returns the daily credit allowance.
func (l *Ledger) Allowance() int {
	return l.allowance
}

// Today returns the current calendar date in the ledger's zone.
func (l *Ledger) Today() time.Time {
	return civilDate(l.now(), l.loc)
}

// CheckAndReset restores every balance to the allowance if the calendar day
// has advanced past the last reset. It reports whether a reset happened.
// Repeated calls on the same day are no-ops.
func (l *Ledger) CheckAndReset(ctx context.Context) (bool, error) {
	today := l.Today()
	reset, err := l.store.ResetIfStale(ctx, today, l.allowance)
	if err != nil {
		return false, fmt.Errorf("credit reset: %w", err)
	}
	if reset {
		metrics.IncCreditReset()
		telemetry.Info("credits.reset", map[string]any{
			"date":      today.Format(time.DateOnly),
			"allowance": l.allowance,
		})
	}
	return reset, nil
}

// TryConsume takes one credit from userID. With no credits left it returns
// ErrInsufficientCredits and changes nothing.
func (l *Ledger) TryConsume(ctx context.Context, userID string) (Receipt, error) {
	if strings.TrimSpace(userID) == "" {
		return Receipt{}, ErrInvalidUser
	}
	return l.store.Consume(ctx, userID, l.allowance)
}

// Refund returns the credit described by receipt. When a reset happened after
// the credit was taken the balance is already back at the allowance and the
// refund is dropped.
func (l *Ledger) Refund(ctx context.Context, receipt Receipt) error {
	applied, err := l.store.Refund(ctx, receipt)
	if err != nil {
		return fmt.Errorf("credit refund: %w", err)
	}
	if applied {
		metrics.IncCreditRefund()
	}
	telemetry.Info("credits.refund", map[string]any{
		"user_id": receipt.UserID,
		"applied": applied,
	})
	return nil
}

// Balance returns the caller's balance after applying any pending reset.
func (l *Ledger) Balance(ctx context.Context, userID string) (Balance, error) {
	if strings.TrimSpace(userID) == "" {
		return Balance{}, ErrInvalidUser
	}
	if _, err := l.CheckAndReset(ctx); err != nil {
		return Balance{}, err
	}
	return l.store.Get(ctx, userID, l.allowance)
}

// Balances lists every known balance after applying any pending reset.
func (l *Ledger) Balances(ctx context.Context) ([]Balance, error) {
	if _, err := l.CheckAndReset(ctx); err != nil {
		return nil, err
	}
	return l.store.ListBalances(ctx)
}

// RequestIncrease records a pending request for more credits.
func (l *Ledger) RequestIncrease(ctx context.Context, userID string) (Request, error) {
	if strings.TrimSpace(userID) == "" {
		return Request{}, ErrInvalidUser
	}
	if _, err := l.CheckAndReset(ctx); err != nil {
		return Request{}, err
	}
	req := Request{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: l.now().UTC(),
	}
	if err := l.store.CreateRequest(ctx, req); err != nil {
		return Request{}, err
	}
	telemetry.Info("credits.request_created", map[string]any{
		"request_id": req.ID,
		"user_id":    userID,
	})
	return req, nil
}

// Grant moves a pending request to approved or denied. Approval adds amount
// credits to the requester on top of the current day's balance, so a pending
// reset is applied first. A request is decided at most once.
func (l *Ledger) Grant(ctx context.Context, requestID, status string, amount int) (Request, error) {
	switch status {
	case StatusApproved:
		if amount <= 0 {
			return Request{}, fmt.Errorf("%w: amount must be positive", ErrInvalidGrant)
		}
	case StatusDenied:
		amount = 0
	default:
		return Request{}, fmt.Errorf("%w: status must be approved or denied", ErrInvalidGrant)
	}
	if _, err := l.CheckAndReset(ctx); err != nil {
		return Request{}, err
	}

	req, err := l.store.DecideRequest(ctx, requestID, status, amount, l.allowance, l.now().UTC())
	if err != nil {
		return Request{}, err
	}
	telemetry.Info("credits.request_decided", map[string]any{
		"request_id": req.ID,
		"user_id":    req.UserID,
		"status":     req.Status,
		"amount":     req.Amount,
	})
	return req, nil
}

// ListRequests returns requests with the given status, or all when status is
// empty, oldest first.
func (l *Ledger) ListRequests(ctx context.Context, status string) ([]Request, error) {
	if status != "" && !validStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return l.store.ListRequests(ctx, status)
}
