package credits

import (
	"context"
	"time"
)

// store is the persistence contract behind the Ledger. Every method is atomic
// with respect to the others.
type store interface {
	// ResetIfStale restores every balance to allowance and records today as
	// the reset marker when the marker is absent or older than today.
	ResetIfStale(ctx context.Context, today time.Time, allowance int) (bool, error)
	Consume(ctx context.Context, userID string, allowance int) (Receipt, error)
	Refund(ctx context.Context, receipt Receipt) (bool, error)
	Get(ctx context.Context, userID string, allowance int) (Balance, error)
	ListBalances(ctx context.Context) ([]Balance, error)

	CreateRequest(ctx context.Context, req Request) error
	DecideRequest(ctx context.Context, id, status string, amount, allowance int, decidedAt time.Time) (Request, error)
	ListRequests(ctx context.Context, status string) ([]Request, error)
}
