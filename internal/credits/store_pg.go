package credits

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"docscan-backend/internal/shared/storage/db"
)

// pgStore keeps balances in user_credits and the global reset date in the
// single credit_reset_marker row. Resets lock that row FOR UPDATE; consumes
// and refunds lock it FOR SHARE, so a reset never interleaves with them.
type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed credit store.
func NewPGStore(database *sql.DB) *pgStore {
	return &pgStore{DB: database}
}

func (s *pgStore) ResetIfStale(ctx context.Context, today time.Time, allowance int) (bool, error) {
	reset := false
	err := db.WithTx(ctx, s.DB, nil, func(tx *sql.Tx) error {
		marker, err := readMarker(ctx, tx, "FOR UPDATE")
		if err != nil {
			return err
		}
		if marker != nil && !today.After(*marker) {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE user_credits SET credits_remaining = $1, updated_at = now()`, allowance); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE credit_reset_marker SET last_reset_date = $1 WHERE id = 1`, today); err != nil {
			return err
		}
		reset = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reset, nil
}

func (s *pgStore) Consume(ctx context.Context, userID string, allowance int) (Receipt, error) {
	var receipt Receipt
	err := db.WithTx(ctx, s.DB, nil, func(tx *sql.Tx) error {
		marker, err := readMarker(ctx, tx, "FOR SHARE")
		if err != nil {
			return err
		}
		if err := ensureUser(ctx, tx, userID, allowance); err != nil {
			return err
		}
		var remaining int
		err = tx.QueryRowContext(ctx, `
UPDATE user_credits
SET credits_remaining = credits_remaining - 1, updated_at = now()
WHERE user_id = $1 AND credits_remaining >= 1
RETURNING credits_remaining`, userID).Scan(&remaining)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInsufficientCredits
			}
			return err
		}
		receipt = Receipt{UserID: userID, Remaining: remaining}
		if marker != nil {
			receipt.ResetDate = *marker
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

func (s *pgStore) Refund(ctx context.Context, receipt Receipt) (bool, error) {
	applied := false
	err := db.WithTx(ctx, s.DB, nil, func(tx *sql.Tx) error {
		marker, err := readMarker(ctx, tx, "FOR SHARE")
		if err != nil {
			return err
		}
		var current time.Time
		if marker != nil {
			current = *marker
		}
		if !current.Equal(receipt.ResetDate) {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE user_credits
SET credits_remaining = credits_remaining + 1, updated_at = now()
WHERE user_id = $1`, receipt.UserID); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *pgStore) Get(ctx context.Context, userID string, allowance int) (Balance, error) {
	bal := Balance{UserID: userID}
	err := db.WithTx(ctx, s.DB, nil, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID, allowance); err != nil {
			return err
		}
		var marker sql.NullTime
		if err := tx.QueryRowContext(ctx, `
SELECT c.credits_remaining, m.last_reset_date
FROM user_credits c CROSS JOIN credit_reset_marker m
WHERE c.user_id = $1 AND m.id = 1`, userID).Scan(&bal.CreditsRemaining, &marker); err != nil {
			return err
		}
		if marker.Valid {
			d := normalizeDate(marker.Time)
			bal.LastResetDate = &d
		}
		return nil
	})
	if err != nil {
		return Balance{}, err
	}
	return bal, nil
}

func (s *pgStore) ListBalances(ctx context.Context) ([]Balance, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT c.user_id, c.credits_remaining, m.last_reset_date
FROM user_credits c CROSS JOIN credit_reset_marker m
WHERE m.id = 1
ORDER BY c.user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Balance{}
	for rows.Next() {
		var bal Balance
		var marker sql.NullTime
		if err := rows.Scan(&bal.UserID, &bal.CreditsRemaining, &marker); err != nil {
			return nil, err
		}
		if marker.Valid {
			d := normalizeDate(marker.Time)
			bal.LastResetDate = &d
		}
		out = append(out, bal)
	}
	return out, rows.Err()
}

func (s *pgStore) CreateRequest(ctx context.Context, req Request) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO credit_requests (id, user_id, status, amount, created_at)
VALUES ($1, $2, $3, $4, $5)`, req.ID, req.UserID, req.Status, req.Amount, req.CreatedAt)
	return err
}

func (s *pgStore) DecideRequest(ctx context.Context, id, status string, amount, allowance int, decidedAt time.Time) (Request, error) {
	var req Request
	err := db.WithTx(ctx, s.DB, nil, func(tx *sql.Tx) error {
		var err error
		req, err = scanRequest(tx.QueryRowContext(ctx, `
SELECT id, user_id, status, amount, created_at, decided_at
FROM credit_requests
WHERE id = $1
FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRequestNotFound
			}
			return err
		}
		if req.Status != StatusPending {
			return ErrRequestDecided
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE credit_requests SET status = $1, amount = $2, decided_at = $3 WHERE id = $4`,
			status, amount, decidedAt, id); err != nil {
			return err
		}
		if status == StatusApproved {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO user_credits (user_id, credits_remaining) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE
SET credits_remaining = user_credits.credits_remaining + $3, updated_at = now()`,
				req.UserID, allowance+amount, amount); err != nil {
				return err
			}
		}
		req.Status = status
		req.Amount = amount
		req.DecidedAt = &decidedAt
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

func (s *pgStore) ListRequests(ctx context.Context, status string) ([]Request, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, status, amount, created_at, decided_at
FROM credit_requests
WHERE $1 = '' OR status = $1
ORDER BY created_at, id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	var decidedAt sql.NullTime
	if err := row.Scan(&req.ID, &req.UserID, &req.Status, &req.Amount, &req.CreatedAt, &decidedAt); err != nil {
		return Request{}, err
	}
	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}
	return req, nil
}

func readMarker(ctx context.Context, tx *sql.Tx, lock string) (*time.Time, error) {
	var marker sql.NullTime
	err := tx.QueryRowContext(ctx, `
SELECT last_reset_date FROM credit_reset_marker WHERE id = 1 `+lock).Scan(&marker)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Migrations seed the row; recreate it if it was removed.
			if _, err := tx.ExecContext(ctx, `
INSERT INTO credit_reset_marker (id, last_reset_date) VALUES (1, NULL)
ON CONFLICT (id) DO NOTHING`); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	if !marker.Valid {
		return nil, nil
	}
	d := normalizeDate(marker.Time)
	return &d, nil
}

func ensureUser(ctx context.Context, tx *sql.Tx, userID string, allowance int) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO user_credits (user_id, credits_remaining) VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING`, userID, allowance)
	return err
}

var _ store = (*pgStore)(nil)
