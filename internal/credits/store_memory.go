package credits

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu       sync.Mutex
	balances map[string]int
	marker   time.Time // zero until the first reset
	requests map[string]Request
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		balances: make(map[string]int),
		requests: make(map[string]Request),
	}
}

func (s *memoryStore) ResetIfStale(ctx context.Context, today time.Time, allowance int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.marker.IsZero() && !today.After(s.marker) {
		return false, nil
	}
	for userID := range s.balances {
		s.balances[userID] = allowance
	}
	s.marker = today
	return true, nil
}

func (s *memoryStore) Consume(ctx context.Context, userID string, allowance int) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[userID]
	if !ok {
		bal = allowance
		s.balances[userID] = bal
	}
	if bal < 1 {
		return Receipt{}, ErrInsufficientCredits
	}
	bal--
	s.balances[userID] = bal
	return Receipt{UserID: userID, ResetDate: s.marker, Remaining: bal}, nil
}

func (s *memoryStore) Refund(ctx context.Context, receipt Receipt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.marker.Equal(receipt.ResetDate) {
		return false, nil
	}
	s.balances[receipt.UserID]++
	return true, nil
}

func (s *memoryStore) Get(ctx context.Context, userID string, allowance int) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[userID]
	if !ok {
		bal = allowance
		s.balances[userID] = bal
	}
	return Balance{UserID: userID, CreditsRemaining: bal, LastResetDate: s.markerPtr()}, nil
}

func (s *memoryStore) ListBalances(ctx context.Context) ([]Balance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]Balance, 0, len(s.balances))
	for userID, bal := range s.balances {
		out = append(out, Balance{UserID: userID, CreditsRemaining: bal, LastResetDate: s.markerPtr()})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memoryStore) markerPtr() *time.Time {
	if s.marker.IsZero() {
		return nil
	}
	m := s.marker
	return &m
}

func (s *memoryStore) CreateRequest(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return nil
}

func (s *memoryStore) DecideRequest(ctx context.Context, id, status string, amount, allowance int, decidedAt time.Time) (Request, error) {
	if err := ctx.Err(); err != nil {
		return Request{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return Request{}, ErrRequestNotFound
	}
	if req.Status != StatusPending {
		return Request{}, ErrRequestDecided
	}
	req.Status = status
	req.Amount = amount
	req.DecidedAt = &decidedAt
	s.requests[id] = req

	if status == StatusApproved {
		bal, ok := s.balances[req.UserID]
		if !ok {
			bal = allowance
		}
		s.balances[req.UserID] = bal + amount
	}
	return req, nil
}

func (s *memoryStore) ListRequests(ctx context.Context, status string) ([]Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]Request, 0, len(s.requests))
	for _, req := range s.requests {
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

var _ store = (*memoryStore)(nil)
