package users

import (
	"context"
	"errors"
	"strings"
	"sync"

	"docscan-backend/internal/shared/telemetry"
)

type Service struct {
	Repo Repo

	mu   sync.Mutex
	seen map[string]User // last identity written per user
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, seen: make(map[string]User)}
}

// Record persists the identity carried by an authenticated request. Writes
// are skipped while the name and role are unchanged.
func (s *Service) Record(ctx context.Context, id, username, role string) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(username) == "" {
		username = id
	}
	if role == "" {
		role = RoleUser
	}
	user := User{ID: id, Username: username, Role: role}

	s.mu.Lock()
	prev, ok := s.seen[id]
	s.mu.Unlock()
	if ok && prev.Username == username && prev.Role == role {
		return nil
	}

	if err := s.Repo.Upsert(ctx, user); err != nil {
		return err
	}
	s.mu.Lock()
	s.seen[id] = user
	s.mu.Unlock()
	return nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.Repo.List(ctx)
}

// logFailure keeps identity tracking from failing the request it rides on.
func logFailure(userID string, err error) {
	telemetry.Warn("users.record_failed", map[string]any{
		"user_id": userID,
		"error":   err,
	})
}
