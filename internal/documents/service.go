package documents

import (
	"context"
	"errors"
)

// Service exposes read access to a user's own documents.
type Service struct {
	Repo Repo
}

// List returns a page of the user's documents, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Get returns one document owned by userID. Documents owned by someone else
// are reported as not found.
func (s *Service) Get(ctx context.Context, userID, id string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}
