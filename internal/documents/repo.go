package documents

import "context"

// Repo defines persistence operations for documents. Documents are
// append-only: there is no update or delete.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	// ListCorpus returns every document except excludeID from a single
	// consistent read, ordered by ID.
	ListCorpus(ctx context.Context, excludeID string) ([]Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	CountByUser(ctx context.Context) ([]UserCount, error)
}

func validate(doc Document) error {
	if doc.ID == "" || doc.UserID == "" || doc.FileName == "" {
		return ErrInvalidInput
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
