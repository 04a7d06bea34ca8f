package documents

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]Document
	order []string // insertion order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Document)}
}

// Create stores a new document. IDs are never reused.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(doc); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[doc.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidInput, doc.ID)
	}
	r.byID[doc.ID] = doc
	r.order = append(r.order, doc.ID)
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListCorpus returns a snapshot of every document other than excludeID.
func (r *MemoryRepo) ListCorpus(ctx context.Context, excludeID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0, len(r.byID))
	for id, doc := range r.byID {
		if id == excludeID {
			continue
		}
		out = append(out, doc)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.RLock()
	docs := make([]Document, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		if doc := r.byID[r.order[i]]; doc.UserID == userID {
			docs = append(docs, doc)
		}
	}
	r.mu.RUnlock()

	// Insertion order already approximates recency; CreatedAt wins on skew.
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// CountByUser returns document counts per owning user, ordered by user ID.
func (r *MemoryRepo) CountByUser(ctx context.Context) ([]UserCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	counts := make(map[string]int)
	for _, doc := range r.byID {
		counts[doc.UserID]++
	}
	r.mu.RUnlock()

	out := make([]UserCount, 0, len(counts))
	for userID, n := range counts {
		out = append(out, UserCount{UserID: userID, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
