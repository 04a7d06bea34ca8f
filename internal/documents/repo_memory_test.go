package documents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seed(t *testing.T, repo *MemoryRepo, docs ...Document) {
	t.Helper()
	for _, doc := range docs {
		if err := repo.Create(context.Background(), doc); err != nil {
			t.Fatalf("Create(%s): %v", doc.ID, err)
		}
	}
}

func TestMemoryRepoGetByID(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo, Document{ID: "a", UserID: "u1", FileName: "a.txt", Content: "alpha"})

	got, err := repo.GetByID(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Content != "alpha" {
		t.Fatalf("unexpected content %q", got.Content)
	}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoRejectsDuplicateAndInvalid(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo, Document{ID: "a", UserID: "u1", FileName: "a.txt"})

	if err := repo.Create(context.Background(), Document{ID: "a", UserID: "u2", FileName: "b.txt"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate id, got %v", err)
	}
	if err := repo.Create(context.Background(), Document{ID: "b", FileName: "b.txt"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing owner, got %v", err)
	}
}

func TestMemoryRepoListCorpusExcludesTarget(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo,
		Document{ID: "c", UserID: "u1", FileName: "c.txt"},
		Document{ID: "a", UserID: "u2", FileName: "a.txt"},
		Document{ID: "b", UserID: "u1", FileName: "b.txt"},
	)

	corpus, err := repo.ListCorpus(context.Background(), "b")
	if err != nil {
		t.Fatalf("ListCorpus: %v", err)
	}
	if len(corpus) != 2 || corpus[0].ID != "a" || corpus[1].ID != "c" {
		t.Fatalf("unexpected corpus: %+v", corpus)
	}
}

func TestMemoryRepoListByUserNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seed(t, repo,
		Document{ID: "old", UserID: "u1", FileName: "old.txt", CreatedAt: base},
		Document{ID: "other", UserID: "u2", FileName: "x.txt", CreatedAt: base.Add(time.Minute)},
		Document{ID: "new", UserID: "u1", FileName: "new.txt", CreatedAt: base.Add(time.Hour)},
	)

	docs, err := repo.ListByUser(context.Background(), "u1", 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "new" || docs[1].ID != "old" {
		t.Fatalf("unexpected order: %+v", docs)
	}

	page, err := repo.ListByUser(context.Background(), "u1", 1, 1)
	if err != nil {
		t.Fatalf("ListByUser page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "old" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestMemoryRepoCountByUser(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo,
		Document{ID: "1", UserID: "bob", FileName: "1.txt"},
		Document{ID: "2", UserID: "alice", FileName: "2.txt"},
		Document{ID: "3", UserID: "bob", FileName: "3.txt"},
	)

	counts, err := repo.CountByUser(context.Background())
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	want := []UserCount{{UserID: "alice", Count: 1}, {UserID: "bob", Count: 2}}
	if len(counts) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("entry %d: got %+v want %+v", i, counts[i], want[i])
		}
	}
}

func TestMemoryRepoHonorsCanceledContext(t *testing.T) {
	repo := NewMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := repo.ListCorpus(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
