package similarity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"docscan-backend/internal/documents"
	"docscan-backend/internal/shared/telemetry"
)

func newRepo(t *testing.T, docs ...documents.Document) *documents.MemoryRepo {
	t.Helper()
	repo := documents.NewMemoryRepo()
	for _, doc := range docs {
		if doc.UserID == "" {
			doc.UserID = "u1"
		}
		if doc.FileName == "" {
			doc.FileName = doc.ID + ".txt"
		}
		require.NoError(t, repo.Create(context.Background(), doc))
	}
	return repo
}

func newEngine(repo documents.Repo) *Engine {
	return NewEngine(repo, Options{Threshold: DefaultThreshold, AutoJunk: true, Workers: 2})
}

func TestFindMatchesOrdersByScoreThenID(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	repo := newRepo(t,
		documents.Document{ID: "target", Content: text},
		documents.Document{ID: "dup-b", Content: text},
		documents.Document{ID: "dup-a", Content: text},
		documents.Document{ID: "near", Content: "the quick brown fox jumped over the lazy dog"},
		documents.Document{ID: "far", Content: "lorem ipsum dolor sit amet"},
	)

	matches, err := newEngine(repo).FindMatches(context.Background(), "target")
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "dup-a", matches[0].DocumentID)
	assert.Equal(t, "dup-b", matches[1].DocumentID)
	assert.Equal(t, 1.0, matches[0].Similarity)
	assert.Equal(t, "near", matches[2].DocumentID)
	assert.Less(t, matches[2].Similarity, 1.0)
	assert.Equal(t, "dup-a.txt", matches[0].FileName)
}

func TestFindMatchesThresholdIsExclusive(t *testing.T) {
	repo := newRepo(t,
		documents.Document{ID: "t", Content: "abcdefgxyz"},
		documents.Document{ID: "c", Content: "abcdefgXYZ"},
	)

	matches, err := newEngine(repo).FindMatches(context.Background(), "t")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindMatchesIncludesScoreJustAboveThreshold(t *testing.T) {
	// 26 shared runes out of 74: 52/74 is just above 0.7.
	repo := newRepo(t,
		documents.Document{ID: "t", Content: "abcdefghijklmnopqrstuvwxyz0123456789!"},
		documents.Document{ID: "c", Content: "abcdefghijklmnopqrstuvwxyzABCDEFGHIJK"},
	)

	matches, err := newEngine(repo).FindMatches(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c", matches[0].DocumentID)
	assert.InDelta(t, 52.0/74.0, matches[0].Similarity, 1e-12)
}

func TestFindMatchesIsMutual(t *testing.T) {
	repo := newRepo(t,
		documents.Document{ID: "a", Content: "abcdef"},
		documents.Document{ID: "b", Content: "abcdeg"},
	)
	engine := newEngine(repo)

	fromA, err := engine.FindMatches(context.Background(), "a")
	require.NoError(t, err)
	fromB, err := engine.FindMatches(context.Background(), "b")
	require.NoError(t, err)

	require.Len(t, fromA, 1)
	require.Len(t, fromB, 1)
	assert.Equal(t, "b", fromA[0].DocumentID)
	assert.Equal(t, "a", fromB[0].DocumentID)
	assert.Equal(t, fromA[0].Similarity, fromB[0].Similarity)
	assert.InDelta(t, 10.0/12.0, fromA[0].Similarity, 1e-12)
}

func TestFindMatchesEmptyCorpus(t *testing.T) {
	repo := newRepo(t, documents.Document{ID: "only", Content: "alone"})

	matches, err := newEngine(repo).FindMatches(context.Background(), "only")
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestFindMatchesUnknownTarget(t *testing.T) {
	_, err := newEngine(newRepo(t)).FindMatches(context.Background(), "missing")
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestFindMatchesSkipsInvalidUTF8(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	repo := newRepo(t,
		documents.Document{ID: "t", Content: "abcdef"},
		documents.Document{ID: "bad", Content: "abcde\xff"},
		documents.Document{ID: "good", Content: "abcdef"},
	)

	matches, err := newEngine(repo).FindMatches(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "good", matches[0].DocumentID)

	skipped := logs.FilterMessage("similarity.candidate_skipped").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "bad", skipped[0].ContextMap()["document_id"])
}

type blockingRepo struct {
	documents.Repo
}

func (blockingRepo) ListCorpus(ctx context.Context, _ string) ([]documents.Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFindMatchesTimeout(t *testing.T) {
	repo := newRepo(t, documents.Document{ID: "t", Content: "abc"})
	engine := NewEngine(blockingRepo{Repo: repo}, Options{Timeout: 20 * time.Millisecond})

	_, err := engine.FindMatches(context.Background(), "t")
	assert.True(t, errors.Is(err, ErrScanTimeout), "expected ErrScanTimeout, got %v", err)
}

func TestFindMatchesCallerDeadlineIsNotScanTimeout(t *testing.T) {
	repo := newRepo(t, documents.Document{ID: "t", Content: "abc"})
	engine := NewEngine(blockingRepo{Repo: repo}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := engine.FindMatches(ctx, "t")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrScanTimeout), "caller deadline reported as scan timeout: %v", err)
}

func TestNewEngineDefaults(t *testing.T) {
	engine := NewEngine(documents.NewMemoryRepo(), Options{})
	assert.Equal(t, DefaultThreshold, engine.Threshold)
	assert.Positive(t, engine.Workers)
}
