package similarity

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"docscan-backend/internal/documents"
	"docscan-backend/internal/shared/metrics"
	"docscan-backend/internal/shared/telemetry"
)

// DefaultThreshold is the exclusive lower bound a score must exceed to match.
const DefaultThreshold = 0.7

var ErrScanTimeout = errors.New("similarity scan timed out")

// Match is one corpus document similar to the query target.
type Match struct {
	DocumentID string  `json:"id"`
	FileName   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	Threshold float64
	AutoJunk  bool
	Workers   int
	Timeout   time.Duration
}

// Engine scores a stored document against the rest of the corpus.
type Engine struct {
	Docs      documents.Repo
	Threshold float64
	AutoJunk  bool
	Workers   int
	Timeout   time.Duration
}

// NewEngine constructs an Engine.
func NewEngine(docs documents.Repo, opts Options) *Engine {
	if opts.Threshold <= 0 || opts.Threshold >= 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		Docs:      docs,
		Threshold: opts.Threshold,
		AutoJunk:  opts.AutoJunk,
		Workers:   opts.Workers,
		Timeout:   opts.Timeout,
	}
}

// FindMatches returns every other document whose score against targetID is
// strictly above the threshold, highest score first and ties by ascending
// document ID. It is read-only.
func (e *Engine) FindMatches(ctx context.Context, targetID string) ([]Match, error) {
	start := time.Now()
	defer func() { metrics.ObserveMatchQuery(time.Since(start)) }()

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, e.Timeout, errEngineDeadline)
		defer cancel()
	}

	target, err := e.Docs.GetByID(ctx, targetID)
	if err != nil {
		return nil, e.scanError(ctx, err)
	}
	corpus, err := e.Docs.ListCorpus(ctx, targetID)
	if err != nil {
		return nil, e.scanError(ctx, fmt.Errorf("load corpus: %w", err))
	}
	if len(corpus) == 0 {
		return []Match{}, nil
	}

	scores := make([]float64, len(corpus))
	scored := make([]bool, len(corpus))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	for i := range corpus {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc := corpus[i]
			if !utf8.ValidString(doc.Content) {
				telemetry.Warn("similarity.candidate_skipped", map[string]any{
					"document_id": doc.ID,
					"target_id":   targetID,
					"reason":      "invalid utf-8",
				})
				metrics.IncCandidateSkipped()
				return nil
			}
			scores[i] = Ratio(target.Content, doc.Content, e.AutoJunk)
			scored[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, e.scanError(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, e.scanError(ctx, err)
	}

	matches := make([]Match, 0)
	for i, doc := range corpus {
		if scored[i] && scores[i] > e.Threshold {
			matches = append(matches, Match{DocumentID: doc.ID, FileName: doc.FileName, Similarity: scores[i]})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].DocumentID < matches[j].DocumentID
	})
	return matches, nil
}

// errEngineDeadline marks expiry of the engine's own scan timeout, as opposed
// to a deadline set by the caller.
var errEngineDeadline = errors.New("similarity scan deadline")

func (e *Engine) scanError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(context.Cause(ctx), errEngineDeadline) {
		telemetry.Warn("similarity.timeout", map[string]any{"timeout": e.Timeout.String()})
		return fmt.Errorf("%w after %s", ErrScanTimeout, e.Timeout)
	}
	return err
}
