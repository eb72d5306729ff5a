package service

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/logger"
	"golang.org/x/sync/errgroup"
)

const (
	defaultEmbedBatchSize = 5
	defaultEmbedMaxChars  = 4000
	defaultQueryCacheSize = 16
)

// FileEmbedderConfig tunes batching and truncation.
type FileEmbedderConfig struct {
	BatchSize      int
	MaxChars       int
	QueryCacheSize int
}

// FileEmbedder turns candidate files into vectors through an EmbeddingProvider.
type FileEmbedder struct {
	provider   EmbeddingProvider
	batchSize  int
	maxChars   int
	queryCache *lru.Cache[string, []float32]
}

// NewFileEmbedder creates a FileEmbedder.
// Parameters:
//   - provider: embedding backend.
//   - cfg: batching settings; zero values use the defaults (5 per batch, 4000 characters).
// Returns:
//   - *FileEmbedder: ready embedder.
//   - error: non-nil if the query cache cannot be created.
func NewFileEmbedder(provider EmbeddingProvider, cfg FileEmbedderConfig) (*FileEmbedder, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultEmbedBatchSize
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultEmbedMaxChars
	}
	if cfg.QueryCacheSize <= 0 {
		cfg.QueryCacheSize = defaultQueryCacheSize
	}
	cache, err := lru.New[string, []float32](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &FileEmbedder{
		provider:   provider,
		batchSize:  cfg.BatchSize,
		maxChars:   cfg.MaxChars,
		queryCache: cache,
	}, nil
}

// Dimensions is the vector size every returned file carries.
func (e *FileEmbedder) Dimensions() int {
	if d := e.provider.Dimensions(); d > 0 {
		return d
	}
	return defaultEmbeddingDims
}

// EmbedFiles embeds files batch by batch; requests inside a batch run concurrently.
// A file whose embedding fails gets a zero vector. If ctx is done when a batch
// would start, the call fails with domain.ErrCancelled and returns nothing.
// Output order matches input order.
func (e *FileEmbedder) EmbedFiles(ctx context.Context, files []domain.CandidateFile) ([]domain.EmbeddedFile, error) {
	start := time.Now()
	out := make([]domain.EmbeddedFile, len(files))
	degraded := 0
	for lo := 0; lo < len(files); lo += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: embedding stopped before batch %d: %v", domain.ErrCancelled, lo/e.batchSize, err)
		}
		hi := min(lo+e.batchSize, len(files))
		failed := make([]bool, hi-lo)

		var g errgroup.Group
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				out[i], failed[i-lo] = e.embedOne(ctx, files[i])
				return nil
			})
		}
		_ = g.Wait()

		for _, f := range failed {
			if f {
				degraded++
			}
		}
	}

	logger.With(logger.Fields{"degraded": degraded}).
		WithCount(len(files)).
		WithDuration(start).
		Info(ctx, "Embedded candidate files")
	return out, nil
}

// embedOne never fails; the second result reports whether a zero vector was substituted.
func (e *FileEmbedder) embedOne(ctx context.Context, f domain.CandidateFile) (domain.EmbeddedFile, bool) {
	dims := e.Dimensions()
	text := "File: " + f.Path + "\n\n" + truncateForEmbedding(f.Content, e.maxChars)

	vec, err := e.provider.Embed(ctx, text)
	if err == nil && len(vec) != dims {
		err = fmt.Errorf("got %d dimensions, want %d", len(vec), dims)
	}
	if err != nil {
		logger.CtxWarn(ctx, "Embedding failed for %s, using zero vector: %v", f.Path, err)
		return domain.EmbeddedFile{CandidateFile: f, Vector: make([]float32, dims)}, true
	}
	return domain.EmbeddedFile{CandidateFile: f, Vector: vec}, false
}

// EmbedQuery embeds a query string, memoized per model.
func (e *FileEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	key := e.provider.Model() + "\x00" + query
	if vec, ok := e.queryCache.Get(key); ok {
		return vec, nil
	}
	var (
		vec []float32
		err error
	)
	if qe, ok := e.provider.(QueryEmbedder); ok {
		vec, err = qe.EmbedQuery(ctx, query)
	} else {
		vec, err = e.provider.Embed(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != e.Dimensions() {
		return nil, fmt.Errorf("embed query: got %d dimensions, want %d", len(vec), e.Dimensions())
	}
	e.queryCache.Add(key, vec)
	return vec, nil
}

// truncateForEmbedding cuts content to maxChars characters and appends a marker.
func truncateForEmbedding(content string, maxChars int) string {
	cut := truncateRunes(content, maxChars)
	if len(cut) == len(content) {
		return content
	}
	return cut + truncationMarker
}
